package member

// Directory is an insertion-ordered set of addresses. Entries are never
// removed; revoked members keep their slot.
type Directory struct {
	order []Address
	index map[Address]struct{}
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{index: make(map[Address]struct{})}
}

// Add appends addr unless it is already present and reports whether it was added.
func (d *Directory) Add(addr Address) bool {
	if _, ok := d.index[addr]; ok {
		return false
	}
	d.index[addr] = struct{}{}
	d.order = append(d.order, addr)
	return true
}

// Contains reports whether addr has ever been added.
func (d *Directory) Contains(addr Address) bool {
	_, ok := d.index[addr]
	return ok
}

// Len returns the number of addresses.
func (d *Directory) Len() int { return len(d.order) }

// List returns the addresses in insertion order.
func (d *Directory) List() []Address {
	out := make([]Address, len(d.order))
	copy(out, d.order)
	return out
}
