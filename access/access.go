// Package access decides which callers may perform owner-gated operations.
package access

import "github.com/xraph/membership/member"

// Controller holds the single owner fixed when the ledger was created.
type Controller struct {
	owner member.Address
}

// New returns a controller for owner.
func New(owner member.Address) Controller {
	return Controller{owner: owner}
}

// Owner returns the owner address.
func (c Controller) Owner() member.Address { return c.owner }

// IsOwner reports whether caller is the owner. The empty address never is.
func (c Controller) IsOwner(caller member.Address) bool {
	return !caller.IsZero() && caller == c.owner
}
