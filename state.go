package membership

import (
	"fmt"

	"github.com/xraph/membership/access"
	"github.com/xraph/membership/id"
	"github.com/xraph/membership/journal"
	"github.com/xraph/membership/member"
	"github.com/xraph/membership/snapshot"
	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/treasury"
)

// state is the projection of the journal up to seq.
type state struct {
	seq       uint64
	currency  string
	access    access.Controller
	catalog   *tier.Catalog
	records   map[member.Address]*member.Record
	directory *member.Directory
	treasury  treasury.Account
}

func newState() *state {
	return &state{
		records:   make(map[member.Address]*member.Record),
		directory: member.NewDirectory(),
	}
}

// initialized reports whether the genesis entry has been applied.
func (s *state) initialized() bool { return s.seq > 0 }

// effect describes what apply changed, for observers.
type effect struct {
	record   member.Record
	prevTier tier.Tier
	plan     tier.Plan
}

// apply mutates the state by one entry. It trusts the entry's values and
// only rejects entries that cannot follow the current state.
func (s *state) apply(e *journal.Entry) (effect, error) {
	var fx effect

	if e.Sequence != s.seq+1 {
		return fx, fmt.Errorf("%w: expected sequence %d, got %d", ErrCorruptJournal, s.seq+1, e.Sequence)
	}
	if e.Kind != journal.KindGenesis && !s.initialized() {
		return fx, fmt.Errorf("%w: %s before genesis", ErrCorruptJournal, e.Kind)
	}

	switch e.Kind {
	case journal.KindPurchase, journal.KindRenewal, journal.KindUpgrade, journal.KindWithdrawal:
		if e.Amount.Currency != s.currency {
			return fx, fmt.Errorf("%w: entry %d amount in %q, ledger uses %q", ErrCorruptJournal, e.Sequence, e.Amount.Currency, s.currency)
		}
	case journal.KindFeeChanged:
		if e.Fee.Currency != s.currency {
			return fx, fmt.Errorf("%w: entry %d fee in %q, ledger uses %q", ErrCorruptJournal, e.Sequence, e.Fee.Currency, s.currency)
		}
	}

	switch e.Kind {
	case journal.KindGenesis:
		if s.initialized() {
			return fx, fmt.Errorf("%w: second genesis at %d", ErrCorruptJournal, e.Sequence)
		}
		catalog, err := tier.NewCatalog(e.Plans)
		if err != nil {
			return fx, fmt.Errorf("%w: genesis plans: %v", ErrCorruptJournal, err)
		}
		s.currency = e.Currency
		s.access = access.New(e.Caller)
		s.catalog = catalog
		s.treasury = treasury.New(e.Currency)

	case journal.KindPurchase:
		rec, ok := s.records[e.Subject]
		if !ok {
			rec = &member.Record{Address: e.Subject}
			rec.Entity.CreatedAt = e.RecordedAt
			s.records[e.Subject] = rec
		}
		s.directory.Add(e.Subject)
		rec.IsMember = true
		rec.Tier = e.Tier
		rec.Expiry = e.Expiry
		rec.Details = e.Details
		rec.Touch(e.RecordedAt)
		s.treasury.Credit(e.Amount)
		fx.record = *rec

	case journal.KindRenewal:
		rec, err := s.mustRecord(e)
		if err != nil {
			return fx, err
		}
		rec.Expiry = e.Expiry
		rec.Touch(e.RecordedAt)
		s.treasury.Credit(e.Amount)
		fx.record = *rec

	case journal.KindUpgrade:
		rec, err := s.mustRecord(e)
		if err != nil {
			return fx, err
		}
		fx.prevTier = rec.Tier
		rec.Tier = e.Tier
		rec.Expiry = e.Expiry
		rec.Touch(e.RecordedAt)
		s.treasury.Credit(e.Amount)
		fx.record = *rec

	case journal.KindDetailsChanged:
		rec, err := s.mustRecord(e)
		if err != nil {
			return fx, err
		}
		rec.Details = e.Details
		rec.Touch(e.RecordedAt)
		fx.record = *rec

	case journal.KindRevocation:
		rec, err := s.mustRecord(e)
		if err != nil {
			return fx, err
		}
		rec.IsMember = false
		rec.Touch(e.RecordedAt)
		fx.record = *rec

	case journal.KindFeeChanged:
		plan := tier.Plan{
			Tier:      e.Tier,
			Fee:       e.Fee,
			Duration:  e.Duration,
			Active:    true,
			UpdatedAt: e.RecordedAt,
		}
		if err := plan.Validate(); err != nil {
			return fx, fmt.Errorf("%w: entry %d: %v", ErrCorruptJournal, e.Sequence, err)
		}
		s.catalog.Set(plan)
		fx.plan = plan

	case journal.KindTierStatus:
		if !e.Tier.Valid() {
			return fx, fmt.Errorf("%w: entry %d: tier %d", ErrCorruptJournal, e.Sequence, e.Tier)
		}
		s.catalog.SetActive(e.Tier, e.Active, e.RecordedAt)
		fx.plan, _ = s.catalog.Get(e.Tier)

	case journal.KindWithdrawal:
		if !s.treasury.Balance.Equal(e.Amount) {
			return fx, fmt.Errorf("%w: entry %d withdraws %s from balance %s",
				ErrCorruptJournal, e.Sequence, e.Amount, s.treasury.Balance)
		}
		s.treasury.Drain()

	default:
		return fx, fmt.Errorf("%w: unknown kind %q", ErrCorruptJournal, e.Kind)
	}

	s.seq = e.Sequence
	return fx, nil
}

func (s *state) mustRecord(e *journal.Entry) (*member.Record, error) {
	rec, ok := s.records[e.Subject]
	if !ok {
		return nil, fmt.Errorf("%w: entry %d (%s) for unknown address %q", ErrCorruptJournal, e.Sequence, e.Kind, e.Subject)
	}
	return rec, nil
}

// record returns the record for addr, or nil.
func (s *state) record(addr member.Address) *member.Record {
	return s.records[addr]
}

// toSnapshot copies the state into a snapshot value.
func (s *state) toSnapshot() *snapshot.Snapshot {
	members := make([]member.Record, 0, s.directory.Len())
	for _, addr := range s.directory.List() {
		members = append(members, *s.records[addr])
	}
	return &snapshot.Snapshot{
		ID:       id.NewSnapshotID(),
		Sequence: s.seq,
		Owner:    s.access.Owner(),
		Currency: s.currency,
		Plans:    s.catalog.List(),
		Members:  members,
		Treasury: s.treasury,
	}
}

// stateFromSnapshot rebuilds a state positioned at snap.Sequence.
func stateFromSnapshot(snap *snapshot.Snapshot) (*state, error) {
	catalog, err := tier.NewCatalog(snap.Plans)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot %d plans: %v", ErrCorruptJournal, snap.Sequence, err)
	}
	s := newState()
	s.seq = snap.Sequence
	s.currency = snap.Currency
	s.access = access.New(snap.Owner)
	s.catalog = catalog
	s.treasury = snap.Treasury
	for i := range snap.Members {
		rec := snap.Members[i]
		s.records[rec.Address] = &rec
		s.directory.Add(rec.Address)
	}
	if !s.treasury.Reconciles() {
		return nil, fmt.Errorf("%w: snapshot %d treasury does not reconcile", ErrCorruptJournal, snap.Sequence)
	}
	return s, nil
}
