package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/membership/journal"
	"github.com/xraph/membership/member"
	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/treasury"
	"github.com/xraph/membership/types"
)

// Queries read the in-memory projection and reflect every entry committed
// through this Ledger. Call Sync first to observe other writers.

// IsActiveMember reports whether addr holds a non-revoked, unexpired
// membership right now.
func (l *Ledger) IsActiveMember(_ context.Context, addr member.Address) bool {
	return l.ActiveAt(addr, l.now())
}

// ActiveAt is IsActiveMember evaluated at an arbitrary instant.
func (l *Ledger) ActiveAt(addr member.Address, at time.Time) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec := l.state.record(addr)
	return rec != nil && rec.Active(at)
}

// GetMemberRecord returns a copy of addr's record, revoked or not.
func (l *Ledger) GetMemberRecord(_ context.Context, addr member.Address) (member.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec := l.state.record(addr)
	if rec == nil {
		return member.Record{}, fmt.Errorf("%w: %s", ErrNotAMember, addr)
	}
	return *rec, nil
}

// GetTier returns the tier on addr's record.
func (l *Ledger) GetTier(ctx context.Context, addr member.Address) (tier.Tier, error) {
	rec, err := l.GetMemberRecord(ctx, addr)
	if err != nil {
		return 0, err
	}
	return rec.Tier, nil
}

// GetExpiry returns the expiry on addr's record.
func (l *Ledger) GetExpiry(ctx context.Context, addr member.Address) (time.Time, error) {
	rec, err := l.GetMemberRecord(ctx, addr)
	if err != nil {
		return time.Time{}, err
	}
	return rec.Expiry, nil
}

// ListAllMembers returns every address that ever purchased, in order of
// first purchase.
func (l *Ledger) ListAllMembers(_ context.Context) []member.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.directory.List()
}

// GetTierPlan returns the plan configured for t.
func (l *Ledger) GetTierPlan(_ context.Context, t tier.Tier) (tier.Plan, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.state.catalog == nil {
		return tier.Plan{}, ErrNotStarted
	}
	plan, ok := l.state.catalog.Get(t)
	if !ok {
		return tier.Plan{}, fmt.Errorf("%w: %d", ErrInvalidTier, uint8(t))
	}
	return plan, nil
}

// ListTierPlans returns every plan in rank order.
func (l *Ledger) ListTierPlans(_ context.Context) []tier.Plan {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.state.catalog == nil {
		return nil
	}
	return l.state.catalog.List()
}

// TreasuryBalance returns the amount available to withdraw.
func (l *Ledger) TreasuryBalance(_ context.Context) types.Money {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.state.initialized() {
		return types.Zero(l.cfg.Currency)
	}
	return l.state.treasury.Balance
}

// Treasury returns the balance together with lifetime totals.
func (l *Ledger) Treasury(_ context.Context) treasury.Account {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.state.initialized() {
		return treasury.New(l.cfg.Currency)
	}
	return l.state.treasury
}

// Owner returns the address allowed to administer the ledger.
func (l *Ledger) Owner() member.Address { return l.cfg.Owner }

// Currency returns the ledger currency.
func (l *Ledger) Currency() string { return l.cfg.Currency }

// Sequence returns the position of the last applied journal entry.
func (l *Ledger) Sequence() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.seq
}

// History lists committed entries, oldest first. A zero addr lists the
// whole journal.
func (l *Ledger) History(ctx context.Context, addr member.Address, after uint64, limit int) ([]*journal.Entry, error) {
	if limit < 0 {
		return nil, invalid("limit", "must not be negative, got %d", limit)
	}
	return l.store.ListEntries(ctx, journal.ListOpts{
		After:   after,
		Subject: addr,
		Limit:   limit,
	})
}
