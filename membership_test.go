package membership_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/xraph/membership"
	"github.com/xraph/membership/member"
	"github.com/xraph/membership/store/memory"
	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/types"
)

const day = 24 * time.Hour

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// scenarioPlans prices Basic at 10 per 90 days.
func scenarioPlans() []tier.Plan {
	plans := tier.DefaultPlans("usd")
	plans[tier.Basic].Fee = types.USD(10)
	plans[tier.Basic].Duration = 90 * day
	return plans
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	clock *clock
	l     *membership.Ledger
}

func newHarness(t *testing.T, opts ...membership.Option) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		ctx:   context.Background(),
		store: memory.New(),
		clock: newClock(),
	}
	h.l = h.start(membership.Config{Owner: "owner", Plans: scenarioPlans()}, opts...)
	t.Cleanup(func() { _ = h.l.Stop() })
	return h
}

func (h *harness) start(cfg membership.Config, opts ...membership.Option) *membership.Ledger {
	h.t.Helper()
	opts = append([]membership.Option{membership.WithClock(h.clock.Now)}, opts...)
	l, err := membership.New(h.store, cfg, opts...)
	if err != nil {
		h.t.Fatalf("New: %v", err)
	}
	if err := l.Start(h.ctx); err != nil {
		h.t.Fatalf("Start: %v", err)
	}
	return l
}

func (h *harness) purchase(addr member.Address, t tier.Tier, periods int, amount int64) error {
	return h.l.Purchase(h.ctx, addr, t, periods, member.Details{Name: string(addr), Email: string(addr) + "@example.com"}, types.USD(amount))
}

func (h *harness) mustPurchase(addr member.Address, t tier.Tier, periods int, amount int64) {
	h.t.Helper()
	if err := h.purchase(addr, t, periods, amount); err != nil {
		h.t.Fatalf("Purchase(%s): %v", addr, err)
	}
}

func (h *harness) record(addr member.Address) member.Record {
	h.t.Helper()
	rec, err := h.l.GetMemberRecord(h.ctx, addr)
	if err != nil {
		h.t.Fatalf("GetMemberRecord(%s): %v", addr, err)
	}
	return rec
}

func sameRecord(a, b member.Record) bool {
	return a.Address == b.Address &&
		a.IsMember == b.IsMember &&
		a.Tier == b.Tier &&
		a.Expiry.Equal(b.Expiry) &&
		a.Details == b.Details &&
		a.CreatedAt.Equal(b.CreatedAt) &&
		a.UpdatedAt.Equal(b.UpdatedAt)
}

func (h *harness) balance() int64 {
	return h.l.TreasuryBalance(h.ctx).Amount
}

func TestScenarioBasicFeeChange(t *testing.T) {
	h := newHarness(t)
	start := h.clock.Now()

	h.mustPurchase("A", tier.Basic, 2, 20)
	if !h.l.IsActiveMember(h.ctx, "A") {
		t.Fatal("A should be active")
	}
	recA := h.record("A")
	if want := start.Add(180 * day); !recA.Expiry.Equal(want) {
		t.Fatalf("expiry = %v, want %v", recA.Expiry, want)
	}
	if recA.Tier != tier.Basic {
		t.Fatalf("tier = %s", recA.Tier)
	}

	if err := h.l.ChangeMembershipFee(h.ctx, "owner", tier.Basic, types.USD(12), 90*day); err != nil {
		t.Fatalf("ChangeMembershipFee: %v", err)
	}

	var perr *membership.PaymentError
	err := h.purchase("B", tier.Basic, 2, 20)
	if !errors.As(err, &perr) || !errors.Is(err, membership.ErrInsufficientPayment) {
		t.Fatalf("err = %v, want PaymentError", err)
	}
	if perr.Required.Amount != 24 {
		t.Errorf("required = %s, want 24", perr.Required)
	}
	h.mustPurchase("B", tier.Basic, 2, 24)

	if got := h.record("A"); got.Expiry != recA.Expiry || got.Tier != recA.Tier {
		t.Errorf("A changed after fee edit: %+v", got)
	}
	if h.balance() != 44 {
		t.Errorf("balance = %d, want 44", h.balance())
	}
}

func TestPurchase(t *testing.T) {
	t.Run("InsufficientLeavesNoRecord", func(t *testing.T) {
		h := newHarness(t)
		err := h.purchase("alice", tier.Basic, 2, 19)
		if !errors.Is(err, membership.ErrInsufficientPayment) {
			t.Fatalf("err = %v", err)
		}
		if _, err := h.l.GetMemberRecord(h.ctx, "alice"); !errors.Is(err, membership.ErrNotAMember) {
			t.Errorf("record exists after failed purchase: %v", err)
		}
		if len(h.l.ListAllMembers(h.ctx)) != 0 {
			t.Error("directory not empty")
		}
		if h.balance() != 0 {
			t.Errorf("balance = %d", h.balance())
		}
	})

	t.Run("OverpaymentKept", func(t *testing.T) {
		h := newHarness(t)
		h.mustPurchase("alice", tier.Basic, 1, 15)
		if h.balance() != 15 {
			t.Errorf("balance = %d, want 15", h.balance())
		}
	})

	t.Run("AlreadyMember", func(t *testing.T) {
		h := newHarness(t)
		h.mustPurchase("alice", tier.Basic, 1, 10)
		before := h.record("alice")

		if err := h.purchase("alice", tier.Gold, 1, 3000); !errors.Is(err, membership.ErrAlreadyMember) {
			t.Fatalf("err = %v, want ErrAlreadyMember", err)
		}
		// Lapsed members renew; they do not buy again.
		h.clock.Advance(91 * day)
		if err := h.purchase("alice", tier.Basic, 1, 10); !errors.Is(err, membership.ErrAlreadyMember) {
			t.Fatalf("lapsed err = %v, want ErrAlreadyMember", err)
		}
		if got := h.record("alice"); got.Tier != before.Tier || !got.Expiry.Equal(before.Expiry) {
			t.Errorf("record changed: %+v", got)
		}
	})

	t.Run("InactiveTier", func(t *testing.T) {
		h := newHarness(t)
		if err := h.l.SetTierActive(h.ctx, "owner", tier.Gold, false); err != nil {
			t.Fatal(err)
		}
		if err := h.purchase("alice", tier.Gold, 1, 3000); !errors.Is(err, membership.ErrInvalidTier) {
			t.Fatalf("err = %v, want ErrInvalidTier", err)
		}
		if err := h.l.SetTierActive(h.ctx, "owner", tier.Gold, true); err != nil {
			t.Fatal(err)
		}
		h.mustPurchase("alice", tier.Gold, 1, 3000)
	})

	t.Run("InvalidArguments", func(t *testing.T) {
		h := newHarness(t, membership.WithLogger(slog.New(slog.DiscardHandler)))
		tests := []struct {
			name string
			call func() error
			want error
		}{
			{"ZeroPeriods", func() error { return h.purchase("alice", tier.Basic, 0, 0) }, membership.ErrInvalidArgument},
			{"NegativePayment", func() error { return h.purchase("alice", tier.Basic, 1, -5) }, membership.ErrInvalidArgument},
			{"EmptyCaller", func() error { return h.purchase("", tier.Basic, 1, 10) }, membership.ErrInvalidArgument},
			{"WrongCurrency", func() error {
				return h.l.Purchase(h.ctx, "alice", tier.Basic, 1, member.Details{}, types.EUR(10))
			}, membership.ErrInvalidArgument},
			{"UnknownTier", func() error { return h.purchase("alice", tier.Tier(9), 1, 10) }, membership.ErrInvalidTier},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if err := tt.call(); !errors.Is(err, tt.want) {
					t.Errorf("err = %v, want %v", err, tt.want)
				}
			})
		}
		if h.l.Sequence() != 1 {
			t.Errorf("rejected calls reached the journal: sequence %d", h.l.Sequence())
		}
	})

	t.Run("MaxPeriods", func(t *testing.T) {
		h := &harness{t: t, ctx: context.Background(), store: memory.New(), clock: newClock()}
		h.l = h.start(membership.Config{Owner: "owner", Plans: scenarioPlans(), MaxPeriods: 4})
		defer h.l.Stop()

		if err := h.purchase("alice", tier.Basic, 5, 50); !errors.Is(err, membership.ErrInvalidArgument) {
			t.Fatalf("err = %v, want ErrInvalidArgument", err)
		}
		h.mustPurchase("alice", tier.Basic, 4, 40)
	})
}

func TestRenew(t *testing.T) {
	h := newHarness(t)
	start := h.clock.Now()
	h.mustPurchase("alice", tier.Basic, 1, 10)

	// Early renewal banks the remaining time.
	h.clock.Advance(30 * day)
	if err := h.l.RenewMembership(h.ctx, "alice", types.USD(10)); err != nil {
		t.Fatalf("RenewMembership: %v", err)
	}
	if got, want := h.record("alice").Expiry, start.Add(180*day); !got.Equal(want) {
		t.Errorf("expiry = %v, want %v", got, want)
	}

	// Late renewal counts from now.
	h.clock.Advance(200 * day)
	if h.l.IsActiveMember(h.ctx, "alice") {
		t.Fatal("alice should have lapsed")
	}
	if err := h.l.RenewMembership(h.ctx, "alice", types.USD(10)); err != nil {
		t.Fatalf("RenewMembership: %v", err)
	}
	if got, want := h.record("alice").Expiry, h.clock.Now().Add(90*day); !got.Equal(want) {
		t.Errorf("expiry = %v, want %v", got, want)
	}
	if h.record("alice").Tier != tier.Basic {
		t.Error("renewal changed the tier")
	}

	if err := h.l.RenewMembership(h.ctx, "alice", types.USD(9)); !errors.Is(err, membership.ErrInsufficientPayment) {
		t.Errorf("err = %v, want ErrInsufficientPayment", err)
	}
	if err := h.l.RenewMembership(h.ctx, "bob", types.USD(10)); !errors.Is(err, membership.ErrNotAMember) {
		t.Errorf("err = %v, want ErrNotAMember", err)
	}

	if err := h.l.RevokeMembership(h.ctx, "owner", "alice"); err != nil {
		t.Fatal(err)
	}
	if err := h.l.RenewMembership(h.ctx, "alice", types.USD(10)); !errors.Is(err, membership.ErrNotAMember) {
		t.Errorf("revoked err = %v, want ErrNotAMember", err)
	}
}

func TestUpgrade(t *testing.T) {
	h := newHarness(t)
	h.mustPurchase("alice", tier.Silver, 1, 2000)
	h.clock.Advance(10 * day)

	for _, to := range []tier.Tier{tier.Basic, tier.Silver} {
		if err := h.l.UpgradeMembership(h.ctx, "alice", to, 1, types.USD(5000)); !errors.Is(err, membership.ErrInvalidTier) {
			t.Errorf("upgrade to %s err = %v, want ErrInvalidTier", to, err)
		}
	}
	if err := h.l.UpgradeMembership(h.ctx, "alice", tier.Gold, 2, types.USD(5999)); !errors.Is(err, membership.ErrInsufficientPayment) {
		t.Errorf("err = %v, want ErrInsufficientPayment", err)
	}
	if err := h.l.UpgradeMembership(h.ctx, "alice", tier.Gold, 2, types.USD(6000)); err != nil {
		t.Fatalf("UpgradeMembership: %v", err)
	}
	rec := h.record("alice")
	if rec.Tier != tier.Gold {
		t.Errorf("tier = %s", rec.Tier)
	}
	if want := h.clock.Now().Add(2 * tier.Quarter); !rec.Expiry.Equal(want) {
		t.Errorf("expiry = %v, want %v", rec.Expiry, want)
	}

	// Only active members may upgrade.
	h.clock.Advance(2*tier.Quarter + day)
	if err := h.l.UpgradeMembership(h.ctx, "alice", tier.Platinum, 1, types.USD(4000)); !errors.Is(err, membership.ErrNotAMember) {
		t.Errorf("lapsed err = %v, want ErrNotAMember", err)
	}
	if err := h.l.UpgradeMembership(h.ctx, "bob", tier.Platinum, 1, types.USD(4000)); !errors.Is(err, membership.ErrNotAMember) {
		t.Errorf("unknown err = %v, want ErrNotAMember", err)
	}
}

func TestChangeDetails(t *testing.T) {
	h := newHarness(t)
	if err := h.l.ChangeDetails(h.ctx, "alice", member.Details{Name: "A"}); !errors.Is(err, membership.ErrNotAMember) {
		t.Fatalf("err = %v, want ErrNotAMember", err)
	}
	h.mustPurchase("alice", tier.Basic, 1, 10)
	before := h.record("alice")

	h.clock.Advance(day)
	if err := h.l.ChangeDetails(h.ctx, "alice", member.Details{Name: "Alice B", Email: "ab@example.com"}); err != nil {
		t.Fatal(err)
	}
	after := h.record("alice")
	if after.Name != "Alice B" || after.Email != "ab@example.com" {
		t.Errorf("details = %+v", after.Details)
	}
	if !after.Expiry.Equal(before.Expiry) || after.Tier != before.Tier {
		t.Error("details change touched expiry or tier")
	}
	if h.balance() != 10 {
		t.Errorf("balance = %d", h.balance())
	}
}

func TestRevoke(t *testing.T) {
	h := newHarness(t)
	h.mustPurchase("alice", tier.Basic, 1, 10)
	h.mustPurchase("bob", tier.Basic, 1, 10)

	if err := h.l.RevokeMembership(h.ctx, "bob", "alice"); !errors.Is(err, membership.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if !h.l.IsActiveMember(h.ctx, "alice") {
		t.Fatal("unauthorized revoke had an effect")
	}

	if err := h.l.RevokeMembership(h.ctx, "owner", "alice"); err != nil {
		t.Fatal(err)
	}
	rec := h.record("alice")
	if rec.IsMember || h.l.IsActiveMember(h.ctx, "alice") {
		t.Error("alice still a member")
	}
	if rec.Tier != tier.Basic || rec.Name != "alice" {
		t.Errorf("revocation erased history: %+v", rec)
	}
	if err := h.l.RevokeMembership(h.ctx, "owner", "alice"); !errors.Is(err, membership.ErrNotAMember) {
		t.Errorf("second revoke err = %v", err)
	}
	if err := h.l.RevokeMembership(h.ctx, "owner", "carol"); !errors.Is(err, membership.ErrNotAMember) {
		t.Errorf("unknown revoke err = %v", err)
	}

	// Buying again after revocation keeps a single directory slot.
	h.mustPurchase("alice", tier.Silver, 1, 2000)
	members := h.l.ListAllMembers(h.ctx)
	if len(members) != 2 || members[0] != "alice" || members[1] != "bob" {
		t.Errorf("members = %v", members)
	}
	if h.balance() != 2020 {
		t.Errorf("balance = %d, revocation must not refund", h.balance())
	}
}

func TestWithdraw(t *testing.T) {
	h := newHarness(t)
	if _, err := h.l.WithdrawFunds(h.ctx, "owner"); !errors.Is(err, membership.ErrNothingToWithdraw) {
		t.Fatalf("err = %v, want ErrNothingToWithdraw", err)
	}

	h.mustPurchase("alice", tier.Basic, 3, 30)
	h.mustPurchase("bob", tier.Silver, 1, 2000)

	if _, err := h.l.WithdrawFunds(h.ctx, "alice"); !errors.Is(err, membership.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if h.balance() != 2030 {
		t.Fatalf("balance = %d after unauthorized withdraw", h.balance())
	}

	w, err := h.l.WithdrawFunds(h.ctx, "owner")
	if err != nil {
		t.Fatal(err)
	}
	if w.Amount.Amount != 2030 || w.To != "owner" {
		t.Errorf("withdrawal = %+v", w)
	}
	if h.balance() != 0 {
		t.Errorf("balance = %d", h.balance())
	}
	acct := h.l.Treasury(h.ctx)
	if acct.Collected.Amount != 2030 || acct.Withdrawn.Amount != 2030 || !acct.Reconciles() {
		t.Errorf("account = %+v", acct)
	}
	if _, err := h.l.WithdrawFunds(h.ctx, "owner"); !errors.Is(err, membership.ErrNothingToWithdraw) {
		t.Errorf("err = %v, want ErrNothingToWithdraw", err)
	}
}

func TestTreasuryOverflowIsRejected(t *testing.T) {
	h := newHarness(t)
	h.mustPurchase("alice", tier.Basic, 1, math.MaxInt64)
	before := h.record("alice")

	if err := h.purchase("bob", tier.Basic, 1, 10); !errors.Is(err, membership.ErrInvalidArgument) {
		t.Fatalf("purchase err = %v, want ErrInvalidArgument", err)
	}
	if h.l.IsActiveMember(h.ctx, "bob") {
		t.Error("rejected purchase created a member")
	}
	if err := h.l.RenewMembership(h.ctx, "alice", types.USD(10)); !errors.Is(err, membership.ErrInvalidArgument) {
		t.Errorf("renew err = %v, want ErrInvalidArgument", err)
	}
	if err := h.l.UpgradeMembership(h.ctx, "alice", tier.Silver, 1, types.USD(2000)); !errors.Is(err, membership.ErrInvalidArgument) {
		t.Errorf("upgrade err = %v, want ErrInvalidArgument", err)
	}
	if !sameRecord(h.record("alice"), before) {
		t.Errorf("record changed: %+v", h.record("alice"))
	}
	if h.balance() != math.MaxInt64 {
		t.Fatalf("balance = %d, want %d", h.balance(), int64(math.MaxInt64))
	}

	w, err := h.l.WithdrawFunds(h.ctx, "owner")
	if err != nil {
		t.Fatal(err)
	}
	if w.Amount.Amount != math.MaxInt64 {
		t.Errorf("withdrawal = %v", w.Amount)
	}

	// The lifetime total is still full, so new payments stay rejected.
	if err := h.purchase("bob", tier.Basic, 1, 10); !errors.Is(err, membership.ErrInvalidArgument) {
		t.Errorf("purchase after withdraw err = %v, want ErrInvalidArgument", err)
	}
	if acct := h.l.Treasury(h.ctx); !acct.Reconciles() {
		t.Errorf("account = %+v", acct)
	}
}

func TestInactiveTiers(t *testing.T) {
	h := newHarness(t)
	h.mustPurchase("alice", tier.Silver, 1, 2000)
	before := h.record("alice")

	if err := h.l.SetTierActive(h.ctx, "alice", tier.Gold, false); !errors.Is(err, membership.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	plan, err := h.l.GetTierPlan(h.ctx, tier.Gold)
	if err != nil {
		t.Fatal(err)
	}
	if !plan.Active {
		t.Fatal("unauthorized SetTierActive had an effect")
	}

	if err := h.l.SetTierActive(h.ctx, "owner", tier.Gold, false); err != nil {
		t.Fatal(err)
	}
	if err := h.l.UpgradeMembership(h.ctx, "alice", tier.Gold, 1, types.USD(3000)); !errors.Is(err, membership.ErrInvalidTier) {
		t.Errorf("upgrade err = %v, want ErrInvalidTier", err)
	}

	if err := h.l.SetTierActive(h.ctx, "owner", tier.Silver, false); err != nil {
		t.Fatal(err)
	}
	if err := h.l.RenewMembership(h.ctx, "alice", types.USD(2000)); !errors.Is(err, membership.ErrInvalidTier) {
		t.Errorf("renew err = %v, want ErrInvalidTier", err)
	}

	if !sameRecord(h.record("alice"), before) {
		t.Errorf("record changed: %+v", h.record("alice"))
	}
	if h.balance() != 2000 {
		t.Errorf("balance = %d, want 2000", h.balance())
	}

	// Reactivating the tier restores renewals.
	if err := h.l.SetTierActive(h.ctx, "owner", tier.Silver, true); err != nil {
		t.Fatal(err)
	}
	if err := h.l.RenewMembership(h.ctx, "alice", types.USD(2000)); err != nil {
		t.Errorf("renew after reactivation: %v", err)
	}
}

func TestCatalogAdmin(t *testing.T) {
	h := newHarness(t)
	if err := h.l.ChangeMembershipFee(h.ctx, "alice", tier.Basic, types.USD(1), day); !errors.Is(err, membership.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
	if err := h.l.ChangeMembershipFee(h.ctx, "owner", tier.Basic, types.USD(-1), day); !errors.Is(err, membership.ErrInvalidArgument) {
		t.Errorf("negative fee err = %v", err)
	}
	if err := h.l.ChangeMembershipFee(h.ctx, "owner", tier.Basic, types.USD(1), 0); !errors.Is(err, membership.ErrInvalidArgument) {
		t.Errorf("zero duration err = %v", err)
	}
	if err := h.l.SetTierActive(h.ctx, "owner", tier.Gold, false); err != nil {
		t.Fatal(err)
	}

	// A fee change reactivates the tier.
	if err := h.l.ChangeMembershipFee(h.ctx, "owner", tier.Gold, types.USD(0), 30*day); err != nil {
		t.Fatal(err)
	}
	plan, err := h.l.GetTierPlan(h.ctx, tier.Gold)
	if err != nil {
		t.Fatal(err)
	}
	if !plan.Active || plan.Fee.Amount != 0 || plan.Duration != 30*day {
		t.Errorf("plan = %+v", plan)
	}
	if _, err := h.l.GetTierPlan(h.ctx, tier.Tier(7)); !errors.Is(err, membership.ErrInvalidTier) {
		t.Errorf("err = %v, want ErrInvalidTier", err)
	}
	if n := len(h.l.ListTierPlans(h.ctx)); n != tier.Count {
		t.Errorf("plans = %d", n)
	}

	// Free tiers accept a zero payment.
	h.mustPurchase("alice", tier.Gold, 1, 0)
}

func TestQueriesAreStable(t *testing.T) {
	h := newHarness(t)
	h.mustPurchase("alice", tier.Basic, 1, 10)

	first := h.record("alice")
	second := h.record("alice")
	if !sameRecord(first, second) {
		t.Errorf("records differ: %+v vs %+v", first, second)
	}
	if tr, _ := h.l.GetTier(h.ctx, "alice"); tr != tier.Basic {
		t.Errorf("GetTier = %s", tr)
	}
	if exp, _ := h.l.GetExpiry(h.ctx, "alice"); !exp.Equal(first.Expiry) {
		t.Errorf("GetExpiry = %v", exp)
	}
	if _, err := h.l.GetTier(h.ctx, "nobody"); !membership.IsNotFound(err) {
		t.Errorf("GetTier(nobody) err = %v", err)
	}
	if !h.l.ActiveAt("alice", first.Expiry.Add(-time.Second)) || h.l.ActiveAt("alice", first.Expiry) {
		t.Error("ActiveAt boundary wrong: expiry itself is not active")
	}
}

func TestHistory(t *testing.T) {
	h := newHarness(t)
	h.mustPurchase("alice", tier.Basic, 1, 10)
	h.mustPurchase("bob", tier.Basic, 1, 10)
	if err := h.l.RenewMembership(h.ctx, "alice", types.USD(10)); err != nil {
		t.Fatal(err)
	}

	all, err := h.l.History(h.ctx, "", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("history = %d entries, want 4", len(all))
	}
	alice, err := h.l.History(h.ctx, "alice", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(alice) != 2 || alice[1].Amount.Amount != 10 {
		t.Errorf("alice history = %d entries", len(alice))
	}
	if _, err := h.l.History(h.ctx, "", 0, -1); !errors.Is(err, membership.ErrInvalidArgument) {
		t.Errorf("negative limit err = %v", err)
	}
}

func TestNotStarted(t *testing.T) {
	l, err := membership.New(memory.New(), membership.Config{Owner: "owner"})
	if err != nil {
		t.Fatal(err)
	}
	err = l.Purchase(context.Background(), "alice", tier.Basic, 1, member.Details{}, types.USD(1000))
	if !errors.Is(err, membership.ErrNotStarted) {
		t.Errorf("err = %v, want ErrNotStarted", err)
	}
}

func TestConfigValidation(t *testing.T) {
	if _, err := membership.New(memory.New(), membership.Config{}); !errors.Is(err, membership.ErrInvalidArgument) {
		t.Errorf("missing owner err = %v", err)
	}
	plans := tier.DefaultPlans("eur")
	if _, err := membership.New(memory.New(), membership.Config{Owner: "o", Currency: "usd", Plans: plans}); !errors.Is(err, membership.ErrInvalidArgument) {
		t.Errorf("currency mismatch err = %v", err)
	}
	if _, err := membership.New(memory.New(), membership.Config{Owner: "o", Plans: plans[:3], Currency: "eur"}); !errors.Is(err, membership.ErrInvalidArgument) {
		t.Errorf("incomplete catalog err = %v", err)
	}
}

func TestRestartReplaysJournal(t *testing.T) {
	h := newHarness(t, membership.WithSnapshotConfig(2, 0))
	h.mustPurchase("alice", tier.Basic, 2, 20)
	h.mustPurchase("bob", tier.Silver, 1, 2000)
	if err := h.l.RevokeMembership(h.ctx, "owner", "bob"); err != nil {
		t.Fatal(err)
	}
	if err := h.l.ChangeMembershipFee(h.ctx, "owner", tier.Basic, types.USD(12), 90*day); err != nil {
		t.Fatal(err)
	}
	if _, err := h.l.WithdrawFunds(h.ctx, "owner"); err != nil {
		t.Fatal(err)
	}
	h.mustPurchase("carol", tier.Basic, 1, 12)

	wantAlice := h.record("alice")
	wantBob := h.record("bob")
	wantSeq := h.l.Sequence()
	wantAcct := h.l.Treasury(h.ctx)

	if err := h.l.Stop(); err != nil {
		t.Fatal(err)
	}
	if h.store.SnapshotCount() == 0 {
		t.Error("no snapshot written")
	}
	h.store.Reopen()

	h.l = h.start(membership.Config{Owner: "owner"})
	if got := h.l.Sequence(); got != wantSeq {
		t.Errorf("sequence = %d, want %d", got, wantSeq)
	}
	if got := h.record("alice"); !sameRecord(got, wantAlice) {
		t.Errorf("alice = %+v, want %+v", got, wantAlice)
	}
	if got := h.record("bob"); !sameRecord(got, wantBob) {
		t.Errorf("bob = %+v, want %+v", got, wantBob)
	}
	if got := h.l.Treasury(h.ctx); got != wantAcct {
		t.Errorf("treasury = %+v, want %+v", got, wantAcct)
	}
	if plan, _ := h.l.GetTierPlan(h.ctx, tier.Basic); plan.Fee.Amount != 12 {
		t.Errorf("basic fee = %s, journal must win over config", plan.Fee)
	}
	members := h.l.ListAllMembers(h.ctx)
	if fmt.Sprint(members) != "[alice bob carol]" {
		t.Errorf("members = %v", members)
	}

	// The restored ledger keeps appending.
	h.mustPurchase("dave", tier.Basic, 1, 12)
	if h.l.Sequence() != wantSeq+1 {
		t.Errorf("sequence = %d", h.l.Sequence())
	}
}

func TestOwnerMismatch(t *testing.T) {
	h := newHarness(t)
	if err := h.l.Stop(); err != nil {
		t.Fatal(err)
	}
	h.store.Reopen()

	l, err := membership.New(h.store, membership.Config{Owner: "someone-else"})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Start(h.ctx); !errors.Is(err, membership.ErrOwnerMismatch) {
		t.Fatalf("err = %v, want ErrOwnerMismatch", err)
	}
}

func TestTwoWritersShareJournal(t *testing.T) {
	h := newHarness(t)
	other := h.start(membership.Config{Owner: "owner"})

	h.mustPurchase("alice", tier.Basic, 1, 10)
	if err := other.Purchase(h.ctx, "alice", tier.Basic, 1, member.Details{}, types.USD(10)); !errors.Is(err, membership.ErrAlreadyMember) {
		t.Fatalf("second writer err = %v, want ErrAlreadyMember", err)
	}
	if err := other.Purchase(h.ctx, "bob", tier.Basic, 1, member.Details{}, types.USD(10)); err != nil {
		t.Fatal(err)
	}

	if h.l.IsActiveMember(h.ctx, "bob") {
		t.Fatal("first writer sees bob before Sync")
	}
	if err := h.l.Sync(h.ctx); err != nil {
		t.Fatal(err)
	}
	if !h.l.IsActiveMember(h.ctx, "bob") {
		t.Error("first writer does not see bob after Sync")
	}
	if h.balance() != 20 {
		t.Errorf("balance = %d", h.balance())
	}
}

func TestConcurrentPurchases(t *testing.T) {
	h := newHarness(t)
	const n = 25

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- h.purchase(member.Address(fmt.Sprintf("m%02d", i)), tier.Basic, 1, 10)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("purchase: %v", err)
		}
	}

	if got := len(h.l.ListAllMembers(h.ctx)); got != n {
		t.Errorf("members = %d, want %d", got, n)
	}
	if h.l.Sequence() != n+1 {
		t.Errorf("sequence = %d, want %d", h.l.Sequence(), n+1)
	}
	if h.balance() != 10*n {
		t.Errorf("balance = %d", h.balance())
	}
}
