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

// Operation names reported to OnOperationRejected and used in logs.
const (
	OpPurchase            = "purchase"
	OpRenew               = "renew"
	OpUpgrade             = "upgrade"
	OpChangeDetails       = "change_details"
	OpChangeMembershipFee = "change_membership_fee"
	OpSetTierActive       = "set_tier_active"
	OpRevoke              = "revoke"
	OpWithdraw            = "withdraw"
)

// mutate runs one operation through commit and reports failures.
func (l *Ledger) mutate(ctx context.Context, op string, caller member.Address, build builder) (*journal.Entry, effect, error) {
	if err := l.ensureStarted(); err != nil {
		return nil, effect{}, err
	}

	var (
		e   *journal.Entry
		fx  effect
		err error
	)
	if caller.IsZero() {
		err = invalid("caller", "must not be empty")
	} else {
		e, fx, err = l.commit(ctx, build)
	}

	if err != nil {
		if IsCallerError(err) {
			l.logger.Debug("operation rejected", "op", op, "caller", caller, "error", err)
		} else {
			l.logger.Error("operation failed", "op", op, "caller", caller, "error", err)
		}
		l.plugins.EmitOperationRejected(ctx, op, caller, err)
		return nil, effect{}, err
	}
	return e, fx, nil
}

// ──────────────────────────────────────────────────
// Membership operations
// ──────────────────────────────────────────────────

// Purchase buys periods of tier t for caller. A revoked caller may buy
// again; an existing member, even a lapsed one, must renew instead.
// Any amount paid above the fee is kept by the treasury.
func (l *Ledger) Purchase(ctx context.Context, caller member.Address, t tier.Tier, periods int, details member.Details, payment types.Money) error {
	e, fx, err := l.mutate(ctx, OpPurchase, caller, func(st *state, now time.Time) (*journal.Entry, error) {
		if err := l.checkPeriods(periods); err != nil {
			return nil, err
		}
		if err := st.checkPayment(payment); err != nil {
			return nil, err
		}
		if rec := st.record(caller); rec != nil && rec.IsMember {
			return nil, ErrAlreadyMember
		}
		plan, err := st.activePlan(t)
		if err != nil {
			return nil, err
		}
		required, span, err := terms(plan, periods)
		if err != nil {
			return nil, err
		}
		if payment.LessThan(required) {
			return nil, &PaymentError{Required: required, Offered: payment}
		}
		return &journal.Entry{
			Kind:    journal.KindPurchase,
			Caller:  caller,
			Subject: caller,
			Tier:    t,
			Periods: periods,
			Amount:  payment,
			Details: details,
			Expiry:  now.Add(span),
		}, nil
	})
	if err != nil {
		return err
	}

	l.plugins.EmitMembershipPurchased(ctx, fx.record, e.Amount)
	l.logger.Info("membership purchased",
		"member", caller,
		"tier", t,
		"periods", periods,
		"paid", e.Amount,
		"expiry", e.Expiry,
	)
	return nil
}

// RenewMembership adds one period of the caller's current tier, counted
// from the later of now and the current expiry.
func (l *Ledger) RenewMembership(ctx context.Context, caller member.Address, payment types.Money) error {
	e, fx, err := l.mutate(ctx, OpRenew, caller, func(st *state, now time.Time) (*journal.Entry, error) {
		if err := st.checkPayment(payment); err != nil {
			return nil, err
		}
		rec := st.record(caller)
		if rec == nil || !rec.IsMember {
			return nil, ErrNotAMember
		}
		plan, err := st.activePlan(rec.Tier)
		if err != nil {
			return nil, err
		}
		if payment.LessThan(plan.Fee) {
			return nil, &PaymentError{Required: plan.Fee, Offered: payment}
		}
		from := rec.Expiry
		if now.After(from) {
			from = now
		}
		return &journal.Entry{
			Kind:    journal.KindRenewal,
			Caller:  caller,
			Subject: caller,
			Tier:    rec.Tier,
			Periods: 1,
			Amount:  payment,
			Expiry:  from.Add(plan.Duration),
		}, nil
	})
	if err != nil {
		return err
	}

	l.plugins.EmitMembershipRenewed(ctx, fx.record, e.Amount)
	l.logger.Info("membership renewed",
		"member", caller,
		"tier", fx.record.Tier,
		"paid", e.Amount,
		"expiry", e.Expiry,
	)
	return nil
}

// UpgradeMembership moves an active member to a strictly higher tier. The
// expiry restarts at now plus the new tier's duration times periods; time
// left on the old tier is forfeited.
func (l *Ledger) UpgradeMembership(ctx context.Context, caller member.Address, newTier tier.Tier, periods int, payment types.Money) error {
	e, fx, err := l.mutate(ctx, OpUpgrade, caller, func(st *state, now time.Time) (*journal.Entry, error) {
		if err := l.checkPeriods(periods); err != nil {
			return nil, err
		}
		if err := st.checkPayment(payment); err != nil {
			return nil, err
		}
		rec := st.record(caller)
		if rec == nil || !rec.Active(now) {
			return nil, ErrNotAMember
		}
		if !newTier.Valid() || !newTier.Above(rec.Tier) {
			return nil, fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTier, rec.Tier, newTier)
		}
		plan, err := st.activePlan(newTier)
		if err != nil {
			return nil, err
		}
		required, span, err := terms(plan, periods)
		if err != nil {
			return nil, err
		}
		if payment.LessThan(required) {
			return nil, &PaymentError{Required: required, Offered: payment}
		}
		return &journal.Entry{
			Kind:    journal.KindUpgrade,
			Caller:  caller,
			Subject: caller,
			Tier:    newTier,
			Periods: periods,
			Amount:  payment,
			Expiry:  now.Add(span),
		}, nil
	})
	if err != nil {
		return err
	}

	l.plugins.EmitMembershipUpgraded(ctx, fx.record, fx.prevTier, e.Amount)
	l.logger.Info("membership upgraded",
		"member", caller,
		"from", fx.prevTier,
		"to", newTier,
		"paid", e.Amount,
		"expiry", e.Expiry,
	)
	return nil
}

// ChangeDetails replaces the caller's name and email. Lapsed and revoked
// records may still be edited.
func (l *Ledger) ChangeDetails(ctx context.Context, caller member.Address, details member.Details) error {
	_, fx, err := l.mutate(ctx, OpChangeDetails, caller, func(st *state, _ time.Time) (*journal.Entry, error) {
		if st.record(caller) == nil {
			return nil, ErrNotAMember
		}
		return &journal.Entry{
			Kind:    journal.KindDetailsChanged,
			Caller:  caller,
			Subject: caller,
			Details: details,
		}, nil
	})
	if err != nil {
		return err
	}

	l.plugins.EmitDetailsChanged(ctx, fx.record)
	l.logger.Info("member details changed", "member", caller)
	return nil
}

// RevokeMembership closes target's membership. The record and its
// directory entry are kept; nothing is refunded.
func (l *Ledger) RevokeMembership(ctx context.Context, caller, target member.Address) error {
	_, fx, err := l.mutate(ctx, OpRevoke, caller, func(st *state, _ time.Time) (*journal.Entry, error) {
		if !st.access.IsOwner(caller) {
			return nil, ErrUnauthorized
		}
		rec := st.record(target)
		if rec == nil || !rec.IsMember {
			return nil, ErrNotAMember
		}
		return &journal.Entry{
			Kind:    journal.KindRevocation,
			Caller:  caller,
			Subject: target,
			Tier:    rec.Tier,
		}, nil
	})
	if err != nil {
		return err
	}

	l.plugins.EmitMembershipRevoked(ctx, fx.record)
	l.logger.Info("membership revoked", "member", target, "tier", fx.record.Tier)
	return nil
}

// ──────────────────────────────────────────────────
// Catalog operations
// ──────────────────────────────────────────────────

// ChangeMembershipFee replaces the plan of tier t and marks it active.
// Existing records keep the expiry they already paid for.
func (l *Ledger) ChangeMembershipFee(ctx context.Context, caller member.Address, t tier.Tier, fee types.Money, duration time.Duration) error {
	_, fx, err := l.mutate(ctx, OpChangeMembershipFee, caller, func(st *state, _ time.Time) (*journal.Entry, error) {
		if !st.access.IsOwner(caller) {
			return nil, ErrUnauthorized
		}
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrInvalidTier, uint8(t))
		}
		if fee.Currency != st.currency {
			return nil, invalid("fee", "currency %q, ledger uses %q", fee.Currency, st.currency)
		}
		if fee.IsNegative() {
			return nil, invalid("fee", "must not be negative, got %s", fee)
		}
		if duration <= 0 {
			return nil, invalid("duration", "must be positive, got %s", duration)
		}
		return &journal.Entry{
			Kind:     journal.KindFeeChanged,
			Caller:   caller,
			Tier:     t,
			Fee:      fee,
			Duration: duration,
		}, nil
	})
	if err != nil {
		return err
	}

	l.plugins.EmitFeeChanged(ctx, fx.plan)
	l.logger.Info("tier plan changed",
		"tier", t,
		"fee", fee,
		"duration", duration,
	)
	return nil
}

// SetTierActive opens or closes tier t to purchases, renewals and upgrades
// without touching its fee.
func (l *Ledger) SetTierActive(ctx context.Context, caller member.Address, t tier.Tier, active bool) error {
	_, fx, err := l.mutate(ctx, OpSetTierActive, caller, func(st *state, _ time.Time) (*journal.Entry, error) {
		if !st.access.IsOwner(caller) {
			return nil, ErrUnauthorized
		}
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrInvalidTier, uint8(t))
		}
		return &journal.Entry{
			Kind:   journal.KindTierStatus,
			Caller: caller,
			Tier:   t,
			Active: active,
		}, nil
	})
	if err != nil {
		return err
	}

	l.plugins.EmitTierStatusChanged(ctx, fx.plan)
	l.logger.Info("tier status changed", "tier", t, "active", active)
	return nil
}

// ──────────────────────────────────────────────────
// Treasury operations
// ──────────────────────────────────────────────────

// WithdrawFunds transfers the whole treasury balance to the owner.
func (l *Ledger) WithdrawFunds(ctx context.Context, caller member.Address) (*treasury.Withdrawal, error) {
	e, _, err := l.mutate(ctx, OpWithdraw, caller, func(st *state, _ time.Time) (*journal.Entry, error) {
		if !st.access.IsOwner(caller) {
			return nil, ErrUnauthorized
		}
		if st.treasury.Balance.IsZero() {
			return nil, ErrNothingToWithdraw
		}
		return &journal.Entry{
			Kind:    journal.KindWithdrawal,
			Caller:  caller,
			Subject: caller,
			Amount:  st.treasury.Balance,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	w := treasury.Withdrawal{
		EntryID:  e.ID,
		Sequence: e.Sequence,
		To:       caller.String(),
		Amount:   e.Amount,
		At:       e.RecordedAt,
	}

	l.plugins.EmitFundsWithdrawn(ctx, w)
	l.logger.Info("funds withdrawn", "to", caller, "amount", w.Amount)
	return &w, nil
}

// ──────────────────────────────────────────────────
// Validation helpers
// ──────────────────────────────────────────────────

func (l *Ledger) checkPeriods(periods int) error {
	if periods < 1 {
		return invalid("periods", "must be at least 1, got %d", periods)
	}
	if l.cfg.MaxPeriods > 0 && periods > l.cfg.MaxPeriods {
		return invalid("periods", "at most %d allowed, got %d", l.cfg.MaxPeriods, periods)
	}
	return nil
}

// checkPayment rejects payments the treasury cannot credit.
func (s *state) checkPayment(payment types.Money) error {
	if payment.Currency != s.currency {
		return invalid("payment", "currency %q, ledger uses %q", payment.Currency, s.currency)
	}
	if payment.IsNegative() {
		return invalid("payment", "must not be negative, got %s", payment)
	}
	if err := s.treasury.CanCredit(payment); err != nil {
		return invalid("payment", "%s would overflow the treasury balance %s", payment, s.treasury.Balance)
	}
	return nil
}

// activePlan returns the plan of t if it accepts new business.
func (s *state) activePlan(t tier.Tier) (tier.Plan, error) {
	plan, ok := s.catalog.Get(t)
	if !ok {
		return tier.Plan{}, fmt.Errorf("%w: %d", ErrInvalidTier, uint8(t))
	}
	if !plan.Active {
		return tier.Plan{}, fmt.Errorf("%w: %s is not active", ErrInvalidTier, t)
	}
	return plan, nil
}

// terms prices periods of plan and computes the time they buy.
func terms(plan tier.Plan, periods int) (types.Money, time.Duration, error) {
	required, err := plan.Cost(periods)
	if err != nil {
		return types.Money{}, 0, invalid("periods", "%v", err)
	}
	span, err := plan.Span(periods)
	if err != nil {
		return types.Money{}, 0, invalid("periods", "%v", err)
	}
	return required, span, nil
}
