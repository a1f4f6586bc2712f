// Package observability provides a metrics plugin for the membership ledger
// that records lifecycle event counts through a MetricFactory.
package observability

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/membership"
	"github.com/xraph/membership/journal"
	"github.com/xraph/membership/member"
	"github.com/xraph/membership/plugin"
	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/treasury"
	"github.com/xraph/membership/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnMembershipPurchased = (*MetricsExtension)(nil)
	_ plugin.OnMembershipRenewed   = (*MetricsExtension)(nil)
	_ plugin.OnMembershipUpgraded  = (*MetricsExtension)(nil)
	_ plugin.OnDetailsChanged      = (*MetricsExtension)(nil)
	_ plugin.OnMembershipRevoked   = (*MetricsExtension)(nil)
	_ plugin.OnFeeChanged          = (*MetricsExtension)(nil)
	_ plugin.OnTierStatusChanged   = (*MetricsExtension)(nil)
	_ plugin.OnFundsWithdrawn      = (*MetricsExtension)(nil)
	_ plugin.OnEntryCommitted      = (*MetricsExtension)(nil)
	_ plugin.OnOperationRejected   = (*MetricsExtension)(nil)
	_ plugin.OnSnapshotSaved       = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a ledger plugin to track membership metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Membership metrics
	MembershipPurchased Counter
	MembershipRenewed   Counter
	MembershipUpgraded  Counter
	DetailsChanged      Counter
	MembershipRevoked   Counter

	// Catalog metrics
	FeeChanged     Counter
	TierActivated  Counter
	TierDeactivate Counter

	// Treasury metrics
	RevenueCollected Counter
	FundsWithdrawn   Counter
	WithdrawalAmount Histogram

	// Journal metrics
	EntriesCommitted Counter
	CommitLatency    Histogram
	SnapshotsSaved   Counter
	SnapshotLatency  Histogram

	// Error metrics
	Rejected     Counter
	Unauthorized Counter
	StoreErrors  Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Membership metrics
		MembershipPurchased: factory.Counter("membership.purchased"),
		MembershipRenewed:   factory.Counter("membership.renewed"),
		MembershipUpgraded:  factory.Counter("membership.upgraded"),
		DetailsChanged:      factory.Counter("membership.details_changed"),
		MembershipRevoked:   factory.Counter("membership.revoked"),

		// Catalog metrics
		FeeChanged:     factory.Counter("membership.tier.fee_changed"),
		TierActivated:  factory.Counter("membership.tier.activated"),
		TierDeactivate: factory.Counter("membership.tier.deactivated"),

		// Treasury metrics
		RevenueCollected: factory.Counter("membership.treasury.collected_minor_units"),
		FundsWithdrawn:   factory.Counter("membership.treasury.withdrawals"),
		WithdrawalAmount: factory.Histogram("membership.treasury.withdrawal_minor_units"),

		// Journal metrics
		EntriesCommitted: factory.Counter("membership.journal.entries"),
		CommitLatency:    factory.Histogram("membership.journal.commit.latency_ms"),
		SnapshotsSaved:   factory.Counter("membership.snapshot.saved"),
		SnapshotLatency:  factory.Histogram("membership.snapshot.latency_ms"),

		// Error metrics
		Rejected:     factory.Counter("membership.operation.rejected"),
		Unauthorized: factory.Counter("membership.operation.unauthorized"),
		StoreErrors:  factory.Counter("membership.store.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Membership hooks
// ──────────────────────────────────────────────────

// OnMembershipPurchased implements plugin.OnMembershipPurchased.
func (m *MetricsExtension) OnMembershipPurchased(_ context.Context, _ member.Record, paid types.Money) error {
	m.MembershipPurchased.Inc()
	m.RevenueCollected.Add(float64(paid.Amount))
	return nil
}

// OnMembershipRenewed implements plugin.OnMembershipRenewed.
func (m *MetricsExtension) OnMembershipRenewed(_ context.Context, _ member.Record, paid types.Money) error {
	m.MembershipRenewed.Inc()
	m.RevenueCollected.Add(float64(paid.Amount))
	return nil
}

// OnMembershipUpgraded implements plugin.OnMembershipUpgraded.
func (m *MetricsExtension) OnMembershipUpgraded(_ context.Context, _ member.Record, _ tier.Tier, paid types.Money) error {
	m.MembershipUpgraded.Inc()
	m.RevenueCollected.Add(float64(paid.Amount))
	return nil
}

// OnDetailsChanged implements plugin.OnDetailsChanged.
func (m *MetricsExtension) OnDetailsChanged(_ context.Context, _ member.Record) error {
	m.DetailsChanged.Inc()
	return nil
}

// OnMembershipRevoked implements plugin.OnMembershipRevoked.
func (m *MetricsExtension) OnMembershipRevoked(_ context.Context, _ member.Record) error {
	m.MembershipRevoked.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Catalog hooks
// ──────────────────────────────────────────────────

// OnFeeChanged implements plugin.OnFeeChanged.
func (m *MetricsExtension) OnFeeChanged(_ context.Context, _ tier.Plan) error {
	m.FeeChanged.Inc()
	return nil
}

// OnTierStatusChanged implements plugin.OnTierStatusChanged.
func (m *MetricsExtension) OnTierStatusChanged(_ context.Context, plan tier.Plan) error {
	if plan.Active {
		m.TierActivated.Inc()
	} else {
		m.TierDeactivate.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Treasury hooks
// ──────────────────────────────────────────────────

// OnFundsWithdrawn implements plugin.OnFundsWithdrawn.
func (m *MetricsExtension) OnFundsWithdrawn(_ context.Context, w treasury.Withdrawal) error {
	m.FundsWithdrawn.Inc()
	m.WithdrawalAmount.Observe(float64(w.Amount.Amount))
	return nil
}

// ──────────────────────────────────────────────────
// Journal hooks
// ──────────────────────────────────────────────────

// OnEntryCommitted implements plugin.OnEntryCommitted.
func (m *MetricsExtension) OnEntryCommitted(_ context.Context, _ *journal.Entry, elapsed time.Duration) error {
	m.EntriesCommitted.Inc()
	m.CommitLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnOperationRejected implements plugin.OnOperationRejected.
func (m *MetricsExtension) OnOperationRejected(_ context.Context, _ string, _ member.Address, err error) error {
	m.Rejected.Inc()
	switch {
	case membership.IsCallerError(err):
		if errors.Is(err, membership.ErrUnauthorized) {
			m.Unauthorized.Inc()
		}
	default:
		m.StoreErrors.Inc()
	}
	return nil
}

// OnSnapshotSaved implements plugin.OnSnapshotSaved.
func (m *MetricsExtension) OnSnapshotSaved(_ context.Context, _ uint64, elapsed time.Duration) error {
	m.SnapshotsSaved.Inc()
	m.SnapshotLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}
