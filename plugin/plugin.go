// Package plugin lets observers react to committed membership changes.
// Hooks run after the change is durable; a failing hook is logged and never
// rolls the change back.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/membership/journal"
	"github.com/xraph/membership/member"
	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/treasury"
	"github.com/xraph/membership/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called once the ledger has loaded its state.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Membership hooks
// ──────────────────────────────────────────────────

// OnMembershipPurchased is called after a purchase commits.
type OnMembershipPurchased interface {
	Plugin
	OnMembershipPurchased(ctx context.Context, rec member.Record, paid types.Money) error
}

// OnMembershipRenewed is called after a renewal commits.
type OnMembershipRenewed interface {
	Plugin
	OnMembershipRenewed(ctx context.Context, rec member.Record, paid types.Money) error
}

// OnMembershipUpgraded is called after a tier change commits.
type OnMembershipUpgraded interface {
	Plugin
	OnMembershipUpgraded(ctx context.Context, rec member.Record, from tier.Tier, paid types.Money) error
}

// OnDetailsChanged is called after a member edits name or email.
type OnDetailsChanged interface {
	Plugin
	OnDetailsChanged(ctx context.Context, rec member.Record) error
}

// OnMembershipRevoked is called after the owner revokes a member.
type OnMembershipRevoked interface {
	Plugin
	OnMembershipRevoked(ctx context.Context, rec member.Record) error
}

// ──────────────────────────────────────────────────
// Catalog hooks
// ──────────────────────────────────────────────────

// OnFeeChanged is called after the owner replaces a tier plan.
type OnFeeChanged interface {
	Plugin
	OnFeeChanged(ctx context.Context, plan tier.Plan) error
}

// OnTierStatusChanged is called after a tier is activated or deactivated.
type OnTierStatusChanged interface {
	Plugin
	OnTierStatusChanged(ctx context.Context, plan tier.Plan) error
}

// ──────────────────────────────────────────────────
// Treasury hooks
// ──────────────────────────────────────────────────

// OnFundsWithdrawn is called after the owner drains the treasury.
type OnFundsWithdrawn interface {
	Plugin
	OnFundsWithdrawn(ctx context.Context, w treasury.Withdrawal) error
}

// ──────────────────────────────────────────────────
// Journal hooks
// ──────────────────────────────────────────────────

// OnEntryCommitted is called for every appended entry with the time spent
// between acquiring the writer lock and applying the entry.
type OnEntryCommitted interface {
	Plugin
	OnEntryCommitted(ctx context.Context, e *journal.Entry, elapsed time.Duration) error
}

// OnOperationRejected is called when a mutating operation fails.
type OnOperationRejected interface {
	Plugin
	OnOperationRejected(ctx context.Context, op string, caller member.Address, err error) error
}

// OnSnapshotSaved is called after the background worker persists a snapshot.
type OnSnapshotSaved interface {
	Plugin
	OnSnapshotSaved(ctx context.Context, sequence uint64, elapsed time.Duration) error
}
