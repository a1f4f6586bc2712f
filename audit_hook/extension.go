// Package audithook bridges membership events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit system. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/membership"
	"github.com/xraph/membership/member"
	"github.com/xraph/membership/plugin"
	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/treasury"
	"github.com/xraph/membership/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnMembershipPurchased = (*Extension)(nil)
	_ plugin.OnMembershipRenewed   = (*Extension)(nil)
	_ plugin.OnMembershipUpgraded  = (*Extension)(nil)
	_ plugin.OnDetailsChanged      = (*Extension)(nil)
	_ plugin.OnMembershipRevoked   = (*Extension)(nil)
	_ plugin.OnFeeChanged          = (*Extension)(nil)
	_ plugin.OnTierStatusChanged   = (*Extension)(nil)
	_ plugin.OnFundsWithdrawn      = (*Extension)(nil)
	_ plugin.OnOperationRejected   = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges membership events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Membership hooks
// ──────────────────────────────────────────────────

// OnMembershipPurchased implements plugin.OnMembershipPurchased.
func (e *Extension) OnMembershipPurchased(ctx context.Context, rec member.Record, paid types.Money) error {
	return e.record(ctx, ActionMembershipPurchased, SeverityInfo, OutcomeSuccess,
		ResourceMember, rec.Address.String(), CategoryMembership, nil,
		"tier", rec.Tier.String(),
		"expiry", rec.Expiry,
		"paid", paid.String(),
	)
}

// OnMembershipRenewed implements plugin.OnMembershipRenewed.
func (e *Extension) OnMembershipRenewed(ctx context.Context, rec member.Record, paid types.Money) error {
	return e.record(ctx, ActionMembershipRenewed, SeverityInfo, OutcomeSuccess,
		ResourceMember, rec.Address.String(), CategoryMembership, nil,
		"tier", rec.Tier.String(),
		"expiry", rec.Expiry,
		"paid", paid.String(),
	)
}

// OnMembershipUpgraded implements plugin.OnMembershipUpgraded.
func (e *Extension) OnMembershipUpgraded(ctx context.Context, rec member.Record, from tier.Tier, paid types.Money) error {
	return e.record(ctx, ActionMembershipUpgraded, SeverityInfo, OutcomeSuccess,
		ResourceMember, rec.Address.String(), CategoryMembership, nil,
		"from", from.String(),
		"to", rec.Tier.String(),
		"expiry", rec.Expiry,
		"paid", paid.String(),
	)
}

// OnDetailsChanged implements plugin.OnDetailsChanged.
// Contact details are personal data and are not copied into the event.
func (e *Extension) OnDetailsChanged(ctx context.Context, rec member.Record) error {
	return e.record(ctx, ActionDetailsChanged, SeverityInfo, OutcomeSuccess,
		ResourceMember, rec.Address.String(), CategoryMembership, nil,
	)
}

// OnMembershipRevoked implements plugin.OnMembershipRevoked.
func (e *Extension) OnMembershipRevoked(ctx context.Context, rec member.Record) error {
	return e.record(ctx, ActionMembershipRevoked, SeverityWarning, OutcomeSuccess,
		ResourceMember, rec.Address.String(), CategoryAccess, nil,
		"tier", rec.Tier.String(),
	)
}

// ──────────────────────────────────────────────────
// Catalog hooks
// ──────────────────────────────────────────────────

// OnFeeChanged implements plugin.OnFeeChanged.
func (e *Extension) OnFeeChanged(ctx context.Context, plan tier.Plan) error {
	return e.record(ctx, ActionFeeChanged, SeverityInfo, OutcomeSuccess,
		ResourceTier, plan.Tier.String(), CategoryCatalog, nil,
		"fee", plan.Fee.String(),
		"duration", plan.Duration.String(),
	)
}

// OnTierStatusChanged implements plugin.OnTierStatusChanged.
func (e *Extension) OnTierStatusChanged(ctx context.Context, plan tier.Plan) error {
	return e.record(ctx, ActionTierStatusChanged, SeverityInfo, OutcomeSuccess,
		ResourceTier, plan.Tier.String(), CategoryCatalog, nil,
		"active", plan.Active,
	)
}

// ──────────────────────────────────────────────────
// Treasury hooks
// ──────────────────────────────────────────────────

// OnFundsWithdrawn implements plugin.OnFundsWithdrawn.
func (e *Extension) OnFundsWithdrawn(ctx context.Context, w treasury.Withdrawal) error {
	return e.record(ctx, ActionFundsWithdrawn, SeverityWarning, OutcomeSuccess,
		ResourceTreasury, w.EntryID.String(), CategoryPayment, nil,
		"to", w.To,
		"amount", w.Amount.String(),
		"sequence", w.Sequence,
	)
}

// OnOperationRejected implements plugin.OnOperationRejected.
// Authorization failures are recorded at a higher severity.
func (e *Extension) OnOperationRejected(ctx context.Context, op string, caller member.Address, err error) error {
	severity := SeverityInfo
	category := CategoryMembership
	switch {
	case errors.Is(err, membership.ErrUnauthorized):
		severity = SeverityCritical
		category = CategoryAccess
	case !membership.IsCallerError(err):
		severity = SeverityError
	}
	return e.record(ctx, ActionOperationRejected, severity, OutcomeFailure,
		ResourceMember, caller.String(), category, err,
		"op", op,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
