package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/membership/journal"
	"github.com/xraph/membership/member"
	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/treasury"
	"github.com/xraph/membership/types"
)

// DefaultHookTimeout bounds a single hook invocation.
const DefaultHookTimeout = 5 * time.Second

// Registry manages registered plugins. Hook implementations are discovered
// once at registration so dispatch is a slice walk.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit                []OnInit
	onShutdown            []OnShutdown
	onMembershipPurchased []OnMembershipPurchased
	onMembershipRenewed   []OnMembershipRenewed
	onMembershipUpgraded  []OnMembershipUpgraded
	onDetailsChanged      []OnDetailsChanged
	onMembershipRevoked   []OnMembershipRevoked
	onFeeChanged          []OnFeeChanged
	onTierStatusChanged   []OnTierStatusChanged
	onFundsWithdrawn      []OnFundsWithdrawn
	onEntryCommitted      []OnEntryCommitted
	onOperationRejected   []OnOperationRejected
	onSnapshotSaved       []OnSnapshotSaved
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin and caches the hooks it implements.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}
	r.plugins = append(r.plugins, p)

	var hooks []string
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnMembershipPurchased); ok {
		r.onMembershipPurchased = append(r.onMembershipPurchased, v)
		hooks = append(hooks, "OnMembershipPurchased")
	}
	if v, ok := p.(OnMembershipRenewed); ok {
		r.onMembershipRenewed = append(r.onMembershipRenewed, v)
		hooks = append(hooks, "OnMembershipRenewed")
	}
	if v, ok := p.(OnMembershipUpgraded); ok {
		r.onMembershipUpgraded = append(r.onMembershipUpgraded, v)
		hooks = append(hooks, "OnMembershipUpgraded")
	}
	if v, ok := p.(OnDetailsChanged); ok {
		r.onDetailsChanged = append(r.onDetailsChanged, v)
		hooks = append(hooks, "OnDetailsChanged")
	}
	if v, ok := p.(OnMembershipRevoked); ok {
		r.onMembershipRevoked = append(r.onMembershipRevoked, v)
		hooks = append(hooks, "OnMembershipRevoked")
	}
	if v, ok := p.(OnFeeChanged); ok {
		r.onFeeChanged = append(r.onFeeChanged, v)
		hooks = append(hooks, "OnFeeChanged")
	}
	if v, ok := p.(OnTierStatusChanged); ok {
		r.onTierStatusChanged = append(r.onTierStatusChanged, v)
		hooks = append(hooks, "OnTierStatusChanged")
	}
	if v, ok := p.(OnFundsWithdrawn); ok {
		r.onFundsWithdrawn = append(r.onFundsWithdrawn, v)
		hooks = append(hooks, "OnFundsWithdrawn")
	}
	if v, ok := p.(OnEntryCommitted); ok {
		r.onEntryCommitted = append(r.onEntryCommitted, v)
		hooks = append(hooks, "OnEntryCommitted")
	}
	if v, ok := p.(OnOperationRejected); ok {
		r.onOperationRejected = append(r.onOperationRejected, v)
		hooks = append(hooks, "OnOperationRejected")
	}
	if v, ok := p.(OnSnapshotSaved); ok {
		r.onSnapshotSaved = append(r.onSnapshotSaved, v)
		hooks = append(hooks, "OnSnapshotSaved")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"hooks", hooks,
	)
	return nil
}

// Get returns a plugin by name, or nil.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins in registration order.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission
// ──────────────────────────────────────────────────

// EmitInit calls OnInit on every plugin that implements it.
func (r *Registry) EmitInit(ctx context.Context, l interface{}) {
	emit(ctx, r, "OnInit", loaded(r, &r.onInit), func(p OnInit) error {
		return p.OnInit(ctx, l)
	})
}

// EmitShutdown calls OnShutdown on every plugin that implements it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", loaded(r, &r.onShutdown), func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitMembershipPurchased dispatches OnMembershipPurchased.
func (r *Registry) EmitMembershipPurchased(ctx context.Context, rec member.Record, paid types.Money) {
	emit(ctx, r, "OnMembershipPurchased", loaded(r, &r.onMembershipPurchased), func(p OnMembershipPurchased) error {
		return p.OnMembershipPurchased(ctx, rec, paid)
	})
}

// EmitMembershipRenewed dispatches OnMembershipRenewed.
func (r *Registry) EmitMembershipRenewed(ctx context.Context, rec member.Record, paid types.Money) {
	emit(ctx, r, "OnMembershipRenewed", loaded(r, &r.onMembershipRenewed), func(p OnMembershipRenewed) error {
		return p.OnMembershipRenewed(ctx, rec, paid)
	})
}

// EmitMembershipUpgraded dispatches OnMembershipUpgraded.
func (r *Registry) EmitMembershipUpgraded(ctx context.Context, rec member.Record, from tier.Tier, paid types.Money) {
	emit(ctx, r, "OnMembershipUpgraded", loaded(r, &r.onMembershipUpgraded), func(p OnMembershipUpgraded) error {
		return p.OnMembershipUpgraded(ctx, rec, from, paid)
	})
}

// EmitDetailsChanged dispatches OnDetailsChanged.
func (r *Registry) EmitDetailsChanged(ctx context.Context, rec member.Record) {
	emit(ctx, r, "OnDetailsChanged", loaded(r, &r.onDetailsChanged), func(p OnDetailsChanged) error {
		return p.OnDetailsChanged(ctx, rec)
	})
}

// EmitMembershipRevoked dispatches OnMembershipRevoked.
func (r *Registry) EmitMembershipRevoked(ctx context.Context, rec member.Record) {
	emit(ctx, r, "OnMembershipRevoked", loaded(r, &r.onMembershipRevoked), func(p OnMembershipRevoked) error {
		return p.OnMembershipRevoked(ctx, rec)
	})
}

// EmitFeeChanged dispatches OnFeeChanged.
func (r *Registry) EmitFeeChanged(ctx context.Context, plan tier.Plan) {
	emit(ctx, r, "OnFeeChanged", loaded(r, &r.onFeeChanged), func(p OnFeeChanged) error {
		return p.OnFeeChanged(ctx, plan)
	})
}

// EmitTierStatusChanged dispatches OnTierStatusChanged.
func (r *Registry) EmitTierStatusChanged(ctx context.Context, plan tier.Plan) {
	emit(ctx, r, "OnTierStatusChanged", loaded(r, &r.onTierStatusChanged), func(p OnTierStatusChanged) error {
		return p.OnTierStatusChanged(ctx, plan)
	})
}

// EmitFundsWithdrawn dispatches OnFundsWithdrawn.
func (r *Registry) EmitFundsWithdrawn(ctx context.Context, w treasury.Withdrawal) {
	emit(ctx, r, "OnFundsWithdrawn", loaded(r, &r.onFundsWithdrawn), func(p OnFundsWithdrawn) error {
		return p.OnFundsWithdrawn(ctx, w)
	})
}

// EmitEntryCommitted dispatches OnEntryCommitted.
func (r *Registry) EmitEntryCommitted(ctx context.Context, e *journal.Entry, elapsed time.Duration) {
	emit(ctx, r, "OnEntryCommitted", loaded(r, &r.onEntryCommitted), func(p OnEntryCommitted) error {
		return p.OnEntryCommitted(ctx, e, elapsed)
	})
}

// EmitOperationRejected dispatches OnOperationRejected.
func (r *Registry) EmitOperationRejected(ctx context.Context, op string, caller member.Address, err error) {
	emit(ctx, r, "OnOperationRejected", loaded(r, &r.onOperationRejected), func(p OnOperationRejected) error {
		return p.OnOperationRejected(ctx, op, caller, err)
	})
}

// EmitSnapshotSaved dispatches OnSnapshotSaved.
func (r *Registry) EmitSnapshotSaved(ctx context.Context, sequence uint64, elapsed time.Duration) {
	emit(ctx, r, "OnSnapshotSaved", loaded(r, &r.onSnapshotSaved), func(p OnSnapshotSaved) error {
		return p.OnSnapshotSaved(ctx, sequence, elapsed)
	})
}

// loaded reads a hook list under the registry lock.
func loaded[T Plugin](r *Registry, list *[]T) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *list
}

// emit calls fn on each plugin with a timeout and logs failures.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, plugins []T, fn func(T) error) {
	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error { return fn(p) }); err != nil {
			r.logger.Warn("plugin hook failed",
				"hook", hook,
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout runs fn but stops waiting after the registry timeout.
// Hooks must never stall the write path.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
