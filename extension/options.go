package extension

import (
	"time"

	"github.com/xraph/membership"
	"github.com/xraph/membership/plugin"
	"github.com/xraph/membership/store"
)

// Option configures the membership Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes a membership.Option through to the underlying engine.
func WithLedgerOption(opt membership.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, membership.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithOwner sets the administering address.
func WithOwner(owner string) Option {
	return func(e *Extension) { e.config.Owner = owner }
}

// WithCurrency sets the ledger currency.
func WithCurrency(currency string) Option {
	return func(e *Extension) { e.config.Currency = currency }
}

// WithPlans sets the opening tier catalog.
func WithPlans(plans ...PlanConfig) Option {
	return func(e *Extension) { e.config.Plans = plans }
}

// WithMaxPeriods caps periods per purchase or upgrade.
func WithMaxPeriods(n int) Option {
	return func(e *Extension) { e.config.MaxPeriods = n }
}

// WithSnapshotInterval sets the longest time between snapshots.
func WithSnapshotInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.SnapshotInterval = d }
}

// WithDisableStart keeps the engine stopped when the app starts.
func WithDisableStart() Option {
	return func(e *Extension) { e.config.DisableStart = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
