package extension

import "time"

// Config holds the membership extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.membership" or "membership" keys).
type Config struct {
	// Owner is the address allowed to administer the ledger. Required.
	Owner string `json:"owner" mapstructure:"owner" yaml:"owner"`

	// Currency all fees are denominated in (default: "usd").
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`

	// Plans is the opening tier catalog. Only used when the journal is
	// empty; omitted tiers get the default plan.
	Plans []PlanConfig `json:"plans" mapstructure:"plans" yaml:"plans"`

	// MaxPeriods caps periods per purchase or upgrade (default: 4, 0 = no cap).
	MaxPeriods int `json:"max_periods" mapstructure:"max_periods" yaml:"max_periods"`

	// SnapshotEvery is the number of journal entries between snapshots
	// (default: 500).
	SnapshotEvery int `json:"snapshot_every" mapstructure:"snapshot_every" yaml:"snapshot_every"`

	// SnapshotInterval is the longest time between snapshots (default: 1m).
	SnapshotInterval time.Duration `json:"snapshot_interval" mapstructure:"snapshot_interval" yaml:"snapshot_interval"`

	// DisableStart prevents the ledger from starting with the app. The
	// engine is still registered; the caller starts it.
	DisableStart bool `json:"disable_start" mapstructure:"disable_start" yaml:"disable_start"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// PlanConfig is one tier plan as written in configuration files.
type PlanConfig struct {
	Tier     string        `json:"tier" mapstructure:"tier" yaml:"tier"`
	Fee      int64         `json:"fee" mapstructure:"fee" yaml:"fee"`
	Duration time.Duration `json:"duration" mapstructure:"duration" yaml:"duration"`
	Inactive bool          `json:"inactive" mapstructure:"inactive" yaml:"inactive"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Currency:         "usd",
		MaxPeriods:       4,
		SnapshotEvery:    500,
		SnapshotInterval: time.Minute,
	}
}
