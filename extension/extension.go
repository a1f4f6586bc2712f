// Package extension provides the Forge extension adapter for the
// membership ledger.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.membership" or
// "membership" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/membership"
	"github.com/xraph/membership/member"
	"github.com/xraph/membership/store"
	"github.com/xraph/membership/store/memory"
	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "membership"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Tiered subscription ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the membership ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *membership.Ledger
	store      store.Store
	ledgerOpts []membership.Option
}

// New creates a new membership Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *membership.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	cfg, err := e.ledgerConfig()
	if err != nil {
		return err
	}

	eng, err := membership.New(e.store, cfg, e.buildLedgerOpts()...)
	if err != nil {
		return err
	}
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*membership.Ledger, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("membership: extension not initialized")
	}

	if !e.config.DisableStart {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("membership: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildLedgerOpts constructs membership.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() []membership.Option {
	opts := make([]membership.Option, 0, len(e.ledgerOpts)+1)

	opts = append(opts, membership.WithSnapshotConfig(e.config.SnapshotEvery, e.config.SnapshotInterval))

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts
}

// ledgerConfig converts the extension config into the engine's Config.
// Tiers without a configured plan keep the default one.
func (e *Extension) ledgerConfig() (membership.Config, error) {
	owner, err := member.ParseAddress(e.config.Owner)
	if err != nil {
		return membership.Config{}, fmt.Errorf("membership: owner: %w", err)
	}

	currency := strings.ToLower(e.config.Currency)
	plans, err := BuildPlans(currency, e.config.Plans)
	if err != nil {
		return membership.Config{}, err
	}

	return membership.Config{
		Owner:      owner,
		Currency:   currency,
		Plans:      plans,
		MaxPeriods: e.config.MaxPeriods,
	}, nil
}

// BuildPlans overlays configured plans on the default catalog.
func BuildPlans(currency string, configured []PlanConfig) ([]tier.Plan, error) {
	plans := tier.DefaultPlans(currency)
	for _, pc := range configured {
		t, err := tier.Parse(pc.Tier)
		if err != nil {
			return nil, fmt.Errorf("membership: plan: %w", err)
		}
		duration := pc.Duration
		if duration == 0 {
			duration = tier.Quarter
		}
		plans[t] = tier.Plan{
			Tier:     t,
			Fee:      types.New(pc.Fee, currency),
			Duration: duration,
			Active:   !pc.Inactive,
		}
	}
	return plans, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("membership: configuration is required but not found in config files; " +
				"ensure 'extensions.membership' or 'membership' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("membership: configuration loaded",
		forge.F("owner", e.config.Owner),
		forge.F("currency", e.config.Currency),
		forge.F("plans", len(e.config.Plans)),
		forge.F("max_periods", e.config.MaxPeriods),
		forge.F("snapshot_every", e.config.SnapshotEvery),
		forge.F("snapshot_interval", e.config.SnapshotInterval),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.membership" first (namespaced pattern).
	if cm.IsSet("extensions.membership") {
		if err := cm.Bind("extensions.membership", &cfg); err == nil {
			e.Logger().Debug("membership: loaded config from file",
				forge.F("key", "extensions.membership"),
			)
			return cfg, true
		}
		e.Logger().Warn("membership: failed to bind extensions.membership config",
			forge.F("error", "bind failed"),
		)
	}

	// Try short "membership" key.
	if cm.IsSet("membership") {
		if err := cm.Bind("membership", &cfg); err == nil {
			e.Logger().Debug("membership: loaded config from file",
				forge.F("key", "membership"),
			)
			return cfg, true
		}
		e.Logger().Warn("membership: failed to bind membership config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
// MaxPeriods has no zero fill: zero is a meaningful "no cap".
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Currency == "" {
		cfg.Currency = defaults.Currency
	}
	if cfg.SnapshotEvery == 0 {
		cfg.SnapshotEvery = defaults.SnapshotEvery
	}
	if cfg.SnapshotInterval == 0 {
		cfg.SnapshotInterval = defaults.SnapshotInterval
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableStart {
		yamlConfig.DisableStart = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Owner == "" {
		yamlConfig.Owner = programmaticConfig.Owner
	}
	if yamlConfig.Currency == "" {
		yamlConfig.Currency = programmaticConfig.Currency
	}
	if len(yamlConfig.Plans) == 0 {
		yamlConfig.Plans = programmaticConfig.Plans
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.MaxPeriods == 0 {
		yamlConfig.MaxPeriods = programmaticConfig.MaxPeriods
	}
	if yamlConfig.SnapshotEvery == 0 {
		yamlConfig.SnapshotEvery = programmaticConfig.SnapshotEvery
	}
	if yamlConfig.SnapshotInterval == 0 {
		yamlConfig.SnapshotInterval = programmaticConfig.SnapshotInterval
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
