package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/xraph/membership"
	"github.com/xraph/membership/extension"
	"github.com/xraph/membership/member"
)

// Environment variables read before the config file is applied.
const (
	envOwner      = "MEMBERSHIP_OWNER"
	envCurrency   = "MEMBERSHIP_CURRENCY"
	envDatabase   = "MEMBERSHIP_DB"
	envMaxPeriods = "MEMBERSHIP_MAX_PERIODS"
	envRedisAddr  = "MEMBERSHIP_REDIS_ADDR"
	envRedisPass  = "MEMBERSHIP_REDIS_PASSWORD"
	envLogLevel   = "MEMBERSHIP_LOG_LEVEL"
	envLogFormat  = "MEMBERSHIP_LOG_FORMAT"
)

const (
	defaultDatabase = "membership.db"
	defaultLockKey  = "membership:journal"
)

// fileConfig is the TOML layout of --config.
//
//	owner = "0xowner"
//	currency = "usd"
//	max_periods = 4
//
//	[[plans]]
//	tier = "basic"
//	fee = 1000
//	duration_days = 90
//
//	[log]
//	level = "debug"
//	format = "json"
type fileConfig struct {
	Owner      string       `toml:"owner"`
	Currency   string       `toml:"currency"`
	Database   string       `toml:"database"`
	MaxPeriods int          `toml:"max_periods"`
	Plans      []planConfig `toml:"plans"`
	Log        logConfig    `toml:"log"`
	Redis      redisConfig  `toml:"redis"`
}

type planConfig struct {
	Tier         string `toml:"tier"`
	Fee          int64  `toml:"fee"`
	DurationDays int    `toml:"duration_days"`
	Inactive     bool   `toml:"inactive"`
}

type logConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// redisConfig enables the cross-process writer lock when Addr is set.
type redisConfig struct {
	Addr     string `toml:"addr"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Key      string `toml:"key"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Currency:   membership.DefaultCurrency,
		Database:   defaultDatabase,
		MaxPeriods: extension.DefaultConfig().MaxPeriods,
		Log:        logConfig{Level: "info", Format: "text"},
		Redis:      redisConfig{Key: defaultLockKey},
	}
}

// loadConfig layers defaults, the environment and the optional TOML file,
// in that order.
func loadConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

func (c *fileConfig) applyEnv() error {
	if v := os.Getenv(envOwner); v != "" {
		c.Owner = v
	}
	if v := os.Getenv(envCurrency); v != "" {
		c.Currency = v
	}
	if v := os.Getenv(envDatabase); v != "" {
		c.Database = v
	}
	if v := os.Getenv(envMaxPeriods); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envMaxPeriods, err)
		}
		c.MaxPeriods = n
	}
	if v := os.Getenv(envRedisAddr); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(envRedisPass); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(envLogFormat); v != "" {
		c.Log.Format = v
	}
	return nil
}

// ledgerConfig turns the file layout into the engine configuration.
func (c fileConfig) ledgerConfig() (membership.Config, error) {
	owner, err := member.ParseAddress(c.Owner)
	if err != nil {
		return membership.Config{}, errors.New("owner is not configured (set owner in --config or " + envOwner + ")")
	}

	configured := make([]extension.PlanConfig, 0, len(c.Plans))
	for _, p := range c.Plans {
		if p.DurationDays < 0 {
			return membership.Config{}, fmt.Errorf("plan %s: duration_days must not be negative", p.Tier)
		}
		configured = append(configured, extension.PlanConfig{
			Tier:     p.Tier,
			Fee:      p.Fee,
			Duration: time.Duration(p.DurationDays) * 24 * time.Hour,
			Inactive: p.Inactive,
		})
	}
	currency := strings.ToLower(c.Currency)
	plans, err := extension.BuildPlans(currency, configured)
	if err != nil {
		return membership.Config{}, err
	}

	return membership.Config{
		Owner:      owner,
		Currency:   currency,
		Plans:      plans,
		MaxPeriods: c.MaxPeriods,
	}, nil
}
