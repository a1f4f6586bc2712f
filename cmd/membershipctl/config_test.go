package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/membership/tier"
)

// clearEnv keeps the developer's environment out of the tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		envOwner, envCurrency, envDatabase, envMaxPeriods,
		envRedisAddr, envRedisPass, envLogLevel, envLogFormat,
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "membership.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "usd", cfg.Currency)
	assert.Equal(t, defaultDatabase, cfg.Database)
	assert.Equal(t, 4, cfg.MaxPeriods)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, defaultLockKey, cfg.Redis.Key)

	_, err = cfg.ledgerConfig()
	assert.ErrorContains(t, err, "owner is not configured")
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(envOwner, "0xfromenv")
	t.Setenv(envLogFormat, "json")

	path := writeConfig(t, `
owner = "0xowner"
currency = "EUR"
max_periods = 8

[[plans]]
tier = "basic"
fee = 1200
duration_days = 30

[[plans]]
tier = "platinum"
fee = 9900
inactive = true

[log]
level = "debug"

[redis]
addr = "localhost:6379"
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "0xowner", cfg.Owner, "file wins over environment")
	assert.Equal(t, "json", cfg.Log.Format, "environment fills keys the file omits")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, defaultLockKey, cfg.Redis.Key)

	lc, err := cfg.ledgerConfig()
	require.NoError(t, err)
	assert.Equal(t, "eur", lc.Currency)
	assert.Equal(t, 8, lc.MaxPeriods)
	require.Len(t, lc.Plans, tier.Count)

	basic := lc.Plans[tier.Basic]
	assert.Equal(t, int64(1200), basic.Fee.Amount)
	assert.Equal(t, "eur", basic.Fee.Currency)
	assert.Equal(t, 30*24*time.Hour, basic.Duration)
	assert.True(t, basic.Active)

	plat := lc.Plans[tier.Platinum]
	assert.Equal(t, tier.Quarter, plat.Duration, "omitted duration falls back to a quarter")
	assert.False(t, plat.Active)

	assert.Equal(t, int64(2000), lc.Plans[tier.Silver].Fee.Amount, "unlisted tiers keep defaults")
}

func TestLoadConfigErrors(t *testing.T) {
	clearEnv(t)

	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = loadConfig(writeConfig(t, "owner = \"o\"\nfee_schedule = 3\n"))
	assert.ErrorContains(t, err, "unknown keys fee_schedule")

	cfg, err := loadConfig(writeConfig(t, "owner = \"o\"\n[[plans]]\ntier = \"diamond\"\n"))
	require.NoError(t, err)
	_, err = cfg.ledgerConfig()
	assert.Error(t, err)

	t.Setenv(envMaxPeriods, "many")
	_, err = loadConfig("")
	assert.ErrorContains(t, err, envMaxPeriods)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), "level %q", tt.in)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, logConfig{Level: "warn", Format: "json"})

	logger.Info("hidden")
	logger.Warn("shown", "tier", "gold")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"tier":"gold"`)
}
