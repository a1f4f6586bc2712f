package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/membership"
	audithook "github.com/xraph/membership/audit_hook"
	"github.com/xraph/membership/lock"
	"github.com/xraph/membership/member"
	"github.com/xraph/membership/observability"
	"github.com/xraph/membership/store/sqlite"
)

// app carries the resolved global flags into every subcommand.
type app struct {
	configPath string
	dbPath     string
	logLevel   string
	logFormat  string
	as         string
	auditPath  string
	metricsOut string

	cfg    fileConfig
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "membershipctl",
		Short:         "Operate a tiered membership ledger",
		Long:          `membershipctl runs membership operations against a journal stored in a local SQLite database.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "TOML config file")
	flags.StringVar(&a.dbPath, "db", "", "SQLite database path (default "+defaultDatabase+")")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	flags.StringVar(&a.as, "as", "", "address the operation is performed as")
	flags.StringVar(&a.auditPath, "audit-log", "", "append audit events as JSON lines to this file")
	flags.StringVar(&a.metricsOut, "metrics-textfile", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		a.plansCmd(),
		a.purchaseCmd(),
		a.renewCmd(),
		a.upgradeCmd(),
		a.detailsCmd(),
		a.setFeeCmd(),
		a.setActiveCmd(),
		a.revokeCmd(),
		a.withdrawCmd(),
		a.memberCmd(),
		a.membersCmd(),
		a.balanceCmd(),
		a.historyCmd(),
		a.compactCmd(),
		a.versionCmd(),
	)
	return root
}

// setup resolves the configuration. Flags win over the file, the file
// wins over the environment.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database = a.dbPath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.Log)
	return nil
}

// caller returns the --as address.
func (a *app) caller() (member.Address, error) {
	addr, err := member.ParseAddress(a.as)
	if err != nil {
		return "", errors.New("--as is required for this command")
	}
	return addr, nil
}

// openStore opens the SQLite database named by the config, creating its
// directory first.
func (a *app) openStore(ctx context.Context) (*sqlite.Store, error) {
	if dir := filepath.Dir(a.cfg.Database); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	drv := sqlitedriver.New()
	// One connection keeps sequence checks and inserts on the same writer.
	if err := drv.Open(ctx, sqlite.DSN(a.cfg.Database), driver.WithPoolSize(1)); err != nil {
		return nil, err
	}
	db, err := grove.Open(drv)
	if err != nil {
		_ = drv.Close()
		return nil, err
	}
	return sqlite.New(db), nil
}

// withLedger opens the store, starts a ledger, runs fn and shuts
// everything down again.
func (a *app) withLedger(cmd *cobra.Command, fn func(ctx context.Context, l *membership.Ledger) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := a.cfg.ledgerConfig()
	if err != nil {
		return err
	}

	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	opts := []membership.Option{membership.WithLogger(a.logger)}

	if a.cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Username: a.cfg.Redis.Username,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		defer rdb.Close()
		opts = append(opts, membership.WithLocker(lock.NewRedis(rdb, a.cfg.Redis.Key)))
	}

	if a.auditPath != "" {
		f, err := os.OpenFile(a.auditPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			_ = s.Close()
			return fmt.Errorf("audit log: %w", err)
		}
		defer f.Close()
		opts = append(opts, membership.WithPlugin(
			audithook.New(jsonLinesRecorder(f), audithook.WithLogger(a.logger)),
		))
	}

	var reg *prometheus.Registry
	if a.metricsOut != "" {
		reg = prometheus.NewRegistry()
		factory := observability.NewPrometheusFactory(reg, "")
		opts = append(opts, membership.WithPlugin(observability.NewMetricsExtension(factory)))
	}

	l, err := membership.New(s, cfg, opts...)
	if err != nil {
		_ = s.Close()
		return err
	}
	if err := l.Start(ctx); err != nil {
		_ = l.Stop()
		return err
	}
	defer func() {
		if stopErr := l.Stop(); stopErr != nil && err == nil {
			err = stopErr
		}
		if reg != nil {
			if werr := prometheus.WriteToTextfile(a.metricsOut, reg); werr != nil && err == nil {
				err = fmt.Errorf("metrics: %w", werr)
			}
		}
	}()

	return fn(ctx, l)
}

// jsonLinesRecorder appends each audit event to w as one JSON document.
func jsonLinesRecorder(w io.Writer) audithook.Recorder {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return audithook.RecorderFunc(func(_ context.Context, event *audithook.AuditEvent) error {
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(event)
	})
}
