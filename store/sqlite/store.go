// Package sqlite is a single-file Store on grove's SQLite driver, suited
// to the CLI and to single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the sqlite migration executor
	"github.com/xraph/grove/migrate"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/xraph/membership"
	"github.com/xraph/membership/journal"
	"github.com/xraph/membership/snapshot"
	mstore "github.com/xraph/membership/store"
)

// compile-time interface check
var _ mstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DSN returns the connection string for the database file at path. The
// busy timeout lets a second process wait for the writer instead of
// failing with SQLITE_BUSY.
func DSN(path string) string {
	return path + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(30000)",
			"synchronous(NORMAL)",
		},
	}.Encode()
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("membership/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("membership/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Journal Store ====================

// AppendEntry inserts e. The seq primary key turns a lost race into
// membership.ErrConflict.
func (s *Store) AppendEntry(ctx context.Context, e *journal.Entry) error {
	m, err := toEntryModel(e)
	if err != nil {
		return err
	}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: sequence %d", membership.ErrConflict, e.Sequence)
		}
		return fmt.Errorf("membership/sqlite: append entry: %w", err)
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	var models []entryModel
	q := s.sdb.NewSelect(&models).Where("seq > ?", int64(opts.After)) //nolint:gosec // sequence bound

	if !opts.Subject.IsZero() {
		q = q.Where("subject = ?", opts.Subject.String())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	q = q.OrderExpr("seq ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("membership/sqlite: list entries: %w", err)
	}

	result := make([]*journal.Entry, 0, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

func (s *Store) LastSequence(ctx context.Context) (uint64, error) {
	var last int64
	err := s.sdb.NewRaw(`SELECT COALESCE(MAX(seq), 0) FROM membership_journal`).Scan(ctx, &last)
	if err != nil {
		return 0, fmt.Errorf("membership/sqlite: last sequence: %w", err)
	}
	return uint64(last), nil //nolint:gosec // never negative
}

// ==================== Snapshot Store ====================

func (s *Store) SaveSnapshot(ctx context.Context, snap *snapshot.Snapshot) error {
	m, err := toSnapshotModel(snap)
	if err != nil {
		return err
	}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("membership/sqlite: save snapshot: %w", err)
	}
	return nil
}

func (s *Store) LatestSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	m := new(snapshotModel)
	err := s.sdb.NewSelect(m).
		OrderExpr("seq DESC, taken_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, membership.ErrNotFound
		}
		return nil, fmt.Errorf("membership/sqlite: latest snapshot: %w", err)
	}
	return fromSnapshotModel(m)
}

// PruneSnapshots deletes all but the newest keep snapshots.
func (s *Store) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	res, err := s.sdb.NewRaw(`
		DELETE FROM membership_snapshots WHERE id NOT IN (
			SELECT id FROM membership_snapshots ORDER BY seq DESC LIMIT ?
		)`, keep).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("membership/sqlite: prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

// ==================== Helpers ====================

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	// Connections without extended result codes report the primary code.
	return se.Code() == sqlite3.SQLITE_CONSTRAINT
}
