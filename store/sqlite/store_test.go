package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/membership/store/sqlite"
	"github.com/xraph/membership/store/storetest"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	drv := sqlitedriver.New()
	dsn := sqlite.DSN(filepath.Join(t.TempDir(), "membership.db"))
	if err := drv.Open(context.Background(), dsn, driver.WithPoolSize(1)); err != nil {
		t.Fatalf("Open: %v", err)
	}
	db, err := grove.Open(drv)
	if err != nil {
		t.Fatalf("grove.Open: %v", err)
	}
	s := sqlite.New(db)
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, openStore(t))
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestPruneSnapshots(t *testing.T) {
	s := openStore(t)
	storetest.Run(t, s)

	n, err := s.PruneSnapshots(context.Background(), 1)
	if err != nil {
		t.Fatalf("PruneSnapshots: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}
	snap, err := s.LatestSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if snap.Sequence != 3 {
		t.Errorf("kept sequence %d, want 3", snap.Sequence)
	}
}
