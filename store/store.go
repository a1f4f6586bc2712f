// Package store defines the persistence contract of the membership ledger.
package store

import (
	"context"

	"github.com/xraph/membership/journal"
	"github.com/xraph/membership/snapshot"
)

// Store is the unified storage interface. Backends implement the journal
// and snapshot stores against the same database.
type Store interface {
	journal.Store
	snapshot.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
