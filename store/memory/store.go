// Package memory is an in-process Store for tests and single-run tools.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/membership"
	"github.com/xraph/membership/journal"
	"github.com/xraph/membership/snapshot"
	mstore "github.com/xraph/membership/store"
)

// compile-time interface check
var _ mstore.Store = (*Store)(nil)

// Store keeps the journal and snapshots in slices. Entries are deep-copied
// through their encoding so callers cannot alias stored values.
type Store struct {
	mu sync.RWMutex

	// Journal storage, entries[i].Sequence == i+1
	entries [][]byte

	// Snapshot storage, oldest first
	snapshots [][]byte

	closed bool
}

func New() *Store {
	return &Store{}
}

// Journal Store implementation
func (s *Store) AppendEntry(_ context.Context, e *journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return membership.ErrStoreClosed
	}
	if e.Sequence != uint64(len(s.entries))+1 {
		return fmt.Errorf("%w: sequence %d, next free %d", membership.ErrConflict, e.Sequence, len(s.entries)+1)
	}
	data, err := journal.Encode(e)
	if err != nil {
		return err
	}
	s.entries = append(s.entries, data)
	return nil
}

func (s *Store) ListEntries(_ context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, membership.ErrStoreClosed
	}

	var result []*journal.Entry
	for i := int(min(opts.After, uint64(len(s.entries)))); i < len(s.entries); i++ {
		e, err := journal.Decode(s.entries[i])
		if err != nil {
			return nil, err
		}
		if !opts.Subject.IsZero() && !e.Touches(opts.Subject) {
			continue
		}
		result = append(result, e)
		if opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
	}
	return result, nil
}

func (s *Store) LastSequence(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, membership.ErrStoreClosed
	}
	return uint64(len(s.entries)), nil
}

// Snapshot Store implementation
func (s *Store) SaveSnapshot(_ context.Context, snap *snapshot.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return membership.ErrStoreClosed
	}
	data, err := snapshot.Encode(snap)
	if err != nil {
		return err
	}
	s.snapshots = append(s.snapshots, data)
	return nil
}

func (s *Store) LatestSnapshot(_ context.Context) (*snapshot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, membership.ErrStoreClosed
	}

	var latest *snapshot.Snapshot
	for _, data := range s.snapshots {
		snap, err := snapshot.Decode(data)
		if err != nil {
			return nil, err
		}
		if latest == nil || snap.Sequence > latest.Sequence {
			latest = snap
		}
	}
	if latest == nil {
		return nil, membership.ErrNotFound
	}
	return latest, nil
}

// SnapshotCount returns how many snapshots were saved.
func (s *Store) SnapshotCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

// Core Store implementation
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return membership.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Data is retained so a test can inspect it,
// and Reopen makes it usable again to simulate a restart.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Reopen clears the closed flag.
func (s *Store) Reopen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = false
}
