package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/membership/id"
	"github.com/xraph/membership/journal"
	"github.com/xraph/membership/lock"
	"github.com/xraph/membership/plugin"
	"github.com/xraph/membership/store"
)

// Ledger is the membership engine. It keeps an in-memory projection of the
// journal for reads and funnels every mutation through a single serialized
// commit step.
type Ledger struct {
	cfg     Config
	store   store.Store
	locker  lock.Locker
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   func() time.Time

	mu      sync.RWMutex
	state   *state
	started bool

	// Background snapshot worker
	snapshotEvery    int
	snapshotInterval time.Duration
	snapshotSeq      uint64 // guarded by mu
	snapshotReq      chan struct{}
	stopChan         chan struct{}
	wg               sync.WaitGroup
}

// New creates a Ledger over s. Call Start before use.
func New(s store.Store, cfg Config, opts ...Option) (*Ledger, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	l := &Ledger{
		cfg:              cfg,
		store:            s,
		locker:           lock.NewLocal(),
		plugins:          plugin.NewRegistry(),
		logger:           slog.Default(),
		clock:            time.Now,
		state:            newState(),
		snapshotEvery:    500,
		snapshotInterval: time.Minute,
		snapshotReq:      make(chan struct{}, 1),
		stopChan:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithLocker replaces the in-process writer lock, e.g. with lock.NewRedis
// when several processes share one store.
func WithLocker(locker lock.Locker) Option {
	return func(l *Ledger) {
		l.locker = locker
	}
}

// WithClock sets the time source used for expiry arithmetic.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.clock = now
	}
}

// WithSnapshotConfig sets how often state snapshots are written: after
// every n committed entries or every interval, whichever comes first.
// n <= 0 disables the count trigger.
func WithSnapshotConfig(n int, interval time.Duration) Option {
	return func(l *Ledger) {
		l.snapshotEvery = n
		l.snapshotInterval = interval
	}
}

func (l *Ledger) now() time.Time { return l.clock().UTC() }

// Start migrates the store, restores state from the latest snapshot and
// the journal tail, writes the genesis entry on an empty journal and
// starts the snapshot worker.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	if err := l.restore(ctx); err != nil {
		return err
	}

	if err := l.bootstrap(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	l.started = true
	seq := l.state.seq
	l.mu.Unlock()

	l.plugins.EmitInit(ctx, l)

	l.wg.Add(1)
	go l.snapshotWorker(context.WithoutCancel(ctx))

	l.logger.Info("membership ledger started",
		"owner", l.cfg.Owner,
		"currency", l.cfg.Currency,
		"sequence", seq,
		"snapshot_every", l.snapshotEvery,
		"snapshot_interval", l.snapshotInterval,
	)

	return nil
}

// Stop flushes a final snapshot, notifies plugins and closes the store.
func (l *Ledger) Stop() error {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return l.store.Close()
	}
	l.started = false
	l.mu.Unlock()

	close(l.stopChan)
	l.wg.Wait()

	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	return l.store.Close()
}

// Sync applies entries appended by other processes since the last read.
func (l *Ledger) Sync(ctx context.Context) error {
	lease, err := l.locker.Acquire(ctx)
	if err != nil {
		return err
	}
	defer l.release(ctx, lease)

	return l.catchUp(ctx)
}

// restore loads the latest snapshot, if any, and replays later entries.
func (l *Ledger) restore(ctx context.Context) error {
	st := newState()

	snap, err := l.store.LatestSnapshot(ctx)
	switch {
	case err == nil:
		st, err = stateFromSnapshot(snap)
		if err != nil {
			return err
		}
		l.logger.Debug("restored snapshot", "sequence", snap.Sequence, "members", len(snap.Members))
	case errors.Is(err, ErrNotFound):
	default:
		return fmt.Errorf("membership: load snapshot: %w", err)
	}

	l.mu.Lock()
	l.state = st
	l.snapshotSeq = st.seq
	l.mu.Unlock()

	return l.catchUp(ctx)
}

// catchUp applies every journaled entry past the current position.
func (l *Ledger) catchUp(ctx context.Context) error {
	l.mu.RLock()
	after := l.state.seq
	l.mu.RUnlock()

	entries, err := l.store.ListEntries(ctx, journal.ListOpts{After: after})
	if err != nil {
		return fmt.Errorf("membership: read journal: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range entries {
		if _, err := l.state.apply(e); err != nil {
			return err
		}
	}
	l.logger.Debug("applied journal entries", "count", len(entries), "sequence", l.state.seq)
	return nil
}

// bootstrap writes the genesis entry on an empty journal, or checks the
// configured owner and currency against an existing one.
func (l *Ledger) bootstrap(ctx context.Context) error {
	l.mu.RLock()
	initialized := l.state.initialized()
	l.mu.RUnlock()

	if !initialized {
		_, _, err := l.commit(ctx, func(st *state, now time.Time) (*journal.Entry, error) {
			if st.initialized() {
				return nil, errAlreadyInitialized
			}
			return &journal.Entry{
				Kind:     journal.KindGenesis,
				Caller:   l.cfg.Owner,
				Currency: l.cfg.Currency,
				Plans:    l.cfg.Plans,
			}, nil
		})
		switch {
		case err == nil:
			l.logger.Info("journal initialized", "owner", l.cfg.Owner, "currency", l.cfg.Currency)
		case errors.Is(err, errAlreadyInitialized):
			// Another process won the race; its genesis is now applied.
		default:
			return err
		}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if owner := l.state.access.Owner(); owner != l.cfg.Owner {
		return fmt.Errorf("%w: journal owner %q, configured %q", ErrOwnerMismatch, owner, l.cfg.Owner)
	}
	if l.state.currency != l.cfg.Currency {
		return fmt.Errorf("%w: journal currency %q, configured %q", ErrInvalidArgument, l.state.currency, l.cfg.Currency)
	}
	return nil
}

var errAlreadyInitialized = errors.New("membership: journal already initialized")

// builder validates a mutation against the current state and returns the
// entry to append. It must not modify st.
type builder func(st *state, now time.Time) (*journal.Entry, error)

// commit is the only path that changes state: lock, catch up, validate,
// append, apply. If the append fails nothing changes.
func (l *Ledger) commit(ctx context.Context, build builder) (*journal.Entry, effect, error) {
	start := time.Now()

	lease, err := l.locker.Acquire(ctx)
	if err != nil {
		return nil, effect{}, err
	}
	defer l.release(ctx, lease)

	if err := l.catchUp(ctx); err != nil {
		return nil, effect{}, err
	}

	now := l.now()

	l.mu.RLock()
	e, err := build(l.state, now)
	next := l.state.seq + 1
	l.mu.RUnlock()
	if err != nil {
		return nil, effect{}, err
	}

	e.ID = id.NewEntryID()
	e.Sequence = next
	e.RecordedAt = now

	if err := l.store.AppendEntry(ctx, e); err != nil {
		return nil, effect{}, err
	}

	l.mu.Lock()
	fx, err := l.state.apply(e)
	seq := l.state.seq
	l.mu.Unlock()
	if err != nil {
		// The entry is durable but cannot be applied: the projection is
		// now behind the journal and every later commit will fail too.
		l.logger.Error("committed entry could not be applied",
			"sequence", e.Sequence,
			"kind", e.Kind,
			"error", err,
		)
		return nil, effect{}, err
	}

	l.plugins.EmitEntryCommitted(ctx, e, time.Since(start))
	l.maybeRequestSnapshot(seq)

	return e, fx, nil
}

func (l *Ledger) release(ctx context.Context, lease lock.Lease) {
	if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
		l.logger.Warn("failed to release writer lock", "error", err)
	}
}

// ensureStarted guards the public API.
func (l *Ledger) ensureStarted() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.started {
		return ErrNotStarted
	}
	return nil
}
