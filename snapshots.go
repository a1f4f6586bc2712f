package membership

import (
	"context"
	"time"
)

// snapshotWorker persists state snapshots in the background so restarts
// replay only the journal tail.
func (l *Ledger) snapshotWorker(ctx context.Context) {
	defer l.wg.Done()

	var tick <-chan time.Time
	if l.snapshotInterval > 0 {
		ticker := time.NewTicker(l.snapshotInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-l.stopChan:
			// Final snapshot
			l.saveSnapshot(ctx)
			return

		case <-l.snapshotReq:
			l.saveSnapshot(ctx)

		case <-tick:
			l.saveSnapshot(ctx)
		}
	}
}

// maybeRequestSnapshot wakes the worker once enough entries accumulated
// since the last snapshot.
func (l *Ledger) maybeRequestSnapshot(seq uint64) {
	if l.snapshotEvery <= 0 {
		return
	}

	l.mu.RLock()
	behind := seq - l.snapshotSeq
	l.mu.RUnlock()

	if behind < uint64(l.snapshotEvery) {
		return
	}
	select {
	case l.snapshotReq <- struct{}{}:
	default:
	}
}

// saveSnapshot writes the current state if it moved since the last one.
func (l *Ledger) saveSnapshot(ctx context.Context) {
	l.mu.RLock()
	if !l.state.initialized() || l.state.seq == l.snapshotSeq {
		l.mu.RUnlock()
		return
	}
	snap := l.state.toSnapshot()
	l.mu.RUnlock()

	start := time.Now()
	snap.TakenAt = l.now()

	if err := l.store.SaveSnapshot(ctx, snap); err != nil {
		l.logger.Error("failed to save snapshot",
			"error", err,
			"sequence", snap.Sequence,
		)
		return
	}

	l.mu.Lock()
	if snap.Sequence > l.snapshotSeq {
		l.snapshotSeq = snap.Sequence
	}
	l.mu.Unlock()

	elapsed := time.Since(start)
	l.plugins.EmitSnapshotSaved(ctx, snap.Sequence, elapsed)

	l.logger.Debug("saved snapshot",
		"sequence", snap.Sequence,
		"members", len(snap.Members),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}
