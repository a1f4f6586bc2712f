// Package lock serializes ledger writers.
//
// A single process uses Local. Several processes sharing one store use
// Redis so that only one of them validates and appends at a time.
package lock

import (
	"context"
	"errors"
)

// ErrNotObtained is returned when the lock could not be acquired within
// the configured retry budget.
var ErrNotObtained = errors.New("lock: not obtained")

// Locker hands out exclusive leases.
type Locker interface {
	Acquire(ctx context.Context) (Lease, error)
}

// Lease is a held lock.
type Lease interface {
	Release(ctx context.Context) error
}

// Local is an in-process Locker. Acquire honours context cancellation.
type Local struct {
	sem chan struct{}
}

// NewLocal returns an unlocked Local.
func NewLocal() *Local {
	return &Local{sem: make(chan struct{}, 1)}
}

// Acquire blocks until the lock is free or ctx is done.
func (l *Local) Acquire(ctx context.Context) (Lease, error) {
	select {
	case l.sem <- struct{}{}:
		return localLease{l}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type localLease struct{ l *Local }

func (ll localLease) Release(context.Context) error {
	<-ll.l.sem
	return nil
}
