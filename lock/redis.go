package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v8"
)

// Default Redis lock tuning.
const (
	DefaultTTL        = 10 * time.Second
	DefaultBackoff    = 25 * time.Millisecond
	DefaultMaxRetries = 200
)

// Redis is a Locker backed by a single Redis key.
type Redis struct {
	locker  *redislock.Client
	key     string
	ttl     time.Duration
	backoff time.Duration
	retries int
}

// RedisOption tunes a Redis locker.
type RedisOption func(*Redis)

// WithTTL sets how long a lease survives without release.
// It must exceed the slowest expected append.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

// WithRetry sets the linear backoff step and the retry cap.
func WithRetry(backoff time.Duration, retries int) RedisOption {
	return func(r *Redis) {
		r.backoff = backoff
		r.retries = retries
	}
}

// NewRedis returns a Locker guarding key on client.
func NewRedis(client *redis.Client, key string, opts ...RedisOption) *Redis {
	r := &Redis{
		locker:  redislock.New(client),
		key:     key,
		ttl:     DefaultTTL,
		backoff: DefaultBackoff,
		retries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire obtains the key, retrying with linear backoff.
func (r *Redis) Acquire(ctx context.Context) (Lease, error) {
	l, err := r.locker.Obtain(ctx, r.key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(r.backoff), r.retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, r.key)
	}
	if err != nil {
		return nil, fmt.Errorf("lock: obtain %s: %w", r.key, err)
	}
	return redisLease{l}, nil
}

type redisLease struct{ l *redislock.Lock }

func (rl redisLease) Release(ctx context.Context) error {
	err := rl.l.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		// Expired before release; the next writer re-syncs from the journal.
		return nil
	}
	return err
}
