package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultKey guards the low-stock evaluation.
	DefaultKey = "stockwatch:lowstock:lock"
	defaultTTL = 5 * time.Minute
)

// ReleaseFunc gives up a held lock.
type ReleaseFunc func(ctx context.Context) error

// Locker coordinates exclusive evaluator runs. ok is false when another
// holder owns the lock; that is not an error.
type Locker interface {
	Acquire(ctx context.Context) (release ReleaseFunc, ok bool, err error)
}

// obtainer is the subset of *redislock.Client used here.
type obtainer interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// RedisLocker holds a TTL-bounded Redis lock so overlapping triggers across
// instances skip instead of double-sending.
type RedisLocker struct {
	client obtainer
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisLocker wraps an existing redis client.
func NewRedisLocker(rdb redis.UniversalClient, key string, ttl time.Duration, logger *zap.Logger) (*RedisLocker, error) {
	if rdb == nil {
		return nil, errors.New("redis client required for lock")
	}
	return newRedisLocker(redislock.New(rdb), key, ttl, logger), nil
}

func newRedisLocker(client obtainer, key string, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if key == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{client: client, key: key, ttl: ttl, logger: logger}
}

// Acquire tries to own the lock for the configured TTL.
func (l *RedisLocker) Acquire(ctx context.Context) (ReleaseFunc, bool, error) {
	held, err := l.client.Obtain(ctx, l.key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("obtain lock %s: %w", l.key, err)
	}

	release := func(ctx context.Context) error {
		if err := held.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return fmt.Errorf("release lock %s: %w", l.key, err)
		}
		return nil
	}
	l.logger.Debug("lock obtained", zap.String("key", l.key), zap.Duration("ttl", l.ttl))
	return release, true, nil
}

// LocalLocker serializes runs within a single process.
type LocalLocker struct {
	mu sync.Mutex
}

// NewLocalLocker returns an unlocked in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{}
}

// Acquire never blocks.
func (l *LocalLocker) Acquire(context.Context) (ReleaseFunc, bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	var once sync.Once
	return func(context.Context) error {
		once.Do(l.mu.Unlock)
		return nil
	}, true, nil
}
