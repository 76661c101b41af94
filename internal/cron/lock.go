package cron

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 10 * time.Minute

// Lock coordinates exclusive runs of one job across replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LockFactory returns a fresh lock for the named job. A lock value tracks
// its own ownership, so every run gets a new one.
type LockFactory func(job string) (Lock, error)

// lockKeyer names per-job lock keys.
type lockKeyer interface {
	LockKey(env, job string) string
}

type redisLockStore interface {
	redisStore
	lockKeyer
}

// NewRedisLockFactory builds per-job Redis locks under the env's namespace.
func NewRedisLockFactory(client redisLockStore, env string, ttl time.Duration) LockFactory {
	return func(job string) (Lock, error) {
		return NewRedisLock(client, client.LockKey(env, job), ttl)
	}
}

// PeriodClaimer reserves the scheduled run of a job for one interval window.
// It reports false when another replica already took the window.
type PeriodClaimer func(ctx context.Context, job string, window time.Time, interval time.Duration) (bool, error)

// NewRedisPeriodClaimer keeps one marker per job window. Markers expire with
// the window and are never released, so each window runs once across replicas.
func NewRedisPeriodClaimer(client redisLockStore, env string) PeriodClaimer {
	return func(ctx context.Context, job string, window time.Time, interval time.Duration) (bool, error) {
		key := client.LockKey(env, job+":window:"+strconv.FormatInt(window.Unix(), 10))
		ok, err := client.SetNX(ctx, key, uuid.NewString(), interval)
		if err != nil {
			return false, fmt.Errorf("claim window: %w", err)
		}
		return ok, nil
	}
}

// redisStore defines the operations used by RedisLock.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock implements Lock using Redis SETNX + TTL.
type RedisLock struct {
	client redisStore
	key    string
	ttl    time.Duration
	owner  string
}

// NewRedisLock constructs a Redis-backed lock.
func NewRedisLock(client redisStore, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl}, nil
}

// Acquire tries to own the lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release frees the lock only if the owner value still matches.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	value, err := l.client.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != l.owner {
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	l.owner = ""
	return nil
}
