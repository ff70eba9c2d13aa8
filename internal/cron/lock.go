package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/orderdesk/pkg/instance"
)

const defaultLockTTL = 5 * time.Minute

// Lock keeps reconciler cycles single-flight across instances.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// lockStore is satisfied by *pkg/redis.Client.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
}

// RedisLock is a lease: SETNX with a TTL, released only by its owner. An
// expired lease can be taken over while the old owner is still running.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	owner string
}

// NewRedisLock builds a lease on key. A non-positive ttl uses five minutes.
func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("redis client required for lock")
	case key == "":
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

// Acquire takes the lease under a fresh "<instance>:<uuid>" owner value.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	candidate := fmt.Sprintf("%s:%s", instance.GetID(), uuid.NewString())
	won, err := l.store.SetNX(ctx, l.key, candidate, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if won {
		l.owner = candidate
	}
	return won, nil
}

// Holder returns the current owner value, empty when the lease is free.
func (l *RedisLock) Holder(ctx context.Context) (string, error) {
	owner, err := l.store.Get(ctx, l.key)
	switch {
	case errors.Is(err, redis.Nil):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("read lock owner: %w", err)
	}
	return owner, nil
}

// Release drops the lease if this instance still owns it. Losing the lease to
// expiry is not an error.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	owner := l.owner
	l.owner = ""
	if _, err := l.store.CompareAndDelete(ctx, l.key, owner); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
