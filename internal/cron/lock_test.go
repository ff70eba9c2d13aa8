package cron

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderdesk/pkg/instance"
)

type memStore struct {
	values map[string]string
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}}
}

func (m *memStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (m *memStore) CompareAndDelete(_ context.Context, key, expected string) (bool, error) {
	if m.values[key] != expected {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockIsExclusiveAndOwnerScoped(t *testing.T) {
	store := newMemStore()
	first, err := NewRedisLock(store, "od:lock:reconciler", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "od:lock:reconciler", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second instance acquired a held lock")

	owner, err := second.Holder(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.owner, owner)
	assert.True(t, strings.HasPrefix(owner, instance.GetID()+":"))

	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "od:lock:reconciler", "non-owner released the lock")

	require.NoError(t, first.Release(ctx))
	holder, err := first.Holder(ctx)
	require.NoError(t, err)
	assert.Empty(t, holder)

	ok, _ = second.Acquire(ctx)
	require.True(t, ok)
	holder, _ = first.Holder(ctx)
	assert.Equal(t, second.owner, holder)
}

func TestRedisLockReleaseAfterExpiryLeavesNewOwner(t *testing.T) {
	store := newMemStore()
	stale, _ := NewRedisLock(store, "k", time.Second)
	ctx := context.Background()
	ok, _ := stale.Acquire(ctx)
	require.True(t, ok)

	// lease expired and another instance took it
	store.values["k"] = "other-host:abc"
	require.NoError(t, stale.Release(ctx))
	assert.Equal(t, "other-host:abc", store.values["k"])
	assert.Empty(t, stale.owner)
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "k", 0)
	assert.Error(t, err)
	_, err = NewRedisLock(newMemStore(), "", 0)
	assert.Error(t, err)

	lock, err := NewRedisLock(newMemStore(), "k", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, lock.ttl)
}
