package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservations/internal/infra/kv"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestKVExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewKV(clock.Now)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Second))
	ttl, err := store.TTL(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, time.Second, ttl)

	clock.Advance(time.Second)
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, kv.ErrNotFound)
	_, err = store.TTL(ctx, "a")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, store.Set(ctx, "b", []byte("2"), 0))
	ttl, err = store.TTL(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, kv.NoExpiry, ttl)
}

func TestKVSetNXAndCompareAndDelete(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := NewKV(clock.Now)
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "lock", []byte("t1"), time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = store.SetNX(ctx, "lock", []byte("t2"), time.Second)
	assert.False(t, ok)

	ok, _ = store.CompareAndDelete(ctx, "lock", []byte("t2"))
	assert.False(t, ok)
	ok, _ = store.CompareAndDelete(ctx, "lock", []byte("t1"))
	assert.True(t, ok)

	require.NoError(t, store.Set(ctx, "lock", []byte("t3"), time.Second))
	clock.Advance(2 * time.Second)
	ok, _ = store.SetNX(ctx, "lock", []byte("t4"), time.Second)
	assert.True(t, ok, "expired key must not block SetNX")
}

func TestKVDeleteByPrefix(t *testing.T) {
	store := NewKV(nil)
	ctx := context.Background()
	for _, k := range []string{"booking:/a", "booking:/b", "listing:/a"} {
		require.NoError(t, store.Set(ctx, k, []byte("x"), time.Minute))
	}

	n, err := store.DeleteByPrefix(ctx, "booking:")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = store.Get(ctx, "booking:/a")
	assert.ErrorIs(t, err, kv.ErrNotFound)
	_, err = store.Get(ctx, "listing:/a")
	assert.NoError(t, err)
}

func TestKVGetReturnsCopy(t *testing.T) {
	store := NewKV(nil)
	ctx := context.Background()
	value := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", value, 0))
	value[0] = 'z'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}
