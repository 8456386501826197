package rediskv

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservations/internal/infra/kv"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client), mr
}

func TestNewClientConnects(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := DefaultConfig()
	cfg.Addr = mr.Addr()
	cfg.MaxRetries = 0

	client, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewClientFailsAfterRetries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:1"
	cfg.MaxRetries = 1
	cfg.RetryInterval = 10 * time.Millisecond
	cfg.DialTimeout = 100 * time.Millisecond

	_, err := NewClient(context.Background(), cfg)
	assert.Error(t, err)
}

func TestStoreGetSetTTL(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, kv.ErrNotFound)
	_, err = store.TTL(ctx, "missing")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 30*time.Second))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	ttl, err := store.TTL(ctx, "k")
	require.NoError(t, err)
	assert.InDelta(t, float64(30*time.Second), float64(ttl), float64(time.Second))

	require.NoError(t, store.Set(ctx, "forever", []byte("v"), 0))
	ttl, err = store.TTL(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, kv.NoExpiry, ttl)

	mr.FastForward(31 * time.Second)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestStoreSetNXAndCompareAndDelete(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "lock:listing-book:l1", []byte("t1"), 3*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetNX(ctx, "lock:listing-book:l1", []byte("t2"), 3*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.CompareAndDelete(ctx, "lock:listing-book:l1", []byte("t2"))
	require.NoError(t, err)
	assert.False(t, ok, "foreign token must not release")
	assert.True(t, mr.Exists("lock:listing-book:l1"))

	ok, err = store.CompareAndDelete(ctx, "lock:listing-book:l1", []byte("t1"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists("lock:listing-book:l1"))

	ok, err = store.SetNX(ctx, "lock:listing-book:l1", []byte("t3"), 3*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	mr.FastForward(4 * time.Second)
	ok, err = store.SetNX(ctx, "lock:listing-book:l1", []byte("t4"), 3*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock is re-acquirable")
}

func TestStoreDeleteByPrefix(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()
	for i := 0; i < 450; i++ {
		require.NoError(t, mr.Set("booking:/api/v1/bookings/me?page="+strconv.Itoa(i), "x"))
	}
	require.NoError(t, mr.Set("listing:/api/v1/listings", "x"))
	require.NoError(t, mr.Set("booking*literal", "x"))

	n, err := store.DeleteByPrefix(ctx, "booking:")
	require.NoError(t, err)
	assert.Equal(t, 450, n)
	assert.True(t, mr.Exists("listing:/api/v1/listings"))
	assert.True(t, mr.Exists("booking*literal"))

	n, err = store.DeleteByPrefix(ctx, "booking:")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `a\*b\?c\[d\]`, escapeGlob("a*b?c[d]"))
	assert.Equal(t, "listing:", escapeGlob("listing:"))
}
