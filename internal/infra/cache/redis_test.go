package cache

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservations/internal/app/policies"
	"reservations/internal/infra/kv/rediskv"
)

func TestInvalidatorClearsLargeRedisBucket(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewStore(rediskv.New(client), time.Minute, nil)
	ctx := context.Background()

	keys := make([]string, 0, 450)
	for i := 0; i < 450; i++ {
		key := Key(string(policies.BucketBookings), "/api/v1/listings/l"+strconv.Itoa(i)+"/availability", url.Values{})
		require.NoError(t, store.Set(ctx, key, Entry{Status: 200, Body: []byte(`{}`)}, time.Minute))
		keys = append(keys, key)
	}
	listingKey := Key(string(policies.BucketListings), "/api/v1/listings", nil)
	require.NoError(t, store.Set(ctx, listingKey, Entry{Status: 200}, time.Minute))

	NewInvalidator(store, nil).Invalidate(ctx, policies.BucketBookings)

	for _, key := range keys {
		_, ok := store.Get(ctx, key)
		require.False(t, ok, "stale entry %s", key)
	}
	_, ok := store.Get(ctx, listingKey)
	assert.True(t, ok)
}
