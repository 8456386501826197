package cache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservations/internal/app/policies"
	"reservations/internal/infra/kv"
	"reservations/internal/infra/storage/memory"
)

func TestKeyIgnoresParameterOrder(t *testing.T) {
	a := Key("listing:", "/api/v1/listings", url.Values{"city": {"Paris"}, "page": {"2"}})
	b := Key("listing:", "/api/v1/listings", url.Values{"page": {"2"}, "city": {"Paris"}})
	assert.Equal(t, a, b)
	assert.Equal(t, "listing:/api/v1/listings?city=Paris&page=2", a)
}

func TestKeyWithoutQuery(t *testing.T) {
	assert.Equal(t, "listing:/api/v1/listings/l1", Key("listing:", "/api/v1/listings/l1", nil))
	assert.Equal(t, "listing:/x", Key("listing:", "/x", url.Values{"nocache": {"1"}}))
}

func TestKeySortsRepeatedValues(t *testing.T) {
	a := Key("api:", "/p", url.Values{"tag": {"b", "a"}})
	b := Key("api:", "/p", url.Values{"tag": {"a", "b"}})
	assert.Equal(t, a, b)
	assert.Equal(t, "api:/p?tag=a&tag=b", a)
}

func TestRequestCacheable(t *testing.T) {
	cases := []struct {
		name   string
		method string
		target string
		header http.Header
		want   bool
	}{
		{name: "plain get", method: http.MethodGet, target: "/x", want: true},
		{name: "post", method: http.MethodPost, target: "/x"},
		{name: "authorization", method: http.MethodGet, target: "/x", header: http.Header{"Authorization": {"Bearer t"}}},
		{name: "cookie", method: http.MethodGet, target: "/x", header: http.Header{"Cookie": {"sid=1"}}},
		{name: "no-cache", method: http.MethodGet, target: "/x", header: http.Header{"Cache-Control": {"no-cache"}}},
		{name: "no-store", method: http.MethodGet, target: "/x", header: http.Header{"Cache-Control": {"max-age=0, no-store"}}},
		{name: "pragma", method: http.MethodGet, target: "/x", header: http.Header{"Pragma": {"no-cache"}}},
		{name: "nocache=1", method: http.MethodGet, target: "/x?nocache=1"},
		{name: "nocache=true", method: http.MethodGet, target: "/x?nocache=TRUE"},
		{name: "nocache=0", method: http.MethodGet, target: "/x?nocache=0", want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(tc.method, tc.target, nil)
			for k, v := range tc.header {
				r.Header[k] = v
			}
			assert.Equal(t, tc.want, RequestCacheable(r))
		})
	}
}

func TestStatusCacheable(t *testing.T) {
	assert.True(t, StatusCacheable(200))
	assert.True(t, StatusCacheable(204))
	assert.False(t, StatusCacheable(301))
	assert.False(t, StatusCacheable(404))
	assert.False(t, StatusCacheable(500))
}

func TestStoreTTLCeiling(t *testing.T) {
	s := NewStore(memory.NewKV(nil), 60*time.Second, nil)
	assert.Equal(t, 60*time.Second, s.EffectiveTTL(time.Hour))
	assert.Equal(t, 30*time.Second, s.EffectiveTTL(30*time.Second))
	assert.Equal(t, 60*time.Second, s.EffectiveTTL(0))

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "listing:/a", Entry{Status: 200, Body: []byte("{}")}, time.Hour))
	ttl, ok := s.TTLRemaining(ctx, "listing:/a")
	require.True(t, ok)
	assert.LessOrEqual(t, ttl, 60*time.Second)

	_, ok = s.TTLRemaining(ctx, "listing:/missing")
	assert.False(t, ok)
}

func TestStoreRoundTripAndPrefixDelete(t *testing.T) {
	s := NewStore(memory.NewKV(nil), time.Minute, nil)
	ctx := context.Background()
	entry := Entry{Status: 200, Headers: map[string]string{"Content-Type": "application/json"}, Body: []byte(`{"success":true}`)}

	require.NoError(t, s.Set(ctx, "booking:/a", entry, 0))
	require.NoError(t, s.Set(ctx, "listing:/a", entry, 0))

	got, ok := s.Get(ctx, "booking:/a")
	require.True(t, ok)
	assert.Equal(t, entry, got)

	n, err := s.DeleteByPrefix(ctx, "booking:")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok = s.Get(ctx, "booking:/a")
	assert.False(t, ok)
	_, ok = s.Get(ctx, "listing:/a")
	assert.True(t, ok)
}

type brokenKV struct{ kv.Store }

func (brokenKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (brokenKV) DeleteByPrefix(context.Context, string) (int, error) {
	return 0, errors.New("down")
}

func TestStoreFailuresReadAsMiss(t *testing.T) {
	s := NewStore(brokenKV{}, time.Minute, nil)
	_, ok := s.Get(context.Background(), "x")
	assert.False(t, ok)
}

func TestCorruptEntryIsMiss(t *testing.T) {
	mem := memory.NewKV(nil)
	require.NoError(t, mem.Set(context.Background(), "listing:/a", []byte("not json"), 0))
	s := NewStore(mem, time.Minute, nil)
	_, ok := s.Get(context.Background(), "listing:/a")
	assert.False(t, ok)
}

func TestInvalidator(t *testing.T) {
	mem := memory.NewKV(nil)
	s := NewStore(mem, time.Minute, nil)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "booking:/x", Entry{Status: 200}, 0))
	require.NoError(t, s.Set(ctx, "review:/x", Entry{Status: 200}, 0))

	inv := NewInvalidator(s, nil)
	inv.Invalidate(ctx, policies.BucketBookings)
	_, ok := s.Get(ctx, "booking:/x")
	assert.False(t, ok)
	_, ok = s.Get(ctx, "review:/x")
	assert.True(t, ok)

	inv.Invalidate(ctx, policies.CacheBucket("rev"))
	_, ok = s.Get(ctx, "review:/x")
	assert.True(t, ok, "unknown bucket must not match by prefix")
}

func TestInvalidatorSwallowsErrors(t *testing.T) {
	inv := NewInvalidator(NewStore(brokenKV{}, time.Minute, nil), nil)
	assert.NotPanics(t, func() {
		inv.Invalidate(context.Background(), policies.BucketListings)
	})
}
