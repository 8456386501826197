package ginserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservations/internal/app/queries"
	"reservations/internal/infra/config"
	"reservations/internal/infra/obs"
)

func limitedEngine(l *RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(l.Handle)
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func hit(r http.Handler, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = ip + ":5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterRejectsAfterBurst(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(3, 15*time.Minute)
	l.now = func() time.Time { return now }
	r := limitedEngine(l)

	for i := 0; i < 3; i++ {
		w := hit(r, "/ping", "10.0.0.1")
		require.Equal(t, http.StatusNoContent, w.Code, "request %d", i)
		assert.Equal(t, "3", w.Header().Get("RateLimit-Limit"))
	}

	w := hit(r, "/ping", "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "300", w.Header().Get("Retry-After"))
	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Too many requests", body.Message)

	assert.Equal(t, http.StatusNoContent, hit(r, "/ping", "10.0.0.2").Code)
}

func TestRateLimiterRefillsOverWindow(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }
	r := limitedEngine(l)

	require.Equal(t, http.StatusNoContent, hit(r, "/ping", "10.0.0.1").Code)
	require.Equal(t, http.StatusNoContent, hit(r, "/ping", "10.0.0.1").Code)
	require.Equal(t, http.StatusTooManyRequests, hit(r, "/ping", "10.0.0.1").Code)

	now = now.Add(31 * time.Second)
	assert.Equal(t, http.StatusNoContent, hit(r, "/ping", "10.0.0.1").Code)
}

func TestRateLimiterForgetsIdleClients(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, time.Minute)
	l.now = func() time.Time { return now }
	r := limitedEngine(l)

	hit(r, "/ping", "10.0.0.1")
	hit(r, "/ping", "10.0.0.2")
	require.Len(t, l.clients, 2)

	now = now.Add(2 * time.Minute)
	hit(r, "/ping", "10.0.0.3")
	assert.Len(t, l.clients, 1)
}

func TestRouterLimitsOnlyAPIRoutes(t *testing.T) {
	l := NewRateLimiter(1, time.Hour)
	router := NewRouter(config.Config{Env: "test"}, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Listing:   &ListingHandler{Queries: queries.NewInMemoryBus(), Respond: Responder{}},
		RateLimit: l.Handle,
	})

	require.NotEqual(t, http.StatusTooManyRequests, hit(router, "/api/v1/listings/missing", "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(router, "/api/v1/listings/missing", "10.0.0.1").Code)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(router, "/livez", "10.0.0.1").Code)
	}
}
