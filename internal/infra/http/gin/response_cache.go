package ginserver

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"reservations/internal/app/policies"
	"reservations/internal/infra/cache"
	"reservations/internal/infra/obs"
)

const cacheHeader = "X-Cache"

// replayed response headers; hop-by-hop and per-request headers are excluded.
var cachedHeaders = []string{"Content-Type", "Content-Language", "ETag", "Last-Modified"}

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache serves GET responses from store under bucket. A nil store
// disables caching; store failures degrade to a miss.
func ResponseCache(store *cache.Store, bucket policies.CacheBucket, ttl time.Duration, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.Next()
			return
		}
		if !cache.RequestCacheable(c.Request) {
			obs.CacheLookups.WithLabelValues(string(bucket), "bypass").Inc()
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := cache.Key(string(bucket), c.Request.URL.Path, c.Request.URL.Query())
		if entry, ok := store.Get(ctx, key); ok {
			obs.CacheLookups.WithLabelValues(string(bucket), "hit").Inc()
			for k, v := range entry.Headers {
				c.Header(k, v)
			}
			c.Header(cacheHeader, "HIT")
			c.Status(entry.Status)
			_, _ = c.Writer.Write(entry.Body)
			c.Abort()
			return
		}
		obs.CacheLookups.WithLabelValues(string(bucket), "miss").Inc()

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Header(cacheHeader, "MISS")
		c.Next()

		status := rec.Status()
		if !cache.StatusCacheable(status) {
			return
		}
		entry := cache.Entry{Status: status, Headers: map[string]string{}, Body: rec.body.Bytes()}
		for _, h := range cachedHeaders {
			if v := rec.Header().Get(h); v != "" {
				entry.Headers[h] = v
			}
		}
		if err := store.Set(ctx, key, entry, ttl); err != nil && logger != nil {
			logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
		}
	}
}

var _ http.ResponseWriter = (*bodyRecorder)(nil)
