package cache

import (
	"context"
	"log/slog"

	"reservations/internal/app/policies"
	"reservations/internal/infra/obs"
)

// Invalidator drops whole buckets after committed mutations. It never fails
// the caller: a stale entry expires on its own within the TTL ceiling.
type Invalidator struct {
	Store  *Store
	Logger *slog.Logger
}

func NewInvalidator(store *Store, logger *slog.Logger) *Invalidator {
	return &Invalidator{Store: store, Logger: logger}
}

func (i *Invalidator) Invalidate(ctx context.Context, bucket policies.CacheBucket) {
	log := i.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if !bucket.Known() {
		obs.CacheInvalidations.WithLabelValues(string(bucket), "rejected").Inc()
		log.WarnContext(ctx, "cache invalidation for unknown bucket", "bucket", bucket)
		return
	}
	if i.Store == nil {
		return
	}
	n, err := i.Store.DeleteByPrefix(ctx, string(bucket))
	if err != nil {
		obs.CacheInvalidations.WithLabelValues(string(bucket), "error").Inc()
		log.WarnContext(ctx, "cache invalidation failed", "bucket", bucket, "error", err)
		return
	}
	obs.CacheInvalidations.WithLabelValues(string(bucket), "ok").Inc()
	log.DebugContext(ctx, "cache bucket invalidated", "bucket", bucket, "keys", n)
}

var _ policies.CacheInvalidator = (*Invalidator)(nil)
