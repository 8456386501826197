package policies

import "context"

// CacheBucket is a key prefix grouping cached reads by the data they depend on.
type CacheBucket string

const (
	BucketListings CacheBucket = "listing:"
	BucketBookings CacheBucket = "booking:"
	BucketReviews  CacheBucket = "review:"
	BucketAPI      CacheBucket = "api:"
)

// Known reports whether b is part of the closed bucket vocabulary.
func (b CacheBucket) Known() bool {
	switch b {
	case BucketListings, BucketBookings, BucketReviews, BucketAPI:
		return true
	}
	return false
}

// CacheInvalidator drops every cached read in a bucket. Failures are absorbed.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, bucket CacheBucket)
}

// NopInvalidator is used when no response cache is configured.
type NopInvalidator struct{}

func (NopInvalidator) Invalidate(context.Context, CacheBucket) {}
