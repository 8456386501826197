package policies

import (
	"context"
	"time"
)

// LockOptions bounds a single acquisition attempt.
type LockOptions struct {
	TTL           time.Duration
	WaitTimeout   time.Duration
	RetryInterval time.Duration
}

// DefaultLockOptions keep the TTL comfortably above the work done under the lock.
var DefaultLockOptions = LockOptions{
	TTL:           3 * time.Second,
	WaitTimeout:   4 * time.Second,
	RetryInterval: 150 * time.Millisecond,
}

// LockHandle proves ownership; Token is unique per acquisition.
type LockHandle struct {
	Key   string
	Token string
}

// AvailabilityLocker serializes writers of one listing's availability.
// Acquire returns false when the lock could not be taken within WaitTimeout;
// Release is best-effort and only removes a lock still holding the handle's token.
type AvailabilityLocker interface {
	Acquire(ctx context.Context, key string, opts LockOptions) (LockHandle, bool)
	Release(ctx context.Context, handle LockHandle) bool
}

// ListingLockKey names the availability lock of one listing.
func ListingLockKey(listingID string) string {
	return "lock:listing-book:" + listingID
}
