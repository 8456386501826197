// Package kv defines the shared TTL key-value store behind availability locks,
// the response cache and command idempotency records.
package kv

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("kv: key not found")

// NoExpiry is reported by TTL for keys stored without expiration.
const NoExpiry time.Duration = -1

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value; a non-positive ttl stores without expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// CompareAndDelete removes key only while it still holds expected.
	CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error)
	// DeleteByPrefix removes every key starting with prefix and returns how many.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Ping(ctx context.Context) error
}
