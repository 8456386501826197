// Package cache stores rendered GET responses in a shared kv.Store, grouped
// by bucket prefix so a mutation can drop every read it affects.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"reservations/internal/infra/kv"
)

// DefaultMaxTTL caps every entry when Store.MaxTTL is unset.
const DefaultMaxTTL = 5 * time.Minute

// Entry is a replayable response.
type Entry struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    []byte            `json:"body"`
}

type Store struct {
	KV     kv.Store
	MaxTTL time.Duration
	Logger *slog.Logger
}

func NewStore(store kv.Store, maxTTL time.Duration, logger *slog.Logger) *Store {
	return &Store{KV: store, MaxTTL: maxTTL, Logger: logger}
}

// Get returns the entry under key. Missing keys, undecodable entries and store
// failures all read as a miss.
func (s *Store) Get(ctx context.Context, key string) (Entry, bool) {
	raw, err := s.KV.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log().WarnContext(ctx, "cache read failed", "key", key, "error", err)
		}
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		s.log().WarnContext(ctx, "cache entry corrupt", "key", key, "error", err)
		return Entry{}, false
	}
	return entry, true
}

// Set stores entry for EffectiveTTL(ttl).
func (s *Store) Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.KV.Set(ctx, key, raw, s.EffectiveTTL(ttl))
}

func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	return s.KV.DeleteByPrefix(ctx, prefix)
}

// TTLRemaining reports the entry's remaining lifetime; false when absent.
func (s *Store) TTLRemaining(ctx context.Context, key string) (time.Duration, bool) {
	ttl, err := s.KV.TTL(ctx, key)
	if err != nil {
		return 0, false
	}
	return ttl, true
}

// EffectiveTTL is min(requested, MaxTTL); a non-positive request means MaxTTL.
func (s *Store) EffectiveTTL(requested time.Duration) time.Duration {
	ceiling := s.MaxTTL
	if ceiling <= 0 {
		ceiling = DefaultMaxTTL
	}
	if requested <= 0 || requested > ceiling {
		return ceiling
	}
	return requested
}

func (s *Store) log() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}
