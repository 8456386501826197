package memory

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"reservations/internal/infra/kv"
)

type kvEntry struct {
	value     []byte
	expiresAt time.Time
}

// KV is a process-local kv.Store. It is only coherent inside one process and
// is meant for tests and single-instance development.
type KV struct {
	mu    sync.Mutex
	items map[string]kvEntry
	now   func() time.Time
}

// NewKV builds an empty store; now may be nil to use the wall clock.
func NewKV(now func() time.Time) *KV {
	if now == nil {
		now = time.Now
	}
	return &KV{items: make(map[string]kvEntry), now: now}
}

func (s *KV) liveLocked(key string) (kvEntry, bool) {
	e, ok := s.items[key]
	if !ok {
		return kvEntry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.items, key)
		return kvEntry{}, false
	}
	return e, true
}

func (s *KV) entry(value []byte, ttl time.Duration) kvEntry {
	e := kvEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	return e
}

// Get returns a copy of the stored value or kv.ErrNotFound.
func (s *KV) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.liveLocked(key)
	if !ok {
		return nil, kv.ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *KV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = s.entry(value, ttl)
	return nil
}

func (s *KV) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.liveLocked(key); ok {
		return false, nil
	}
	s.items[key] = s.entry(value, ttl)
	return true, nil
}

func (s *KV) CompareAndDelete(_ context.Context, key string, expected []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.liveLocked(key)
	if !ok || !bytes.Equal(e.value, expected) {
		return false, nil
	}
	delete(s.items, key)
	return true, nil
}

func (s *KV) DeleteByPrefix(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.items {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if _, ok := s.liveLocked(key); ok {
			n++
		}
		delete(s.items, key)
	}
	return n, nil
}

func (s *KV) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.liveLocked(key)
	if !ok {
		return 0, kv.ErrNotFound
	}
	if e.expiresAt.IsZero() {
		return kv.NoExpiry, nil
	}
	return e.expiresAt.Sub(s.now()), nil
}

func (s *KV) Ping(context.Context) error { return nil }

var _ kv.Store = (*KV)(nil)
