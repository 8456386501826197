// Package lock implements the per-listing availability lock on top of a
// kv.Store. A lock is a key holding a random token with a TTL; only the
// holder of the token may delete it.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"reservations/internal/app/policies"
	"reservations/internal/infra/kv"
	"reservations/internal/infra/kv/rediskv"
	"reservations/internal/infra/obs"
	"reservations/internal/infra/storage/memory"
)

type Manager struct {
	Store  kv.Store
	Logger *slog.Logger
	Now    func() time.Time
	// Sleep waits between attempts; it returns early with ctx.Err() when ctx ends.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewRedis builds a manager whose locks are visible to every instance sharing client.
func NewRedis(client goredis.UniversalClient, logger *slog.Logger) *Manager {
	return &Manager{Store: rediskv.New(client), Logger: logger}
}

// NewInMemory builds a process-local manager for tests and single-instance runs.
func NewInMemory(logger *slog.Logger) *Manager {
	return &Manager{Store: memory.NewKV(nil), Logger: logger}
}

// Acquire tries SET NX until it succeeds or opts.WaitTimeout elapses. At least
// one attempt is always made. Store errors count as a failed attempt.
func (m *Manager) Acquire(ctx context.Context, key string, opts policies.LockOptions) (policies.LockHandle, bool) {
	token, err := newToken()
	if err != nil {
		m.log().ErrorContext(ctx, "lock token generation failed", "key", key, "error", err)
		return policies.LockHandle{}, false
	}
	retry := opts.RetryInterval
	if retry <= 0 {
		retry = policies.DefaultLockOptions.RetryInterval
	}
	deadline := m.now().Add(opts.WaitTimeout)

	for attempt := 1; ; attempt++ {
		ok, err := m.Store.SetNX(ctx, key, []byte(token), opts.TTL)
		if err == nil && ok {
			obs.LockAcquisitions.WithLabelValues("acquired").Inc()
			return policies.LockHandle{Key: key, Token: token}, true
		}
		if err != nil {
			m.log().WarnContext(ctx, "lock attempt failed", "key", key, "attempt", attempt, "error", err)
		}

		remaining := deadline.Sub(m.now())
		if remaining <= 0 {
			obs.LockAcquisitions.WithLabelValues("timeout").Inc()
			return policies.LockHandle{}, false
		}
		if err := m.sleep(ctx, min(retry, remaining)); err != nil {
			obs.LockAcquisitions.WithLabelValues("cancelled").Inc()
			return policies.LockHandle{}, false
		}
	}
}

// Release deletes the lock only if it still holds the handle's token. A
// lock that expired and was taken by someone else is left alone.
func (m *Manager) Release(ctx context.Context, handle policies.LockHandle) bool {
	if handle.Key == "" || handle.Token == "" {
		return false
	}
	ok, err := m.Store.CompareAndDelete(ctx, handle.Key, []byte(handle.Token))
	if err != nil {
		obs.LockAcquisitions.WithLabelValues("release_failed").Inc()
		m.log().WarnContext(ctx, "lock release failed", "key", handle.Key, "error", err)
		return false
	}
	if !ok {
		obs.LockAcquisitions.WithLabelValues("release_failed").Inc()
		m.log().WarnContext(ctx, "lock no longer held at release", "key", handle.Key)
		return false
	}
	obs.LockAcquisitions.WithLabelValues("released").Inc()
	return true
}

func (m *Manager) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) error {
	if m.Sleep != nil {
		return m.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *Manager) log() *slog.Logger {
	if m.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return m.Logger
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

var _ policies.AvailabilityLocker = (*Manager)(nil)
