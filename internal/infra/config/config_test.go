package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadWithPath(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.StorageDriver)
	assert.Equal(t, "memory", cfg.CacheDriver)
	assert.Equal(t, 3*time.Second, cfg.LockTTL)
	assert.Equal(t, 4*time.Second, cfg.LockWait)
	assert.Equal(t, 150*time.Millisecond, cfg.LockRetry)
	assert.Equal(t, 5*time.Minute, cfg.CacheMaxTTL)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 100, cfg.RateLimitMax)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.False(t, cfg.Production())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR=:9000\nBOOKING_LOCK_WAIT=2s\n"), 0o600))
	t.Setenv("BOOKING_LOCK_WAIT", "1s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, time.Second, cfg.LockWait)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad duration", map[string]string{"BOOKING_LOCK_RETRY": "soon"}, "BOOKING_LOCK_RETRY"},
		{"short lock ttl", map[string]string{"BOOKING_LOCK_TTL": "200ms"}, "BOOKING_LOCK_TTL"},
		{"negative wait", map[string]string{"BOOKING_LOCK_WAIT": "-1s"}, "BOOKING_LOCK_WAIT"},
		{"mongo without uri", map[string]string{"STORAGE_DRIVER": "mongo"}, "MONGO_URI"},
		{"unknown cache", map[string]string{"CACHE_DRIVER": "memcached"}, "CACHE_DRIVER"},
		{"bad int", map[string]string{"REDIS_DB": "one"}, "REDIS_DB"},
		{"prod default secret", map[string]string{"APP_ENV": "production"}, "JWT_SECRET"},
		{"negative rate limit", map[string]string{"RATE_LIMIT_MAX": "-1"}, "RATE_LIMIT_MAX"},
		{"zero rate window", map[string]string{"RATE_LIMIT_WINDOW": "0s"}, "RATE_LIMIT_WINDOW"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadWithPath(missingEnvFile(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
