package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "dev-secret-change-me"

// Config aggregates application configuration values loaded from the
// environment and an optional .env file.
type Config struct {
	Env      string
	LogLevel string
	HTTPAddr string

	StorageDriver string
	MongoURI      string
	MongoDB       string

	CacheDriver   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
	RedisDial     time.Duration
	RedisRetries  int

	CacheMaxTTL          time.Duration
	CacheListingTTL      time.Duration
	CacheCatalogTTL      time.Duration
	CacheReviewTTL       time.Duration
	CacheAvailabilityTTL time.Duration

	LockTTL   time.Duration
	LockWait  time.Duration
	LockRetry time.Duration

	JWTSecret string
	JWTIssuer string

	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaConsumerGroup string
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	IdempotencyTTL     time.Duration

	// RateLimitMax requests per client IP within RateLimitWindow; 0 disables.
	RateLimitMax    int
	RateLimitWindow time.Duration

	ListingsFixtures string
}

// Production reports whether error details must be hidden from clients.
func (c Config) Production() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Load reads .env from the working directory when present and lets real
// environment variables override it.
func Load() (Config, error) {
	return LoadWithPath(".env")
}

// LoadWithPath is Load with an explicit env file; a missing file is not an error.
func LoadWithPath(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !isMissingFile(err) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		Env:                strings.ToLower(v.GetString("APP_ENV")),
		LogLevel:           strings.ToLower(v.GetString("LOG_LEVEL")),
		HTTPAddr:           v.GetString("HTTP_ADDR"),
		StorageDriver:      strings.ToLower(v.GetString("STORAGE_DRIVER")),
		MongoURI:           v.GetString("MONGO_URI"),
		MongoDB:            v.GetString("MONGO_DB"),
		CacheDriver:        strings.ToLower(v.GetString("CACHE_DRIVER")),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		JWTIssuer:          v.GetString("JWT_ISSUER"),
		KafkaTopicPrefix:   v.GetString("KAFKA_TOPIC_PREFIX"),
		KafkaConsumerGroup: v.GetString("KAFKA_CONSUMER_GROUP"),
		ListingsFixtures:   v.GetString("LISTINGS_FIXTURES"),
		KafkaBrokers:       splitList(v.GetString("KAFKA_BROKERS")),
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"REDIS_DB", &cfg.RedisDB},
		{"REDIS_POOL_SIZE", &cfg.RedisPoolSize},
		{"REDIS_MAX_RETRIES", &cfg.RedisRetries},
		{"RATE_LIMIT_MAX", &cfg.RateLimitMax},
	}
	for _, f := range ints {
		n, err := parseInt(v, f.key)
		if err != nil {
			return Config{}, err
		}
		*f.dst = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"REDIS_DIAL_TIMEOUT", &cfg.RedisDial},
		{"CACHE_MAX_TTL", &cfg.CacheMaxTTL},
		{"CACHE_LISTING_TTL", &cfg.CacheListingTTL},
		{"CACHE_CATALOG_TTL", &cfg.CacheCatalogTTL},
		{"CACHE_REVIEW_TTL", &cfg.CacheReviewTTL},
		{"CACHE_AVAILABILITY_TTL", &cfg.CacheAvailabilityTTL},
		{"BOOKING_LOCK_TTL", &cfg.LockTTL},
		{"BOOKING_LOCK_WAIT", &cfg.LockWait},
		{"BOOKING_LOCK_RETRY", &cfg.LockRetry},
		{"OUTBOX_POLL_INTERVAL", &cfg.OutboxPollInterval},
		{"IDEMP_TTL", &cfg.IdempotencyTTL},
		{"RATE_LIMIT_WINDOW", &cfg.RateLimitWindow},
	}
	for _, f := range durations {
		d, err := parseDuration(v, f.key)
		if err != nil {
			return Config{}, err
		}
		*f.dst = d
	}

	for _, raw := range splitList(v.GetString("RETRY_BACKOFF")) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":8080")

	v.SetDefault("STORAGE_DRIVER", "memory")
	v.SetDefault("MONGO_DB", "rentals")

	v.SetDefault("CACHE_DRIVER", "memory")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", "0")
	v.SetDefault("REDIS_POOL_SIZE", "20")
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_MAX_RETRIES", "3")

	v.SetDefault("CACHE_MAX_TTL", "5m")
	v.SetDefault("CACHE_LISTING_TTL", "60s")
	v.SetDefault("CACHE_CATALOG_TTL", "30s")
	v.SetDefault("CACHE_REVIEW_TTL", "60s")
	v.SetDefault("CACHE_AVAILABILITY_TTL", "30s")

	v.SetDefault("BOOKING_LOCK_TTL", "3s")
	v.SetDefault("BOOKING_LOCK_WAIT", "4s")
	v.SetDefault("BOOKING_LOCK_RETRY", "150ms")

	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC_PREFIX", "")
	v.SetDefault("KAFKA_CONSUMER_GROUP", "reservations")
	v.SetDefault("OUTBOX_POLL_INTERVAL", "500ms")
	v.SetDefault("RETRY_BACKOFF", "1s,5s,30s")
	v.SetDefault("IDEMP_TTL", "24h")

	v.SetDefault("RATE_LIMIT_MAX", "100")
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")

	v.SetDefault("LISTINGS_FIXTURES", "")
}

// Validate rejects settings that would break booking exclusivity or leak
// unsigned identities.
func (c Config) Validate() error {
	switch {
	case c.LockTTL < time.Second:
		return fmt.Errorf("BOOKING_LOCK_TTL must be at least 1s, got %s", c.LockTTL)
	case c.LockWait < 0:
		return fmt.Errorf("BOOKING_LOCK_WAIT must not be negative, got %s", c.LockWait)
	case c.LockRetry <= 0:
		return fmt.Errorf("BOOKING_LOCK_RETRY must be positive, got %s", c.LockRetry)
	case c.CacheMaxTTL <= 0:
		return fmt.Errorf("CACHE_MAX_TTL must be positive, got %s", c.CacheMaxTTL)
	case c.RateLimitMax < 0:
		return fmt.Errorf("RATE_LIMIT_MAX must not be negative, got %d", c.RateLimitMax)
	case c.RateLimitMax > 0 && c.RateLimitWindow <= 0:
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimitWindow)
	}
	switch c.StorageDriver {
	case "memory":
	case "mongo":
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required when STORAGE_DRIVER=mongo")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.CacheDriver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown CACHE_DRIVER %q", c.CacheDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Production() && c.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	return nil
}

func isMissingFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	// SetConfigFile reports a plain fs error for a missing explicit path.
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseInt(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer %q", key, raw)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
