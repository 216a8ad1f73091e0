// Package config loads service configuration from environment variables and
// an optional YAML file merged via koanf. Environment variables win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	ListenAddr string `koanf:"listen_addr"`
	Env        string `koanf:"env"`

	DatabaseDSN string `koanf:"database_dsn"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	AdminJWTSecret string `koanf:"admin_jwt_secret"`

	// Session policy. Sliding expiry and single-active are deliberate
	// configuration choices, not hardcoded behavior.
	SessionTTL          time.Duration `koanf:"session_ttl"`
	SessionSliding      bool          `koanf:"session_sliding"`
	SessionSingleActive bool          `koanf:"session_single_active"`
	SessionReapInterval time.Duration `koanf:"session_reap_interval"`
	SessionRetain       time.Duration `koanf:"session_retain"`

	// Anti-replay window for signed device requests.
	TimestampSkew time.Duration `koanf:"timestamp_skew"`
	NonceTTL      time.Duration `koanf:"nonce_ttl"`

	RateLimitRequests   int           `koanf:"rate_limit_requests"`
	RateLimitWindow     time.Duration `koanf:"rate_limit_window"`
	RateLimitFailClosed bool          `koanf:"rate_limit_fail_closed"`

	AuditBufferSize int `koanf:"audit_buffer_size"`
}

var (
	ErrMissingDatabaseDSN    = errors.New("DATABASE_DSN is required")
	ErrMissingAdminJWTSecret = errors.New("ADMIN_JWT_SECRET is required")
)

const (
	DefaultListenAddr          = ":8080"
	DefaultEnv                 = "development"
	DefaultSessionTTL          = time.Hour
	DefaultSessionReapInterval = 10 * time.Minute
	DefaultSessionRetain       = 24 * time.Hour
	DefaultTimestampSkew       = 30 * time.Second
	DefaultNonceTTL            = 2 * time.Minute
	DefaultRateLimitRequests   = 60
	DefaultRateLimitWindow     = time.Minute
	DefaultAuditBufferSize     = 1024
)

// Load reads configuration. A non-empty path loads the YAML file first;
// environment variables override file values.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		ListenAddr:          envOrDefault("VENDTRUSTD_LISTEN_ADDR", k.String("listen_addr"), DefaultListenAddr),
		Env:                 envOrDefault("VENDTRUSTD_ENV", k.String("env"), DefaultEnv),
		DatabaseDSN:         envOr("DATABASE_DSN", k.String("database_dsn")),
		RedisAddr:           envOr("REDIS_ADDR", k.String("redis_addr")),
		RedisPassword:       envOr("REDIS_PASSWORD", k.String("redis_password")),
		RedisDB:             envIntOrDefault("REDIS_DB", k.Int("redis_db"), 0),
		AdminJWTSecret:      envOr("ADMIN_JWT_SECRET", k.String("admin_jwt_secret")),
		SessionTTL:          envDurationOrDefault("SESSION_TTL", k.Duration("session_ttl"), DefaultSessionTTL),
		SessionSliding:      envBoolOrDefault("SESSION_SLIDING", k, "session_sliding", false),
		SessionSingleActive: envBoolOrDefault("SESSION_SINGLE_ACTIVE", k, "session_single_active", false),
		SessionReapInterval: envDurationOrDefault("SESSION_REAP_INTERVAL", k.Duration("session_reap_interval"), DefaultSessionReapInterval),
		SessionRetain:       envDurationOrDefault("SESSION_RETAIN", k.Duration("session_retain"), DefaultSessionRetain),
		TimestampSkew:       envDurationOrDefault("TIMESTAMP_SKEW", k.Duration("timestamp_skew"), DefaultTimestampSkew),
		NonceTTL:            envDurationOrDefault("NONCE_TTL", k.Duration("nonce_ttl"), DefaultNonceTTL),
		RateLimitRequests:   envIntOrDefault("RATE_LIMIT_REQUESTS", k.Int("rate_limit_requests"), DefaultRateLimitRequests),
		RateLimitWindow:     envDurationOrDefault("RATE_LIMIT_WINDOW", k.Duration("rate_limit_window"), DefaultRateLimitWindow),
		RateLimitFailClosed: envBoolOrDefault("RATE_LIMIT_FAIL_CLOSED", k, "rate_limit_fail_closed", false),
		AuditBufferSize:     envIntOrDefault("AUDIT_BUFFER_SIZE", k.Int("audit_buffer_size"), DefaultAuditBufferSize),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseDSN == "" {
		return ErrMissingDatabaseDSN
	}
	if c.AdminJWTSecret == "" {
		return ErrMissingAdminJWTSecret
	}
	return nil
}

func envOr(envKey, fileVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return fileVal
}

func envOrDefault(envKey, fileVal, defaultVal string) string {
	if val := envOr(envKey, fileVal); val != "" {
		return val
	}
	return defaultVal
}

func envIntOrDefault(envKey string, fileVal, defaultVal int) int {
	if val := os.Getenv(envKey); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	if fileVal != 0 {
		return fileVal
	}
	return defaultVal
}

func envDurationOrDefault(envKey string, fileVal, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(envKey); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if fileVal != 0 {
		return fileVal
	}
	return defaultVal
}

func envBoolOrDefault(envKey string, k *koanf.Koanf, fileKey string, defaultVal bool) bool {
	if val := os.Getenv(envKey); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	if k.Exists(fileKey) {
		return k.Bool(fileKey)
	}
	return defaultVal
}
