package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr     string
	BaseURL  string
	LogLevel string

	// KeyDir holds locally issued public signing keys (PEM or JWK files).
	// Read-only here; key rotation is owned by the key-management service.
	KeyDir string

	Resolver Resolver
	Redis    RedisConfig
}

// Resolver configures outbound DID / JWKS / status-list fetches.
type Resolver struct {
	Timeout    time.Duration
	MaxRetries int
	CacheTTL   time.Duration

	// AllowHTTP permits plain-HTTP did:web resolution for local development
	// and tests. Production resolution is HTTPS only.
	AllowHTTP bool
}

// RedisConfig configures the optional DID resolution cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:     envOr("BADGEKEEPER_ADDR", ":8080"),
		BaseURL:  envOr("BADGEKEEPER_BASE_URL", "http://localhost:8080"),
		LogLevel: envOr("BADGEKEEPER_LOG_LEVEL", "info"),
		KeyDir:   envOr("BADGEKEEPER_KEY_DIR", "./keys"),
		Resolver: Resolver{
			Timeout:    envDuration("BADGEKEEPER_RESOLVER_TIMEOUT", 10*time.Second),
			MaxRetries: envInt("BADGEKEEPER_RESOLVER_RETRIES", 2),
			CacheTTL:   envDuration("BADGEKEEPER_RESOLVER_CACHE_TTL", 5*time.Minute),
			AllowHTTP:  os.Getenv("BADGEKEEPER_RESOLVER_ALLOW_HTTP") == "true",
		},
		Redis: RedisConfig{
			URL:          os.Getenv("BADGEKEEPER_REDIS_URL"),
			PoolSize:     envInt("BADGEKEEPER_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("BADGEKEEPER_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("BADGEKEEPER_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("BADGEKEEPER_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("BADGEKEEPER_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
