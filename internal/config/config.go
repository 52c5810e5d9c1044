package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Revocation cache backends
const (
	RevocationCacheMemory = "memory"
	RevocationCacheRedis  = "redis"
)

// Rate limit store backends
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// MaxRevocationCacheTTL bounds how long a "not revoked" answer may be served
// from cache before the store is consulted again.
const MaxRevocationCacheTTL = 5 * time.Second

type Config struct {
	// Server settings
	ServerAddr   string
	BaseURL      string
	IsProduction bool

	// Token signing. PublicKeyPath is the verification key; when both paths
	// are empty an ephemeral key pair is generated at startup.
	PublicKeyPath  string
	PrivateKeyPath string

	// Grant settings
	AllowedScopes             []string
	AuthCodeExpiration        time.Duration
	AccessTokenExpiration     time.Duration
	RefreshTokenExpiration    time.Duration
	EnableRefreshTokens       bool
	RequireExactRedirectMatch bool
	ConsentAllowScopeWidening bool // auto-approve even when the request widens the granted scope
	DefaultOwnerModel         string
	AllowOwnerOverride        bool // honor owner_model/owner_id request parameters

	// Session settings (owner login is delegated to the host application)
	SessionSecret string
	SessionMaxAge int // seconds
	LoginURL      string

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	// Storage resilience
	StorageTimeout    time.Duration
	StorageRetryDelay time.Duration
	CleanupInterval   time.Duration

	// Revocation cache
	RevocationCacheType string
	RevocationCacheTTL  time.Duration

	// Redis (revocation cache and rate limiting)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Rate limiting of the token endpoint
	EnableRateLimit bool
	RateLimitStore  string
	TokenRateLimit  int // requests per minute

	// Event hooks
	HookTimeout time.Duration

	// Decision webhook; disabled when WebhookURL is empty
	WebhookURL        string
	WebhookAuthMode   string // none, simple, hmac or github
	WebhookSecret     string
	WebhookMaxRetries int

	// Metrics
	MetricsEnabled bool
	MetricsToken   string // bearer token guarding /metrics; empty disables the check
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", "codegrant.db")
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
		IsProduction: getEnvBool("ENVIRONMENT_PRODUCTION", false),

		PublicKeyPath:  getEnv("PUBLIC_KEY_PATH", ""),
		PrivateKeyPath: getEnv("PRIVATE_KEY_PATH", ""),

		AllowedScopes:             getEnvSlice("ALLOWED_SCOPES", []string{"read", "write"}),
		AuthCodeExpiration:        getEnvDuration("AUTH_CODE_EXPIRATION", 10*time.Minute),
		AccessTokenExpiration:     getEnvDuration("ACCESS_TOKEN_EXPIRATION", time.Hour),
		RefreshTokenExpiration:    getEnvDuration("REFRESH_TOKEN_EXPIRATION", 720*time.Hour),
		EnableRefreshTokens:       getEnvBool("ENABLE_REFRESH_TOKENS", true),
		RequireExactRedirectMatch: getEnvBool("REQUIRE_EXACT_REDIRECT_MATCH", true),
		ConsentAllowScopeWidening: getEnvBool("CONSENT_ALLOW_SCOPE_WIDENING", false),
		DefaultOwnerModel:         getEnv("DEFAULT_OWNER_MODEL", "Users"),
		AllowOwnerOverride:        getEnvBool("ALLOW_OWNER_OVERRIDE", false),

		SessionSecret: getEnv("SESSION_SECRET", "session-secret-change-in-production"),
		SessionMaxAge: getEnvInt("SESSION_MAX_AGE", 86400),
		LoginURL:      getEnv("LOGIN_URL", "/login"),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		StorageTimeout:    getEnvDuration("STORAGE_TIMEOUT", 3*time.Second),
		StorageRetryDelay: getEnvDuration("STORAGE_RETRY_DELAY", 100*time.Millisecond),
		CleanupInterval:   getEnvDuration("CLEANUP_INTERVAL", time.Hour),

		RevocationCacheType: getEnv("REVOCATION_CACHE_TYPE", RevocationCacheMemory),
		RevocationCacheTTL:  getEnvDuration("REVOCATION_CACHE_TTL", 2*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		EnableRateLimit: getEnvBool("ENABLE_RATE_LIMIT", true),
		RateLimitStore:  getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		TokenRateLimit:  getEnvInt("TOKEN_RATE_LIMIT", 60),

		HookTimeout: getEnvDuration("HOOK_TIMEOUT", 2*time.Second),

		WebhookURL:        getEnv("WEBHOOK_URL", ""),
		WebhookAuthMode:   getEnv("WEBHOOK_AUTH_MODE", "hmac"),
		WebhookSecret:     getEnv("WEBHOOK_SECRET", ""),
		WebhookMaxRetries: getEnvInt("WEBHOOK_MAX_RETRIES", 2),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		MetricsToken:   getEnv("METRICS_TOKEN", ""),
	}
}

// Validate checks option combinations that Load cannot reject on its own.
func (c *Config) Validate() error {
	switch c.RevocationCacheType {
	case RevocationCacheMemory, RevocationCacheRedis:
	default:
		return fmt.Errorf(
			"invalid REVOCATION_CACHE_TYPE value: %q (must be %q or %q)",
			c.RevocationCacheType, RevocationCacheMemory, RevocationCacheRedis,
		)
	}

	switch c.RateLimitStore {
	case RateLimitStoreMemory, RateLimitStoreRedis:
	default:
		return fmt.Errorf(
			"invalid RATE_LIMIT_STORE value: %q (must be %q or %q)",
			c.RateLimitStore, RateLimitStoreMemory, RateLimitStoreRedis,
		)
	}

	if (c.RevocationCacheType == RevocationCacheRedis || c.RateLimitStore == RateLimitStoreRedis) &&
		c.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required when a redis backend is selected")
	}

	if c.RevocationCacheTTL <= 0 || c.RevocationCacheTTL > MaxRevocationCacheTTL {
		return fmt.Errorf(
			"invalid REVOCATION_CACHE_TTL value: %s (must be > 0 and <= %s)",
			c.RevocationCacheTTL, MaxRevocationCacheTTL,
		)
	}

	if c.AuthCodeExpiration <= 0 || c.AccessTokenExpiration <= 0 || c.RefreshTokenExpiration <= 0 {
		return errors.New("token and code expirations must be positive")
	}

	if c.StorageTimeout <= 0 {
		return fmt.Errorf("invalid STORAGE_TIMEOUT value: %s", c.StorageTimeout)
	}

	if (c.PublicKeyPath == "") != (c.PrivateKeyPath == "") {
		return errors.New("PUBLIC_KEY_PATH and PRIVATE_KEY_PATH must be set together")
	}

	if c.WebhookURL != "" {
		switch c.WebhookAuthMode {
		case "none":
		case "simple", "hmac", "github":
			if c.WebhookSecret == "" {
				return fmt.Errorf("WEBHOOK_SECRET is required for WEBHOOK_AUTH_MODE=%s", c.WebhookAuthMode)
			}
		default:
			return fmt.Errorf(
				"invalid WEBHOOK_AUTH_MODE value: %q (must be none, simple, hmac or github)",
				c.WebhookAuthMode,
			)
		}
	}

	if len(c.AllowedScopes) == 0 {
		return errors.New("ALLOWED_SCOPES must list at least one scope")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvSlice accepts comma or space separated values.
func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.FieldsFunc(value, func(r rune) bool {
			return r == ',' || r == ' '
		})
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}
