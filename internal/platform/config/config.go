package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the gateway needs from the environment so main
// stays lean. Each dependency gets its own timeout; the pipeline never issues
// an external call without a deadline.
type Config struct {
	Addr        string
	Environment string
	Version     string

	Redis      Redis
	Identity   Identity
	Classifier Classifier
	Blob       Blob
	Profile    Profile
	Audit      Audit

	// SessionWindow is the sliding-window TTL applied to cached sessions.
	SessionWindow time.Duration

	// AdminKeyHash is the bcrypt hash of the key that guards the migration
	// endpoint. Empty disables the endpoint entirely.
	AdminKeyHash string
}

// Redis configures the session cache store.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Identity configures the identity-provider fallback used on cache misses.
type Identity struct {
	BaseURL    string
	ServiceKey string
	Timeout    time.Duration
}

// Classifier configures the image-classification backend.
type Classifier struct {
	BaseURL string
	Token   string
	Model   string
	Timeout time.Duration
	// FailOpen keeps the documented availability-over-safety trade-off: a
	// classifier outage auto-approves instead of failing the upload. Turn it
	// off to treat classifier failures like any other dependency failure.
	FailOpen bool
}

// Blob configures the avatar object store.
type Blob struct {
	BaseURL       string
	Token         string
	PublicBaseURL string
	Timeout       time.Duration
}

// Profile configures profile persistence. When PostgresDSN is set the gateway
// talks to the database directly; otherwise it goes through the REST surface.
type Profile struct {
	PostgresDSN string
	RESTBaseURL string
	ServiceKey  string
	Timeout     time.Duration
}

// Audit configures the optional external audit sink. Brokers empty means
// ledger entries stay local.
type Audit struct {
	KafkaBrokers []string
	KafkaTopic   string
}

// FromEnv builds a Config from environment variables, with development
// defaults for everything that has a safe one.
func FromEnv() Config {
	return Config{
		Addr:        envOr("AVATAR_GATEWAY_ADDR", ":8080"),
		Environment: envOr("ENVIRONMENT", "development"),
		Version:     envOr("VERSION", "1.0.0"),
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
		},
		Identity: Identity{
			BaseURL:    os.Getenv("IDENTITY_BASE_URL"),
			ServiceKey: os.Getenv("IDENTITY_SERVICE_KEY"),
			Timeout:    envDuration("IDENTITY_TIMEOUT", 3*time.Second),
		},
		Classifier: Classifier{
			BaseURL:  os.Getenv("CLASSIFIER_BASE_URL"),
			Token:    os.Getenv("CLASSIFIER_TOKEN"),
			Model:    envOr("CLASSIFIER_MODEL", "resnet-50"),
			Timeout:  envDuration("CLASSIFIER_TIMEOUT", 5*time.Second),
			FailOpen: envOr("MODERATION_FAIL_OPEN", "true") == "true",
		},
		Blob: Blob{
			BaseURL:       os.Getenv("BLOB_BASE_URL"),
			Token:         os.Getenv("BLOB_TOKEN"),
			PublicBaseURL: os.Getenv("BLOB_PUBLIC_BASE_URL"),
			Timeout:       envDuration("BLOB_TIMEOUT", 10*time.Second),
		},
		Profile: Profile{
			PostgresDSN: os.Getenv("PROFILE_POSTGRES_DSN"),
			RESTBaseURL: os.Getenv("PROFILE_REST_BASE_URL"),
			ServiceKey:  os.Getenv("PROFILE_SERVICE_KEY"),
			Timeout:     envDuration("PROFILE_TIMEOUT", 5*time.Second),
		},
		Audit: Audit{
			KafkaBrokers: envList("AUDIT_KAFKA_BROKERS"),
			KafkaTopic:   envOr("AUDIT_KAFKA_TOPIC", "avatar-audit"),
		},
		SessionWindow: envDuration("SESSION_WINDOW", time.Hour),
		AdminKeyHash:  os.Getenv("ADMIN_KEY_HASH"),
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

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
