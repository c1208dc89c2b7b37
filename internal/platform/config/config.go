package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// PostgresConfig holds connection settings for the workflow store and the
// audit outbox. An empty URL means postgres-backed stores are disabled and
// the in-memory stores are used instead.
type PostgresConfig struct {
	URL         string
	MaxConns    int32
	ConnTimeout time.Duration
}

// RedisConfig holds connection settings for the embedding and classifier
// caches. An empty URL disables caching.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds broker settings for the audit outbox relay. Empty
// brokers disable the relay.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// ClassifierConfig points at the document classifier service.
type ClassifierConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// VectorIndexConfig points at the vector search service used for duplicate
// detection.
type VectorIndexConfig struct {
	BaseURL   string
	APIKey    string
	Namespace string
	Timeout   time.Duration
}

// RateLimitConfig bounds API traffic per client. Zero requests per minute
// disables limiting.
type RateLimitConfig struct {
	RequestsPerMinute int
}

// Config aggregates all runtime configuration.
type Config struct {
	Server      Server
	Postgres    PostgresConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Classifier  ClassifierConfig
	VectorIndex VectorIndexConfig
	RateLimit   RateLimitConfig

	// TimeoutSweepInterval controls how often pending reviews are checked
	// for deadline breaches.
	TimeoutSweepInterval time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("KYCGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}
	auditTopic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "kycgate.audit"
	}

	return Config{
		Server: Server{
			Addr:          addr,
			JWTSigningKey: jwtSigningKey,
		},
		Postgres: PostgresConfig{
			URL:         os.Getenv("POSTGRES_URL"),
			MaxConns:    int32(envInt("POSTGRES_MAX_CONNS", 10)),
			ConnTimeout: envDuration("POSTGRES_CONN_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    brokers,
			AuditTopic: auditTopic,
		},
		Classifier: ClassifierConfig{
			BaseURL: os.Getenv("CLASSIFIER_BASE_URL"),
			APIKey:  os.Getenv("CLASSIFIER_API_KEY"),
			Model:   envString("CLASSIFIER_MODEL", "doc-classifier-v2"),
			Timeout: envDuration("CLASSIFIER_TIMEOUT", 10*time.Second),
		},
		VectorIndex: VectorIndexConfig{
			BaseURL:   os.Getenv("VECTOR_INDEX_BASE_URL"),
			APIKey:    os.Getenv("VECTOR_INDEX_API_KEY"),
			Namespace: envString("VECTOR_INDEX_NAMESPACE", "kyc-documents"),
			Timeout:   envDuration("VECTOR_INDEX_TIMEOUT", 5*time.Second),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: envInt("RATE_LIMIT_RPM", 300),
		},
		TimeoutSweepInterval: envDuration("TIMEOUT_SWEEP_INTERVAL", time.Minute),
	}
}

func envString(key, fallback string) string {
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
