package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string
	Environment       string
	CountryHeader     string
	TrustedProxies    string
	CORSAllowedOrigin string
	// InternalToken guards internal-only routes such as the device lookup.
	// Empty leaves them unmounted.
	InternalToken     string
	ShutdownTimeout   time.Duration
	RequestTimeout    time.Duration
	MaxBodyBytes      int64

	Consent  ConsentConfig
	Scripts  ScriptsConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
}

// ConsentConfig tunes record lifetime and audit hashing.
type ConsentConfig struct {
	// Retention overrides the regional retention when positive.
	Retention      time.Duration
	AuditIPHashKey string
	AuditBuffer    int
}

// ScriptsConfig carries the gated integration identifiers. Empty disables the
// integration.
type ScriptsConfig struct {
	GAMeasurementID string
	MetaPixelID     string
	HotjarSiteID    string
	AffiliateTagURL string
}

// RedisConfig configures the device mirror.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MirrorTTL    time.Duration
}

// DatabaseConfig configures the audit database.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// KafkaConfig configures the audit topic producer.
type KafkaConfig struct {
	Brokers           string
	AuditTopic        string
	Acks              string
	Retries           int
	DeliveryTimeout   time.Duration
	TopicPartitions   int32
	ReplicationFactor int16
}

// Production reports whether cookies must be marked Secure.
func (s Server) Production() bool {
	return s.Environment == "production"
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:              getEnv("COOKIEGATE_ADDR", ":8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		CountryHeader:     getEnv("COUNTRY_HEADER", "CF-IPCountry"),
		TrustedProxies:    os.Getenv("TRUSTED_PROXIES"),
		CORSAllowedOrigin: os.Getenv("CORS_ALLOWED_ORIGIN"),
		InternalToken:     os.Getenv("INTERNAL_API_TOKEN"),
		ShutdownTimeout:   getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		RequestTimeout:    getDuration("REQUEST_TIMEOUT", 5*time.Second),
		MaxBodyBytes:      int64(getInt("MAX_BODY_BYTES", 16<<10)),
		Consent: ConsentConfig{
			Retention:      getDuration("CONSENT_RETENTION", 0),
			AuditIPHashKey: os.Getenv("AUDIT_IP_HASH_KEY"),
			AuditBuffer:    getInt("AUDIT_BUFFER", 1024),
		},
		Scripts: ScriptsConfig{
			GAMeasurementID: os.Getenv("GA_MEASUREMENT_ID"),
			MetaPixelID:     os.Getenv("META_PIXEL_ID"),
			HotjarSiteID:    os.Getenv("HOTJAR_SITE_ID"),
			AffiliateTagURL: os.Getenv("AFFILIATE_TAG_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			MirrorTTL:    getDuration("REDIS_MIRROR_TTL", 365*24*time.Hour),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:           os.Getenv("KAFKA_BROKERS"),
			AuditTopic:        getEnv("KAFKA_AUDIT_TOPIC", "cookiegate.consent.audit"),
			Acks:              getEnv("KAFKA_ACKS", "all"),
			Retries:           getInt("KAFKA_RETRIES", 3),
			DeliveryTimeout:   getDuration("KAFKA_DELIVERY_TIMEOUT", 30*time.Second),
			TopicPartitions:   int32(getInt("KAFKA_TOPIC_PARTITIONS", 3)),
			ReplicationFactor: int16(getInt("KAFKA_REPLICATION_FACTOR", 1)),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
