package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"COOKIEGATE_ADDR", "ENVIRONMENT", "CONSENT_RETENTION", "GA_MEASUREMENT_ID", "KAFKA_AUDIT_TOPIC", "INTERNAL_API_TOKEN"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.Production())
	assert.Zero(t, cfg.Consent.Retention)
	assert.Empty(t, cfg.Scripts.GAMeasurementID)
	assert.Empty(t, cfg.InternalToken)
	assert.Equal(t, "cookiegate.consent.audit", cfg.Kafka.AuditTopic)
	assert.Equal(t, 365*24*time.Hour, cfg.Redis.MirrorTTL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("COOKIEGATE_ADDR", ":9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("CONSENT_RETENTION", "2160h")
	t.Setenv("GA_MEASUREMENT_ID", "G-ABC")
	t.Setenv("REDIS_POOL_SIZE", "not-a-number")
	t.Setenv("KAFKA_TOPIC_PARTITIONS", "6")
	t.Setenv("INTERNAL_API_TOKEN", "s3cret")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.True(t, cfg.Production())
	assert.Equal(t, 90*24*time.Hour, cfg.Consent.Retention)
	assert.Equal(t, "G-ABC", cfg.Scripts.GAMeasurementID)
	assert.Equal(t, 10, cfg.Redis.PoolSize, "invalid values fall back to defaults")
	assert.Equal(t, int32(6), cfg.Kafka.TopicPartitions)
	assert.Equal(t, "s3cret", cfg.InternalToken)
}
