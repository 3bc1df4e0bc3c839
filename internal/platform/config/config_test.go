package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	t.Setenv("JOJO_ENV", "development")

	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Minute, cfg.Verification.CodeTTL)
	assert.Equal(t, 5, cfg.Verification.CodeMaxAttempts)
	assert.Equal(t, 3, cfg.Verification.SendLimit)
	assert.Equal(t, 15*time.Minute, cfg.Verification.SendWindow)
	assert.Equal(t, int64(10<<20), cfg.Verification.UploadMaxBytes)
	assert.Zero(t, cfg.Verification.AuditBuffer)
	assert.NotEmpty(t, cfg.Auth.JWTSigningKey, "development falls back to a dev key")
}

func TestFromViper_EnvOverrides(t *testing.T) {
	t.Setenv("JOJO_ENV", "development")
	t.Setenv("JOJO_ADDR", ":9090")
	t.Setenv("JOJO_CODE_TTL", "2m")
	t.Setenv("JOJO_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("JOJO_TRUSTED_PROXIES", "10.0.0.0/8")
	t.Setenv("JOJO_AUDIT_BUFFER", "512")

	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 2*time.Minute, cfg.Verification.CodeTTL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Server.TrustedProxies)
	assert.Equal(t, 512, cfg.Verification.AuditBuffer)
}

func TestFromViper_ProductionRequiresBackends(t *testing.T) {
	t.Setenv("JOJO_ENV", "production")
	t.Setenv("JOJO_JWT_SIGNING_KEY", "prod-key")

	_, err := FromViper(newViper())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JOJO_MONGO_URI")

	t.Setenv("JOJO_MONGO_URI", "mongodb://mongo:27017")
	t.Setenv("JOJO_REDIS_URL", "redis://redis:6379/0")
	cfg, err := FromViper(newViper())
	require.NoError(t, err)
	assert.False(t, cfg.Server.IsDevelopment())
}

func TestFromViper_ProductionRequiresSigningKey(t *testing.T) {
	t.Setenv("JOJO_ENV", "production")
	t.Setenv("JOJO_JWT_SIGNING_KEY", "")

	_, err := FromViper(newViper())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JOJO_JWT_SIGNING_KEY")
}
