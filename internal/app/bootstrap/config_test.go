package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigLayersFileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
service:
  http_port: 8181
storage:
  driver: memory
dependencies:
  kafka_brokers: [" kafka-1:9092 ", ""]
  kafka_topic_settlement_milestone: settlement.milestones.v1
workers:
  outbox_batch_size: 25
settlement:
  breakdown_cache_ttl_hours: 2
`)
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "webhook-secret")
	t.Setenv("HTTP_PORT", "9191")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.Equal(t, 9191, cfg.HTTPPort)
	assert.Equal(t, []string{"kafka-1:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 25, cfg.OutboxBatchSize)
	assert.Equal(t, 2*time.Hour, cfg.BreakdownCacheTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "settlement.milestones.v1", cfg.TopicByEvent()[domain.EventSettlementMilestone])
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DB_URL", "postgres://localhost:5432/settlement")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "webhook-secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.Equal(t, "postgres://localhost:5432/settlement", cfg.DatabaseURL)
	assert.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "webhook-secret")

	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DB_URL", "")
	t.Setenv("POSTGRES_URL", "")
	_, err := LoadConfig(writeConfig(t, "service:\n  id: test\n"))
	assert.ErrorContains(t, err, "DB_URL")

	t.Setenv("STORAGE_DRIVER", "sqlite")
	_, err = LoadConfig(writeConfig(t, "service:\n  id: test\n"))
	assert.ErrorContains(t, err, "unsupported STORAGE_DRIVER")

	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "")
	_, err = LoadConfig(writeConfig(t, "service:\n  id: test\n"))
	assert.ErrorContains(t, err, "PAYMENT_WEBHOOK_SECRET")
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "service: [unclosed"))
	assert.ErrorContains(t, err, "parse config file")
}
