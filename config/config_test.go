package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 50, cfg.DB.MaxOpenConns)
	assert.Equal(t, time.Hour, cfg.DB.ConnMaxLifetime)
	assert.Equal(t, 24*time.Hour, cfg.Redis.IdempotencyTTL)
	assert.Equal(t, "recipient-notifications", cfg.Azure.QueueName)
	assert.Equal(t, 4, cfg.Azure.Workers)
	assert.Equal(t, "reject", cfg.Recipients.RemovalPolicy)
	assert.Equal(t, 5*time.Minute, cfg.Worker.ReindexInterval)
	assert.Equal(t, time.Minute, cfg.Worker.ReindexLookback)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
server:
  address: 127.0.0.1:9000
database:
  dsn: postgresql://app@db:5432/seal
  auto_migrate: true
recipients:
  removal_policy: cascade
elastic:
  prefix: staging
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	assert.Equal(t, "postgresql://app@db:5432/seal", cfg.DB.DSN)
	assert.True(t, cfg.DB.AutoMigrate)
	assert.Equal(t, "cascade", cfg.Recipients.RemovalPolicy)
	assert.Equal(t, "staging-envelopes", FormatIndex(cfg.Elastic, cfg.Elastic.Index))
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("DOKUSEAL_DATABASE_DSN", "postgresql://env@db/seal")
	t.Setenv("DOKUSEAL_AZURE_WORKERS", "9")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "postgresql://env@db/seal", cfg.DB.DSN)
	assert.Equal(t, 9, cfg.Azure.Workers)
}

func TestFormatIndex(t *testing.T) {
	assert.Equal(t, "envelopes", FormatIndex(ElasticConfig{}, "envelopes"))
	assert.Equal(t, "seal-envelopes", FormatIndex(ElasticConfig{Prefix: "seal"}, "envelopes"))
}
