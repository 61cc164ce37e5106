package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 3, cfg.Checkout.MaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.Checkout.IdempotencyTTL)
	assert.Equal(t, "order.status_commands", cfg.Kafka.TopicStatusCommand)
}

func TestLoadEnvFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: memory
kafka:
  brokers: [k1:9092, k2:9092]
  topic_low_stock: kitchen.low_stock
checkout:
  max_attempts: 5
  lock_timeout: 750ms
outbox:
  batch_size: 20
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("CHECKOUT_MAX_ATTEMPTS", "4")
	t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")
	t.Setenv("GRPC_PORT", ":9000")

	cfg, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "kitchen.low_stock", cfg.Kafka.TopicLowStock)
	assert.Equal(t, "order.created", cfg.Kafka.TopicOrderCreated)
	assert.Equal(t, 750*time.Millisecond, cfg.Checkout.LockTimeout)
	assert.Equal(t, 4, cfg.Checkout.MaxAttempts)
	assert.Equal(t, 20, cfg.Outbox.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Outbox.PollInterval)
	assert.Equal(t, ":9000", cfg.Server.GRPCPort)
}

func TestLoadEnvRejectsUnknownDriver(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORE_DRIVER", "sqlite")

	_, err := LoadEnv()
	assert.Error(t, err)
}

func TestLoadEnvMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := LoadEnv()
	assert.Error(t, err)
}
