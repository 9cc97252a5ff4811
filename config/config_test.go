package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
logger:
  level: debug
  encoding: console
database:
  host: db.internal
  user: mess
  password: secret
cache:
  rating_ttl: 10m
menu:
  messes:
    - name: mess1
      display_name: Food Sutra
      floors: [Ground, First]
scheduler:
  aggregate_spec: "@every 30m"
digest:
  api_key: gsk_test
kafka:
  enabled: true
  brokers: [kafka-1:9092]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "messcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, 10*time.Minute, cfg.Cache.RatingTTL)
	assert.Equal(t, time.Hour, cfg.Cache.PollTTL)
	assert.Equal(t, "@every 30m", cfg.Scheduler.AggregateSpec)
	assert.Equal(t, "0 0 0 * * *", cfg.Scheduler.CleanupSpec)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Digest.Model)
	assert.Equal(t, []string{"kafka-1:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "mess.notifications", cfg.Kafka.Topic)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)

	require.Len(t, cfg.Menu.Messes, 1)
	assert.Equal(t, cfg.Menu.Messes, cfg.Scheduler.Messes)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MESS_DATABASE_HOST", "env-db")
	t.Setenv("MESS_DATABASE_USER", "env-user")
	t.Setenv("MESS_CACHE_PAYMENT_TTL", "15m")
	t.Setenv("MESS_HTTP_ADDR", ":8081")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-db", cfg.Database.Host)
	assert.Equal(t, "env-user", cfg.Database.User)
	assert.Equal(t, 15*time.Minute, cfg.Cache.PaymentTTL)
	assert.Equal(t, ":8081", cfg.HTTP.Addr)
	assert.Len(t, cfg.Scheduler.Messes, 2)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, "logger:\n  level: loud\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: invalid")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read")
}

func TestValidate_SkipsDisabledSections(t *testing.T) {
	cfg := (&Config{}).MergeDefaults()
	cfg.Database.Host = "h"
	cfg.Database.User = "u"
	assert.NoError(t, cfg.Validate())

	cfg.ClickHouse.Enabled = true
	assert.Error(t, cfg.Validate())
}
