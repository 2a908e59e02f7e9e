package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Run from an empty dir so no stray contentpilot.yaml or .env is picked up
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Run("LoadDefaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, DefaultCallTimeout, cfg.Pipeline.CallTimeout)
		assert.Equal(t, ResearchTTL, cfg.Pipeline.ResearchTTL)
		assert.Equal(t, MaxConcurrentJobs, cfg.Pipeline.MaxConcurrentJobs)
		assert.Equal(t, DefaultCronSchedule, cfg.Scheduler.Cron)
		assert.Equal(t, "images/", cfg.S3.Prefix)
		assert.False(t, cfg.Kafka.Enabled())
		assert.False(t, cfg.Scheduler.StrictValidation)
	})

	t.Run("FileOverrides", func(t *testing.T) {
		path := filepath.Join(dir, "custom.yaml")
		raw := []byte("server:\n  port: 9000\nscheduler:\n  strict_validation: true\npipeline:\n  call_timeout: 5s\n")
		require.NoError(t, os.WriteFile(path, raw, 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.True(t, cfg.Scheduler.StrictValidation)
		assert.Equal(t, 5*time.Second, cfg.Pipeline.CallTimeout)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("CONTENTPILOT_LOGGING_LEVEL", "warn")
		t.Setenv("CONTENTPILOT_KAFKA_BROKERS", "k1:9092, k2:9092")
		t.Setenv("CONTENTPILOT_PROVIDERS_COHERE_API_KEY", "secret")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, "secret", cfg.Providers.Cohere.APIKey)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yaml"))
		require.Error(t, err)
	})
}
