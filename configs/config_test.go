package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DIRECT_URL", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/cirqle")
	t.Setenv("TIMELINE_CACHE_TTL", "bogus")
	t.Setenv("AUTO_MIGRATE", "true")

	cfg := LoadConfig()
	assert.Equal(t, "postgres://localhost/cirqle", cfg.DatabaseURL)
	assert.Equal(t, 2*time.Minute, cfg.TimelineTTL)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, "cirqle.events", cfg.KafkaTopic)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
}

func TestDirectURLWins(t *testing.T) {
	t.Setenv("DIRECT_URL", "postgres://direct/cirqle")
	t.Setenv("DATABASE_URL", "postgres://pooled/cirqle")
	assert.Equal(t, "postgres://direct/cirqle", LoadConfig().DatabaseURL)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.Validate())
	cfg.DatabaseURL = "postgres://x"
	assert.Error(t, cfg.Validate())
	cfg.JWTSecret = "s"
	assert.NoError(t, cfg.Validate())
}

func TestLoadClientConfig(t *testing.T) {
	t.Run("missing file keeps defaults", func(t *testing.T) {
		t.Setenv("CIRQLE_TOKEN", "")
		cfg, err := LoadClientConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultClientConfig(), cfg)
	})

	t.Run("file and env override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cirqle.yaml")
		require.NoError(t, os.WriteFile(path, []byte("base_url: https://cirqle.example\ntimeout: 5s\ntoken: from-file\n"), 0o600))
		t.Setenv("CIRQLE_TOKEN", "from-env")

		cfg, err := LoadClientConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "https://cirqle.example", cfg.BaseURL)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
		assert.Equal(t, "from-env", cfg.Token)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("base_url: ["), 0o600))
		_, err := LoadClientConfig(path)
		assert.Error(t, err)
	})
}
