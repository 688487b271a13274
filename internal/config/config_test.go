package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "aletheia", cfg.Name)
	assert.Equal(t, 3, cfg.Evolution.MinPrinciples)
	assert.Equal(t, 10, cfg.Evolution.MaxPrinciples)
	assert.Equal(t, 4, cfg.Oracle.MaxWorkers)
	assert.Equal(t, 15, cfg.Oracle.OversampleFactor)
	assert.InDelta(t, 0.2, cfg.Evolution.CoverageGapThreshold, 1e-9)
	assert.InDelta(t, 0.7, cfg.Evolution.DuplicateOverlapRatio, 1e-9)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope", "config.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Oracle.MaxWorkers, cfg.Oracle.MaxWorkers)
}

func TestLoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".aletheia", "config.json")

	cfg := DefaultConfig()
	cfg.Evolution.MaxPrinciples = 8
	cfg.Oracle.FrameworkTimeout = "15s"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, loaded.Evolution.MaxPrinciples)
	assert.Equal(t, 15*time.Second, loaded.GetFrameworkTimeout())
}

func TestEnvOverrides(t *testing.T) {
	os.Setenv("ALETHEIA_GEMINI_API_KEY", "test-key-123")
	os.Setenv("ALETHEIA_DB", "/tmp/override.db")
	defer os.Unsetenv("ALETHEIA_GEMINI_API_KEY")
	defer os.Unsetenv("ALETHEIA_DB")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.Equal(t, "test-key-123", cfg.LLM.APIKey)
	assert.Equal(t, "test-key-123", cfg.Embedding.GenAIAPIKey)
	assert.Equal(t, "/tmp/override.db", cfg.Store.DatabasePath)
}

func TestTimeoutFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Timeout = "garbage"
	cfg.Oracle.FrameworkTimeout = ""
	cfg.Embedding.CacheTTL = "-5s"

	assert.Equal(t, 60*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, 30*time.Second, cfg.GetFrameworkTimeout())
	assert.Equal(t, 24*time.Hour, cfg.GetCacheTTL())
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Evolution.MinPrinciples = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Evolution.MaxPrinciples = 2
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Store.DatabasePath = ""
	assert.Error(t, cfg.Validate())
}
