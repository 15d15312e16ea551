package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loopapp/loop-vision/internal/vision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with no inherited settings.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"LOOP_VISION_PROVIDER_NAME",
		"LOOP_VISION_PROVIDER_API_KEY",
		"LOOP_VISION_PROVIDER_MODEL",
		"LOOP_VISION_PROVIDER_REQUEST_TIMEOUT",
		"LOOP_VISION_GENERATION_TEMPERATURE",
		"LOOP_VISION_GENERATION_TOP_P",
		"LOOP_VISION_GENERATION_MAX_OUTPUT_TOKENS",
		"LOOP_VISION_SERVER_PORT",
		"LOOP_VISION_STORAGE_DSN",
		"GEMINI_API_KEY",
		"OPENAI_API_KEY",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, vision.ProviderGemini, cfg.Provider.Name)
	assert.Empty(t, cfg.Provider.APIKey)
	assert.Equal(t, time.Duration(0), cfg.Provider.RequestTimeout)
	assert.Equal(t, vision.DefaultGenerationConfig(), cfg.Generation.Vision())
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Empty(t, cfg.Storage.DSN)
	assert.Equal(t, int64(vision.DefaultMaxImageSize), cfg.Images.MaxDownloadBytes)

	require.Error(t, cfg.RequireAPIKey())
}

func TestLoad_Environment(t *testing.T) {
	isolate(t)
	t.Setenv("LOOP_VISION_PROVIDER_NAME", "OpenAI")
	t.Setenv("LOOP_VISION_PROVIDER_API_KEY", "sk-test")
	t.Setenv("LOOP_VISION_PROVIDER_MODEL", "gpt-4o")
	t.Setenv("LOOP_VISION_PROVIDER_REQUEST_TIMEOUT", "45s")
	t.Setenv("LOOP_VISION_GENERATION_TEMPERATURE", "0.3")
	t.Setenv("LOOP_VISION_SERVER_PORT", "9090")
	t.Setenv("LOOP_VISION_STORAGE_DSN", "items.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, vision.ProviderOpenAI, cfg.Provider.Name)
	assert.Equal(t, "sk-test", cfg.Provider.APIKey)
	assert.Equal(t, "gpt-4o", cfg.Provider.Model)
	assert.Equal(t, 45*time.Second, cfg.Provider.RequestTimeout)
	assert.InDelta(t, 0.3, cfg.Generation.Temperature, 1e-6)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "items.db", cfg.Storage.DSN)
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestLoad_ProviderKeyFallback(t *testing.T) {
	isolate(t)
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini-key", cfg.Provider.APIKey)

	t.Setenv("LOOP_VISION_PROVIDER_NAME", "openai")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "openai-key", cfg.Provider.APIKey)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := isolate(t)
	yaml := `
provider:
  name: gemini
  model: gemini-2.5-pro
generation:
  max_output_tokens: 1024
storage:
  dsn: ledger.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("LOOP_VISION_STORAGE_DSN", "override.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", cfg.Provider.Model)
	assert.Equal(t, int32(1024), cfg.Generation.MaxOutputTokens)
	assert.Equal(t, "override.db", cfg.Storage.DSN)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown provider", "LOOP_VISION_PROVIDER_NAME", "claude"},
		{"negative timeout", "LOOP_VISION_PROVIDER_REQUEST_TIMEOUT", "-1s"},
		{"temperature too high", "LOOP_VISION_GENERATION_TEMPERATURE", "3"},
		{"top_p too high", "LOOP_VISION_GENERATION_TOP_P", "1.5"},
		{"no output tokens", "LOOP_VISION_GENERATION_MAX_OUTPUT_TOKENS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := isolate(t)

	configDir, err := os.UserConfigDir()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(configDir, AppName), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, AppName, EnvFileName),
		[]byte("LOOP_VISION_PROVIDER_MODEL=from-user-config\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("# local overrides\nLOOP_VISION_SERVER_PORT=7070\nLOOP_VISION_PROVIDER_MODEL=from-dotenv\nLOOP_VISION_STORAGE_DSN=dotenv.db\n"), 0o644))
	t.Setenv("LOOP_VISION_STORAGE_DSN", "existing.db")

	LoadEnvFile()
	t.Cleanup(func() {
		os.Unsetenv("LOOP_VISION_PROVIDER_MODEL")
		os.Unsetenv("LOOP_VISION_SERVER_PORT")
	})

	assert.Equal(t, "from-user-config", os.Getenv("LOOP_VISION_PROVIDER_MODEL"))
	assert.Equal(t, "7070", os.Getenv("LOOP_VISION_SERVER_PORT"))
	assert.Equal(t, "existing.db", os.Getenv("LOOP_VISION_STORAGE_DSN"))
}
