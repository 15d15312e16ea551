package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/loopapp/loop-vision/internal/vision"
	"github.com/spf13/viper"
)

const (
	AppName     = "loop-vision"
	EnvFileName = "config.env"
	EnvPrefix   = "LOOP_VISION"
)

// Config holds all configuration for the service and the CLI tools.
type Config struct {
	Provider   ProviderConfig   `mapstructure:"provider"`
	Generation GenerationConfig `mapstructure:"generation"`
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Images     ImagesConfig     `mapstructure:"images"`
}

// ProviderConfig selects and authenticates the model service.
type ProviderConfig struct {
	Name    string `mapstructure:"name"` // "gemini" or "openai"
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	// RequestTimeout bounds one model call. Zero disables the timeout.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type GenerationConfig struct {
	Temperature     float32 `mapstructure:"temperature"`
	TopP            float32 `mapstructure:"top_p"`
	TopK            int32   `mapstructure:"top_k"`
	MaxOutputTokens int32   `mapstructure:"max_output_tokens"`
}

// Vision converts the section into the analyzer's sampling settings.
func (g GenerationConfig) Vision() vision.GenerationConfig {
	return vision.GenerationConfig{
		Temperature:     g.Temperature,
		TopP:            g.TopP,
		TopK:            g.TopK,
		MaxOutputTokens: g.MaxOutputTokens,
	}
}

type ServerConfig struct {
	Port        string `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
}

// StorageConfig points at the optional item ledger. An empty DSN disables it.
type StorageConfig struct {
	DSN string `mapstructure:"dsn"`
}

type ImagesConfig struct {
	MaxDownloadBytes int64 `mapstructure:"max_download_bytes"`
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory and from .env in the working directory. Errors are
// ignored since the files may not exist. Variables already set win.
func LoadEnvFile() {
	if configBase, err := os.UserConfigDir(); err == nil {
		_ = godotenv.Load(filepath.Join(configBase, AppName, EnvFileName))
	}
	_ = godotenv.Load(".env")
}

// Load reads configuration from LOOP_VISION_* environment variables, an
// optional config.yaml and defaults. Environment variables take precedence.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if configBase, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configBase, AppName))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.Provider.Name = strings.ToLower(strings.TrimSpace(cfg.Provider.Name))
	if cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = ProviderAPIKey(cfg.Provider.Name)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider.name", vision.ProviderGemini)
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.model", "")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.request_timeout", "0s")

	def := vision.DefaultGenerationConfig()
	v.SetDefault("generation.temperature", def.Temperature)
	v.SetDefault("generation.top_p", def.TopP)
	v.SetDefault("generation.top_k", def.TopK)
	v.SetDefault("generation.max_output_tokens", def.MaxOutputTokens)

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")

	v.SetDefault("storage.dsn", "")

	v.SetDefault("images.max_download_bytes", vision.DefaultMaxImageSize)
}

// providerKeyEnv is the conventional API key variable of each provider.
func providerKeyEnv(provider string) string {
	if provider == vision.ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return "GEMINI_API_KEY"
}

// ProviderAPIKey returns the key from the provider's conventional variable.
func ProviderAPIKey(provider string) string {
	return os.Getenv(providerKeyEnv(provider))
}

func validate(cfg *Config) error {
	switch cfg.Provider.Name {
	case vision.ProviderGemini, vision.ProviderOpenAI:
	default:
		return fmt.Errorf("provider must be '%s' or '%s', got: %s", vision.ProviderGemini, vision.ProviderOpenAI, cfg.Provider.Name)
	}

	if cfg.Provider.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must not be negative, got: %s", cfg.Provider.RequestTimeout)
	}

	g := cfg.Generation
	if g.Temperature < 0 || g.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got: %v", g.Temperature)
	}
	if g.TopP < 0 || g.TopP > 1 {
		return fmt.Errorf("top_p must be between 0 and 1, got: %v", g.TopP)
	}
	if g.TopK < 0 {
		return fmt.Errorf("top_k must not be negative, got: %d", g.TopK)
	}
	if g.MaxOutputTokens <= 0 {
		return fmt.Errorf("max_output_tokens must be positive, got: %d", g.MaxOutputTokens)
	}

	if cfg.Images.MaxDownloadBytes <= 0 {
		return fmt.Errorf("max_download_bytes must be positive, got: %d", cfg.Images.MaxDownloadBytes)
	}

	return nil
}

// RequireAPIKey reports a missing provider key. Only commands that call the
// model service need one.
func (c *Config) RequireAPIKey() error {
	if c.Provider.APIKey == "" {
		return fmt.Errorf("API key is required (set %s_PROVIDER_API_KEY or %s)", EnvPrefix, providerKeyEnv(c.Provider.Name))
	}
	return nil
}
