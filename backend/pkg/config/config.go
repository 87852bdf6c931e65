package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "sd-prompt-enhancer/backend/pkg/errors"
)

// Supported LLM providers
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// providerPreset holds the defaults applied when LLM_BASE_URL / LLM_MODEL are unset
type providerPreset struct {
	baseURL string
	model   string
	keyEnv  string // empty when the provider needs no credentials
}

var providerPresets = map[string]providerPreset{
	ProviderOllama: {baseURL: "http://localhost:11434/v1", model: "llama2-uncensored:latest"},
	ProviderOpenAI: {baseURL: "https://api.openai.com/v1", model: "gpt-4", keyEnv: "OPENAI_API_KEY"},
	ProviderGemini: {baseURL: "https://generativelanguage.googleapis.com/v1beta/openai", model: "gemini-1.5-pro-latest", keyEnv: "GOOGLE_API_KEY"},
}

// Config holds all application configuration
type Config struct {
	// App
	Port     string
	Env      string
	LogLevel string

	// LLM backend
	Provider       string
	LLMBaseURL     string
	ModelID        string
	APIKey         string
	APIKeyEnv      string // name of the variable APIKey was read from
	LLMTimeout     time.Duration
	LLMTemperature float64

	// Asset catalogs
	CheckpointDir   string
	LoraDir         string
	StyleDir        string
	LoraTriggerFile string
	StylesFile      string // optional YAML overrides for the style instruction table

	// Output log
	OutputFile string

	// Discord
	DiscordBotToken      string
	DiscordCommandPrefix string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	provider := strings.ToLower(getEnv("LLM_PROVIDER", ProviderOllama))
	preset := providerPresets[provider]

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		Env:                  getEnv("ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", ""),
		Provider:             provider,
		LLMBaseURL:           strings.TrimRight(getEnv("LLM_BASE_URL", preset.baseURL), "/"),
		ModelID:              getEnv("LLM_MODEL", preset.model),
		APIKeyEnv:            preset.keyEnv,
		LLMTimeout:           time.Duration(getEnvInt("LLM_TIMEOUT", 120)) * time.Second,
		LLMTemperature:       getEnvFloat("LLM_TEMPERATURE", 0.7),
		CheckpointDir:        getEnv("CHECKPOINT_DIR", "models/checkpoints"),
		LoraDir:              getEnv("LORA_DIR", "models/loras"),
		StyleDir:             getEnv("STYLE_DIR", "sdxl_styles"),
		LoraTriggerFile:      getEnv("LORA_TRIGGER_FILE", "loras.json"),
		StylesFile:           getEnv("STYLES_FILE", ""),
		OutputFile:           getEnv("OUTPUT_FILE", "enhanced_prompts.txt"),
		DiscordBotToken:      getEnv("DISCORD_BOT_TOKEN", ""),
		DiscordCommandPrefix: getEnv("DISCORD_COMMAND_PREFIX", "!"),
	}
	if preset.keyEnv != "" {
		cfg.APIKey = getEnv(preset.keyEnv, "")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks structural settings. Missing credentials are not a validation
// failure; see CredentialsError.
func (c *Config) Validate() error {
	if _, ok := providerPresets[c.Provider]; !ok {
		return apperrors.NewConfigValidationFailed("LLM_PROVIDER", fmt.Sprintf("unknown provider %q", c.Provider))
	}
	if c.LLMBaseURL == "" {
		return apperrors.NewConfigMissingRequired("LLM_BASE_URL")
	}
	if c.ModelID == "" {
		return apperrors.NewConfigMissingRequired("LLM_MODEL")
	}
	if c.LLMTimeout <= 0 {
		return apperrors.NewConfigValidationFailed("LLM_TIMEOUT", "must be positive")
	}
	if c.OutputFile == "" {
		return apperrors.NewConfigMissingRequired("OUTPUT_FILE")
	}
	return nil
}

// CredentialsError reports a missing API key for providers that need one.
// The process keeps running with submission disabled.
func (c *Config) CredentialsError() error {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		return apperrors.NewConfigMissingRequired(c.APIKeyEnv)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
