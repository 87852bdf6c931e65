package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "sd-prompt-enhancer/backend/pkg/errors"
)

func TestLoad_OllamaDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_BASE_URL", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_TIMEOUT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, "http://localhost:11434/v1", cfg.LLMBaseURL)
	assert.Equal(t, "llama2-uncensored:latest", cfg.ModelID)
	assert.Equal(t, 120*time.Second, cfg.LLMTimeout)
	assert.Equal(t, "enhanced_prompts.txt", cfg.OutputFile)
	assert.NoError(t, cfg.CredentialsError())
}

func TestLoad_KeyedProviderWithoutKey(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LLM_BASE_URL", "")
	t.Setenv("LLM_MODEL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLMBaseURL)
	assert.Equal(t, "gpt-4", cfg.ModelID)

	credErr := cfg.CredentialsError()
	var missing *apperrors.ErrConfigMissingRequired
	require.ErrorAs(t, credErr, &missing)
	assert.Equal(t, "OPENAI_API_KEY", missing.Field)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GOOGLE_API_KEY", "secret")
	t.Setenv("LLM_BASE_URL", "http://proxy.local/v1/")
	t.Setenv("LLM_MODEL", "gemini-custom")
	t.Setenv("LLM_TIMEOUT", "30")
	t.Setenv("LLM_TEMPERATURE", "0.2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://proxy.local/v1", cfg.LLMBaseURL)
	assert.Equal(t, "gemini-custom", cfg.ModelID)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.InDelta(t, 0.2, cfg.LLMTemperature, 1e-9)
	assert.NoError(t, cfg.CredentialsError())
}

func TestValidate_Rejects(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "bard")
	_, err := Load()
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConfig))

	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("LLM_TIMEOUT", "0")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_TIMEOUT")
}
