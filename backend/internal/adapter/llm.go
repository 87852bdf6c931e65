package adapter

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"sd-prompt-enhancer/backend/internal/constants"
	"sd-prompt-enhancer/backend/internal/prompt"
	apperrors "sd-prompt-enhancer/backend/pkg/errors"
	"sd-prompt-enhancer/backend/pkg/logger"
)

// Options configures an LLMAdapter
type Options struct {
	BaseURL     string // OpenAI-compatible root, e.g. http://localhost:11434/v1
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float32
	Logger      *zap.Logger
}

// LLMAdapter sends one system/user pair to an OpenAI-compatible chat
// completions endpoint (OpenAI, Ollama, or Gemini's compatibility layer).
type LLMAdapter struct {
	client      *openai.Client
	endpoint    string
	timeout     time.Duration
	temperature float32
	model       string
	mu          sync.RWMutex // Protects model field for concurrent access
	logger      *zap.Logger
}

// NewLLMAdapter creates a new LLM adapter
func NewLLMAdapter(opts Options) *LLMAdapter {
	// Local backends such as Ollama ignore the key, but the client requires one
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = "dummy-key"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultLLMTimeout
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	config.HTTPClient = &http.Client{Timeout: timeout}

	return &LLMAdapter{
		client:      openai.NewClientWithConfig(config),
		endpoint:    baseURL + "/chat/completions",
		timeout:     timeout,
		temperature: opts.Temperature,
		model:       opts.Model,
		logger:      logger.OrDefault(opts.Logger),
	}
}

// SetModel updates the model used by this adapter
func (a *LLMAdapter) SetModel(model string) {
	if model != "" {
		a.mu.Lock()
		a.model = model
		a.mu.Unlock()
		a.logger.Debug("LLM adapter model updated", zap.String("model", model))
	}
}

// GetModel returns the current model
func (a *LLMAdapter) GetModel() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}

// Endpoint returns the chat completions URL requests are sent to
func (a *LLMAdapter) Endpoint() string {
	return a.endpoint
}

// Complete sends exactly one system message and one user message and returns
// choices[0].message.content, trimmed. The call is bounded by the adapter
// timeout; failures come back as connection, timeout, status or
// response-shape errors.
func (a *LLMAdapter) Complete(ctx context.Context, payload prompt.Payload) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	currentModel := a.GetModel()

	req := openai.ChatCompletionRequest{
		Model: currentModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: payload.System,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: payload.User,
			},
		},
		Temperature: a.temperature,
		Stream:      false,
	}

	a.logger.Debug("Sending prompt to LLM",
		zap.String("model", currentModel),
		zap.String("endpoint", a.endpoint),
		zap.String("system", truncateString(payload.System, 120)),
		zap.String("user", truncateString(payload.User, 120)),
	)

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		classified := a.classify(err)
		a.logger.Error("LLM request failed",
			zap.Error(err),
			zap.String("model", currentModel),
			zap.String("endpoint", a.endpoint),
			zap.String("error_type", string(apperrors.TypeOf(classified))),
			zap.Duration("elapsed", time.Since(start)),
		)
		return "", classified
	}

	if len(resp.Choices) == 0 {
		return "", apperrors.NewResponseShape("no choices in response", nil)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", apperrors.NewResponseShape("choices[0].message.content is empty", nil)
	}

	a.logger.Debug("LLM response generated",
		zap.String("model", currentModel),
		zap.Int("length", len(content)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return content, nil
}

// classify maps a go-openai / net/http failure onto the error taxonomy
func (a *LLMAdapter) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apperrors.NewStatusError(a.endpoint, apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return apperrors.NewStatusError(a.endpoint, reqErr.HTTPStatusCode, "", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeout(a.endpoint, a.timeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return apperrors.NewTimeout(a.endpoint, a.timeout, err)
		}
		return apperrors.NewConnectionFailed(a.endpoint, err)
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.NewConnectionFailed(a.endpoint, err)
	}

	// Everything else happened while decoding a 2xx body
	return apperrors.NewResponseShape("invalid JSON body", err)
}

// truncateString truncates a string for logging
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
