package enhancer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sd-prompt-enhancer/backend/internal/catalog"
	"sd-prompt-enhancer/backend/internal/prompt"
	"sd-prompt-enhancer/backend/internal/state"
	apperrors "sd-prompt-enhancer/backend/pkg/errors"
	"sd-prompt-enhancer/backend/pkg/logger"
)

// Completer performs the backend call for one composed payload
type Completer interface {
	Complete(ctx context.Context, payload prompt.Payload) (string, error)
}

// TriggerResolver resolves the trigger phrase for a LoRA name
type TriggerResolver interface {
	Trigger(lora string) string
}

// Options configures an Enhancer
type Options struct {
	Styles   *prompt.StyleTable
	Triggers TriggerResolver
	LLM      Completer
	// Disabled, when set, is the configuration error that keeps submissions off
	Disabled error
	Logger   *zap.Logger
}

// Enhancer turns an EnhancementRequest into a formatted prompt:
// validate, compose, call the backend, format.
type Enhancer struct {
	styles   *prompt.StyleTable
	triggers TriggerResolver
	llm      Completer
	disabled error
	logger   *zap.Logger
}

// New creates an Enhancer
func New(opts Options) *Enhancer {
	styles := opts.Styles
	if styles == nil {
		styles = prompt.DefaultStyleTable()
	}
	return &Enhancer{
		styles:   styles,
		triggers: opts.Triggers,
		llm:      opts.LLM,
		disabled: opts.Disabled,
		logger:   logger.OrDefault(opts.Logger),
	}
}

// Styles returns the style table requests are checked against
func (e *Enhancer) Styles() *prompt.StyleTable {
	return e.styles
}

// SubmissionEnabled reports whether requests can reach the backend
func (e *Enhancer) SubmissionEnabled() bool {
	return e.disabled == nil && e.llm != nil
}

// DisabledReason returns the configuration error that disabled submission, if any
func (e *Enhancer) DisabledReason() error {
	if e.disabled != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrSubmissionDisabled, e.disabled)
	}
	if e.llm == nil {
		return apperrors.ErrSubmissionDisabled
	}
	return nil
}

// Prepare validates a request and builds the payload for the backend and the
// decoration applied to its reply. It never touches the network.
func (e *Enhancer) Prepare(req state.EnhancementRequest) (prompt.Payload, prompt.Decoration, error) {
	if err := e.DisabledReason(); err != nil {
		return prompt.Payload{}, prompt.Decoration{}, err
	}
	if err := req.Validate(); err != nil {
		return prompt.Payload{}, prompt.Decoration{}, err
	}

	style := req.StyleOrDefault()
	styleInstruction, ok := e.styles.Instruction(style)
	if !ok {
		return prompt.Payload{}, prompt.Decoration{}, apperrors.NewInvalidInput("style", fmt.Sprintf("Unknown style %q", style))
	}

	payload := prompt.Compose(req.BasePrompt, styleInstruction, prompt.ConcisenessInstruction(req.ConcisenessLevel()), req.NSFW)

	entry := catalog.ParseSelector(req.StyleTag)
	deco := prompt.Decoration{
		Lora:          req.Lora,
		StylePositive: entry.Positive,
		StyleNegative: entry.Negative,
		Checkpoint:    req.Checkpoint,
	}
	if req.Lora != "" && e.triggers != nil {
		deco.LoraTrigger = e.triggers.Trigger(req.Lora)
	}

	return payload, deco, nil
}

// Enhance runs one request end to end without recording it anywhere
func (e *Enhancer) Enhance(ctx context.Context, req state.EnhancementRequest) (prompt.Formatted, error) {
	payload, deco, err := e.Prepare(req)
	if err != nil {
		return prompt.Formatted{}, err
	}
	return e.run(ctx, payload, deco)
}

func (e *Enhancer) run(ctx context.Context, payload prompt.Payload, deco prompt.Decoration) (prompt.Formatted, error) {
	start := time.Now()
	reply, err := e.llm.Complete(ctx, payload)
	if err != nil {
		e.logger.Warn("Enhancement failed",
			zap.Error(err),
			zap.String("error_type", string(apperrors.TypeOf(err))),
			zap.Duration("elapsed", time.Since(start)),
		)
		return prompt.Formatted{}, err
	}

	result := prompt.Format(reply, deco)
	e.logger.Debug("Enhancement complete",
		zap.String("lora", deco.Lora),
		zap.String("checkpoint", deco.Checkpoint),
		zap.Int("length", len(result.Prompt)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}
