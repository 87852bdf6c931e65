package state

import (
	"fmt"
	"math"
	"strings"
	"time"

	"sd-prompt-enhancer/backend/internal/constants"
	apperrors "sd-prompt-enhancer/backend/pkg/errors"
)

// EnhancementRequest is everything a user selects for one submission.
// It is built fresh per submission and never persisted.
type EnhancementRequest struct {
	BasePrompt  string   `json:"prompt"`
	Style       string   `json:"style"`
	Conciseness *float64 `json:"conciseness,omitempty"` // nil means the default level
	NSFW        bool     `json:"nsfw"`
	Checkpoint  string   `json:"checkpoint"`
	Lora        string   `json:"lora"`
	StyleTag    string   `json:"style_tag"` // name::positive::negative selector
}

// ConcisenessLevel returns the requested level or the default
func (r *EnhancementRequest) ConcisenessLevel() float64 {
	if r.Conciseness == nil {
		return constants.DefaultConciseness
	}
	return *r.Conciseness
}

// StyleOrDefault returns the requested style key or the default one
func (r *EnhancementRequest) StyleOrDefault() string {
	if strings.TrimSpace(r.Style) == "" {
		return constants.DefaultStyle
	}
	return r.Style
}

// Validate checks the fields a form can get wrong. Style keys are checked
// by the enhancer, which owns the style table.
func (r *EnhancementRequest) Validate() error {
	if strings.TrimSpace(r.BasePrompt) == "" {
		return apperrors.NewInvalidInput("prompt", "Base prompt cannot be empty")
	}
	level := r.ConcisenessLevel()
	if math.IsNaN(level) || level < 0 || level > constants.MaxConciseness {
		return apperrors.NewInvalidInput("conciseness", fmt.Sprintf("Conciseness must be between 0 and %.0f", constants.MaxConciseness))
	}
	return nil
}

// Role identifies the author of a transcript exchange
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Exchange is one transcript entry
type Exchange struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExchange stamps an entry with the current time
func NewExchange(role Role, content string) Exchange {
	return Exchange{Role: role, Content: content, Timestamp: time.Now()}
}
