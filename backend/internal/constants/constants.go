package constants

import "time"

// Form defaults
const (
	// DefaultStyle is the style preselected in the form
	DefaultStyle = "Visual Detail"

	// DefaultConciseness is the conciseness preselected in the form
	DefaultConciseness = 75.0

	// MaxConciseness bounds the conciseness control; the minimum is 0
	MaxConciseness = 100.0
)

// Prompt formatting constants
const (
	// LoraWeight is the strength written into every <lora:NAME:weight> directive
	LoraWeight = "0.8"

	// CheckpointDirective prefixes the line naming the selected checkpoint
	CheckpointDirective = "--checkpoint"

	// StylePlaceholder is removed from style catalog positive fragments
	StylePlaceholder = "{prompt}"

	// SelectorSeparator joins name, positive and negative fragments of a style entry
	SelectorSeparator = "::"
)

// Asset extensions
var (
	CheckpointExtensions = []string{".safetensors", ".ckpt"}
	LoraExtensions       = []string{".safetensors"}
)

// LLM call constants
const (
	// DefaultLLMTimeout is the upper bound for one backend call
	DefaultLLMTimeout = 120 * time.Second
)

// Discord constants
const (
	// DiscordMaxMessageLength is the maximum character limit for Discord messages
	DiscordMaxMessageLength = 2000
)
