package prompt

import "strings"

// RolePreamble opens every system instruction
const RolePreamble = "You are a prompt enhancer for Stable Diffusion image generation."

// NSFWInstruction is appended to the system instruction when explicit content is requested
const NSFWInstruction = "Add relevant NSFW, erotic, or suggestive elements as concise tags if appropriate for the base prompt."

// Conciseness bucket instructions, from most verbose to tag-only
const (
	SentenceInstruction = "Respond using full sentences with rich descriptions. Do not use comma-separated tags."
	HybridInstruction   = "Respond using short phrases and some natural language. Blend detail with clarity. Minimal use of tags."
	CompactInstruction  = "Compress the description using very short phrases and comma-separated visual descriptors. Avoid full sentences."
	TagOnlyInstruction  = "Respond ONLY using concise, comma-separated tags and visual descriptors. NO full sentences. Be extremely brief and dense."
)

// ConcisenessInstruction selects the verbosity template for a 0-100 level.
// Bucket boundaries are closed on the lower end: 25 is hybrid, 50 compact, 75 tag-only.
func ConcisenessInstruction(level float64) string {
	switch {
	case level < 25:
		return SentenceInstruction
	case level < 50:
		return HybridInstruction
	case level < 75:
		return CompactInstruction
	default:
		return TagOnlyInstruction
	}
}

// Payload is the system/user pair handed to the LLM backend
type Payload struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// Compose builds the system instruction from the preamble, style text,
// conciseness text and, when nsfw is set, the explicit-content instruction,
// joined by single spaces. The user message is the base prompt unchanged; LoRA
// triggers are added to the final prompt by Format rather than hinted to the model.
func Compose(basePrompt, styleInstruction, concisenessInstruction string, nsfw bool) Payload {
	parts := []string{RolePreamble, styleInstruction, concisenessInstruction}
	if nsfw {
		parts = append(parts, NSFWInstruction)
	}
	return Payload{
		System: strings.Join(parts, " "),
		User:   basePrompt,
	}
}
