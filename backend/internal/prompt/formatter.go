package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"sd-prompt-enhancer/backend/internal/constants"
)

var commaRun = regexp.MustCompile(`\s*,\s*`)

// Decoration is everything besides the model reply that ends up in the final prompt
type Decoration struct {
	Lora          string
	LoraTrigger   string
	StylePositive string
	StyleNegative string
	Checkpoint    string
}

// Formatted is the displayed result of one enhancement
type Formatted struct {
	// Positive is the full display string, including the checkpoint line
	Positive string `json:"positive"`
	// Negative is the style entry's negative fragment, unchanged
	Negative string `json:"negative"`
	// Prompt is Positive without the checkpoint line, the text a user copies
	Prompt string `json:"clipboard"`
}

// LoraDirective renders the <lora:NAME:weight> token
func LoraDirective(lora string) string {
	return fmt.Sprintf("<lora:%s:%s>", lora, constants.LoraWeight)
}

// NormalizeCommas collapses whitespace around every comma to ", " and trims
// leading and trailing commas and spaces. Applying it twice changes nothing.
func NormalizeCommas(s string) string {
	return strings.Trim(commaRun.ReplaceAllString(s, ", "), ", ")
}

// Format joins the LoRA directive, style positive fragment, LoRA trigger and
// model reply, in that order, skipping empty segments.
func Format(reply string, d Decoration) Formatted {
	var segments []string
	if d.Lora != "" {
		segments = append(segments, LoraDirective(d.Lora))
	}
	for _, s := range []string{d.StylePositive, d.LoraTrigger, reply} {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}

	final := NormalizeCommas(strings.Join(segments, ", "))

	positive := final
	if d.Checkpoint != "" {
		positive = fmt.Sprintf("%s %s\n%s", constants.CheckpointDirective, d.Checkpoint, final)
	}

	return Formatted{
		Positive: positive,
		Negative: d.StyleNegative,
		Prompt:   final,
	}
}
