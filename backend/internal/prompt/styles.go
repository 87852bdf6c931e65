package prompt

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// builtinStyles is the style -> instruction table offered by default
var builtinStyles = map[string]string{
	"Visual Detail":    "Rewrite the prompt using short, vivid, comma-separated phrases optimized for Stable Diffusion. Focus on clarity, detail, and visual density.",
	"Cinematic":        "Transform the prompt into a cinematic composition using stylized, compact phrases suitable for Stable Diffusion.",
	"Fantasy":          "Convert the prompt into a vivid, magical scene using concise, descriptive tags and imagery for Stable Diffusion.",
	"Sci-Fi":           "Rewrite the prompt into high-tech, futuristic concepts using compact tokens and sci-fi descriptors.",
	"Fantasy Dark":     "Rewrite the prompt using dramatic fantasy visuals, with moody lighting, arcane symbolism, and gothic or ancient elements. Keep it concise and rich in dark fantasy imagery.",
	"Sci-Fi Retro":     "Enhance the prompt with retrofuturistic and analog sci-fi vibes. Include references to neon, chrome, and vintage tech, formatted as short visual phrases.",
	"Painterly":        "Enhance the prompt with textures, brushstroke detail, and classical or digital painting aesthetics. Focus on medium, lighting, and style.",
	"Cyberpunk":        "Transform the prompt into a cyberpunk visual style with neon lighting, futuristic decay, high-tech gear, and urban density. Use punchy, descriptive tags.",
	"Surreal Horror":   "Rewrite the prompt into a surreal and unsettling horror scene using visual metaphors, uncanny details, and dreamlike symbols.",
	"Cosmic Horror":    "Rewrite the prompt using existential and incomprehensible horror themes, with eerie cosmic environments, unknown monsters, and mind-bending visuals.",
	"Techno Horror":    "Enhance the prompt with horror imagery involving machines, implants, body distortion, corrupted AIs, and industrial dread.",
	"Alien World":      "Rewrite the prompt as a vivid alien landscape, with unfamiliar terrain, alien lifeforms, exotic atmospheres, and sci-fi wonder.",
	"Dystopian Future": "Enhance the prompt using dystopian sci-fi elements like ruined cities, authoritarian tech, bleak environments, and oppressed society themes.",
}

// StyleTable maps a style key to the instruction sent to the model
type StyleTable struct {
	instructions map[string]string
}

// DefaultStyleTable returns the built-in table
func DefaultStyleTable() *StyleTable {
	instructions := make(map[string]string, len(builtinStyles))
	for k, v := range builtinStyles {
		instructions[k] = v
	}
	return &StyleTable{instructions: instructions}
}

// LoadStyleTable returns the built-in table extended by a YAML document of
// "Style Name: instruction" pairs. An empty path returns the built-in table.
func LoadStyleTable(path string) (*StyleTable, error) {
	table := DefaultStyleTable()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return table, fmt.Errorf("failed to read styles file: %w", err)
	}

	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return table, fmt.Errorf("failed to parse styles file: %w", err)
	}
	for name, instruction := range overrides {
		if name == "" || instruction == "" {
			continue
		}
		table.instructions[name] = instruction
	}
	return table, nil
}

// Instruction returns the instruction for a style key
func (t *StyleTable) Instruction(style string) (string, bool) {
	instruction, ok := t.instructions[style]
	return instruction, ok
}

// Names returns the style keys in alphabetical order
func (t *StyleTable) Names() []string {
	names := make([]string, 0, len(t.instructions))
	for name := range t.instructions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
