package catalog

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"regexp"
	"strings"

	apperrors "sd-prompt-enhancer/backend/pkg/errors"
)

// versionSuffix matches a trailing "_v2" or "_v1.5" on a LoRA name
var versionSuffix = regexp.MustCompile(`_v\d+(\.\d+)?$`)

// TriggerEntry is one value of the trigger document
type TriggerEntry struct {
	Trigger string `json:"trigger"`
}

// Triggers maps a LoRA name to its configured trigger phrase
type Triggers map[string]TriggerEntry

// LoadTriggers reads the trigger document at path.
// A missing file is not an error and yields an empty mapping; an unreadable or
// malformed file yields an empty mapping and a warning.
func LoadTriggers(path string) (Triggers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Triggers{}, nil
		}
		return Triggers{}, apperrors.NewCatalogLoadFailed(path, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Triggers{}, apperrors.NewCatalogLoadFailed(path, err)
	}

	triggers := make(Triggers, len(raw))
	for name, value := range raw {
		var entry TriggerEntry
		// Entries that are not objects, or whose trigger is not a string, still
		// count as present with an empty trigger.
		_ = json.Unmarshal(value, &entry)
		triggers[name] = entry
	}
	return triggers, nil
}

// Resolve returns the configured trigger for name, or one derived from the name.
func (t Triggers) Resolve(name string) string {
	if entry, ok := t[name]; ok {
		return strings.TrimSpace(entry.Trigger)
	}
	return DeriveTrigger(name)
}

// DeriveTrigger turns "Cave_Troll_v1.2" into "cave troll"
func DeriveTrigger(name string) string {
	if name == "" {
		return ""
	}
	cleaned := versionSuffix.ReplaceAllString(name, "")
	cleaned = strings.NewReplacer("_", " ", "-", " ").Replace(cleaned)
	return strings.TrimSpace(strings.ToLower(cleaned))
}
