package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sd-prompt-enhancer/backend/internal/constants"
	apperrors "sd-prompt-enhancer/backend/pkg/errors"
)

// StyleEntry is a named preset supplying positive and negative prompt fragments
type StyleEntry struct {
	Name     string `json:"name"`
	Positive string `json:"positive"`
	Negative string `json:"negative"`
}

// Selector serializes the entry as "name::positive::negative", the opaque value
// a form hands back when the entry is chosen.
func (e StyleEntry) Selector() string {
	sep := constants.SelectorSeparator
	return e.Name + sep + e.Positive + sep + e.Negative
}

// ParseSelector extracts the fragments from a selector string. It never fails:
// a selector without any separator is treated as a bare positive fragment, and
// missing segments come back empty.
func ParseSelector(selector string) StyleEntry {
	if selector == "" {
		return StyleEntry{}
	}
	parts := strings.SplitN(selector, constants.SelectorSeparator, 3)
	if len(parts) == 1 {
		return StyleEntry{Positive: strings.TrimSpace(selector)}
	}

	entry := StyleEntry{
		Name:     strings.TrimSpace(parts[0]),
		Positive: strings.TrimSpace(parts[1]),
	}
	if len(parts) > 2 {
		entry.Negative = strings.TrimSpace(parts[2])
	}
	return entry
}

// styleDocument is one object of a style catalog file
type styleDocument struct {
	Name           *string `json:"name"`
	Prompt         *string `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
}

func (d styleDocument) toEntry(name string) StyleEntry {
	return StyleEntry{
		Name:     name,
		Positive: strings.TrimSpace(strings.ReplaceAll(*d.Prompt, constants.StylePlaceholder, "")),
		Negative: strings.TrimSpace(d.NegativePrompt),
	}
}

// LoadStyleEntries reads every *.json file directly under dir. Each file is
// either a list of {name, prompt, negative_prompt} objects or a mapping from
// name to {prompt, negative_prompt}. A file that fails to parse is reported and
// skipped; the others still load. Entries are sorted case-insensitively by
// selector.
func LoadStyleEntries(dir string) ([]StyleEntry, []error) {
	info, err := os.Stat(dir)
	if err != nil {
		return []StyleEntry{}, []error{apperrors.NewCatalogLoadFailed(dir, err)}
	}
	if !info.IsDir() {
		return []StyleEntry{}, []error{apperrors.NewCatalogLoadFailed(dir, fmt.Errorf("not a directory"))}
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return []StyleEntry{}, []error{apperrors.NewCatalogLoadFailed(dir, err)}
	}

	entries := []StyleEntry{}
	var warnings []error
	for _, file := range files {
		fileEntries, err := parseStyleFile(file)
		if err != nil {
			warnings = append(warnings, apperrors.NewCatalogLoadFailed(file, err))
			continue
		}
		entries = append(entries, fileEntries...)
	}

	SortEntries(entries)
	return entries, warnings
}

// SortEntries orders entries the way their selectors sort in a dropdown
func SortEntries(entries []StyleEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return lessFold(entries[i].Selector(), entries[j].Selector())
	})
}

func parseStyleFile(path string) ([]StyleEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode JSON: %w", err)
		}
		var entries []StyleEntry
		for _, item := range items {
			var doc styleDocument
			if err := json.Unmarshal(item, &doc); err != nil {
				continue
			}
			if doc.Name == nil || doc.Prompt == nil {
				continue
			}
			entries = append(entries, doc.toEntry(*doc.Name))
		}
		return entries, nil

	case '{':
		var items map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode JSON: %w", err)
		}
		var entries []StyleEntry
		for name, item := range items {
			var doc styleDocument
			if err := json.Unmarshal(item, &doc); err != nil {
				continue
			}
			if doc.Prompt == nil {
				continue
			}
			entries = append(entries, doc.toEntry(name))
		}
		return entries, nil
	}

	// Valid JSON scalars carry no entries
	var scalar interface{}
	if err := json.Unmarshal(trimmed, &scalar); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil, nil
}
