package catalog

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "sd-prompt-enhancer/backend/pkg/errors"
)

// NameMode selects how a matched file becomes an asset name
type NameMode int

const (
	// NameStem strips the extension ("knight_v2.safetensors" -> "knight_v2")
	NameStem NameMode = iota
	// NameFull keeps the full filename, used for checkpoints
	NameFull
)

// ScanAssets recursively lists files under dir whose extension matches one of
// exts and returns their unique names sorted case-insensitively.
//
// A missing or unreadable directory yields an empty listing and a warning.
// Unreadable subdirectories are skipped; the first such failure is returned as
// a warning alongside the partial listing.
func ScanAssets(dir string, exts []string, mode NameMode) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return []string{}, apperrors.NewCatalogLoadFailed(dir, err)
	}
	if !info.IsDir() {
		return []string{}, apperrors.NewCatalogLoadFailed(dir, fmt.Errorf("not a directory"))
	}

	seen := make(map[string]struct{})
	var walkErr error

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if walkErr == nil {
				walkErr = apperrors.NewCatalogLoadFailed(path, err)
			}
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		name := d.Name()
		ext := filepath.Ext(name)
		if !hasExtension(ext, exts) {
			return nil
		}

		if mode == NameStem {
			name = strings.TrimSuffix(name, ext)
		}
		seen[name] = struct{}{}
		return nil
	})
	if err != nil && walkErr == nil {
		walkErr = apperrors.NewCatalogLoadFailed(dir, err)
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	SortFold(names)

	return names, walkErr
}

// SortFold sorts names case-insensitively; names equal under folding keep a
// stable byte order so repeated scans are identical.
func SortFold(names []string) {
	sort.Slice(names, func(i, j int) bool {
		return lessFold(names[i], names[j])
	})
}

func lessFold(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}

func hasExtension(ext string, exts []string) bool {
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
