package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "sd-prompt-enhancer/backend/pkg/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanAssets_StemsUniqueAndSorted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "zeta.safetensors"), "")
	writeFile(t, filepath.Join(dir, "Alpha.safetensors"), "")
	writeFile(t, filepath.Join(dir, "nested", "beta_v2.safetensors"), "")
	writeFile(t, filepath.Join(dir, "other", "zeta.safetensors"), "")
	writeFile(t, filepath.Join(dir, "notes.txt"), "")

	names, err := ScanAssets(dir, []string{".safetensors"}, NameStem)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "beta_v2", "zeta"}, names)
}

func TestScanAssets_FullNamesForCheckpoints(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sdxl_base.safetensors"), "")
	writeFile(t, filepath.Join(dir, "legacy", "v1-5.ckpt"), "")
	writeFile(t, filepath.Join(dir, "readme.md"), "")

	names, err := ScanAssets(dir, []string{".safetensors", ".ckpt"}, NameFull)
	require.NoError(t, err)
	assert.Equal(t, []string{"sdxl_base.safetensors", "v1-5.ckpt"}, names)
}

func TestScanAssets_MissingDirectoryIsWarning(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	names, err := ScanAssets(missing, []string{".safetensors"}, NameStem)
	assert.Empty(t, names)
	assert.NotNil(t, names)
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeCatalog))
}

func TestScanAssets_IdempotentAndReflectsChanges(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.safetensors"), "")
	writeFile(t, filepath.Join(dir, "A.safetensors"), "")

	first, err := ScanAssets(dir, []string{".safetensors"}, NameStem)
	require.NoError(t, err)
	second, err := ScanAssets(dir, []string{".safetensors"}, NameStem)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	writeFile(t, filepath.Join(dir, "c.safetensors"), "")
	third, err := ScanAssets(dir, []string{".safetensors"}, NameStem)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "b", "c"}, third)
}

func TestTriggers_Resolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loras.json")
	writeFile(t, path, `{"knight_armor_v2": {"trigger": "shining armor "}}`)

	triggers, err := LoadTriggers(path)
	require.NoError(t, err)

	assert.Equal(t, "shining armor", triggers.Resolve("knight_armor_v2"))
	assert.Equal(t, "cave troll", triggers.Resolve("Cave_Troll_v1.2"))
	assert.Equal(t, "elf ranger", triggers.Resolve("elf-ranger_v3"))
	assert.Equal(t, "v2 model", triggers.Resolve("v2_model"))
	assert.Equal(t, "", triggers.Resolve(""))
}

func TestLoadTriggers_MissingFileIsEmpty(t *testing.T) {
	triggers, err := LoadTriggers(filepath.Join(t.TempDir(), "loras.json"))
	require.NoError(t, err)
	assert.Empty(t, triggers)
}

func TestLoadTriggers_MalformedFileIsWarning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loras.json")
	writeFile(t, path, `{not json`)

	triggers, err := LoadTriggers(path)
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeCatalog))
	assert.Equal(t, "some lora", triggers.Resolve("some_lora"))
}

func TestParseSelector(t *testing.T) {
	tests := []struct {
		name     string
		selector string
		want     StyleEntry
	}{
		{
			name:     "full selector",
			selector: "Cinematic::a cinematic scene::blurry, low quality",
			want:     StyleEntry{Name: "Cinematic", Positive: "a cinematic scene", Negative: "blurry, low quality"},
		},
		{
			name:     "no delimiter is a bare positive fragment",
			selector: "JustAName",
			want:     StyleEntry{Positive: "JustAName"},
		},
		{
			name:     "missing negative segment",
			selector: "Name::positive only",
			want:     StyleEntry{Name: "Name", Positive: "positive only"},
		},
		{
			name:     "negative keeps later separators",
			selector: "N::p::neg::extra",
			want:     StyleEntry{Name: "N", Positive: "p", Negative: "neg::extra"},
		},
		{
			name:     "empty",
			selector: "",
			want:     StyleEntry{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSelector(tt.selector))
		})
	}
}

func TestLoadStyleEntries_ListAndMapping(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "list.json"), `[
		{"name": "Cinematic", "prompt": "cinematic still {prompt}, film grain", "negative_prompt": "cartoon "},
		{"name": "NoPrompt"},
		"not an object",
		{"name": "Bare", "prompt": "{prompt}"}
	]`)
	writeFile(t, filepath.Join(dir, "map.json"), `{
		"anime": {"prompt": "anime artwork {prompt}"},
		"broken": {"negative_prompt": "x"}
	}`)
	writeFile(t, filepath.Join(dir, "ignored.txt"), `[]`)

	entries, warnings := LoadStyleEntries(dir)
	assert.Empty(t, warnings)
	assert.Equal(t, []StyleEntry{
		{Name: "anime", Positive: "anime artwork"},
		{Name: "Bare"},
		{Name: "Cinematic", Positive: "cinematic still , film grain", Negative: "cartoon"},
	}, entries)
	assert.Equal(t, "Cinematic::cinematic still , film grain::cartoon", entries[2].Selector())
}

func TestLoadStyleEntries_BadFileIsIsolated(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.json"), `[{"name": "x", "prompt": `)
	writeFile(t, filepath.Join(dir, "good.json"), `[{"name": "Good", "prompt": "good"}]`)

	entries, warnings := LoadStyleEntries(dir)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Error(), "bad.json")
	assert.Equal(t, []StyleEntry{{Name: "Good", Positive: "good"}}, entries)
}

func TestCatalog_RefreshAndSnapshot(t *testing.T) {
	root := t.TempDir()
	paths := Paths{
		CheckpointDir:   filepath.Join(root, "checkpoints"),
		LoraDir:         filepath.Join(root, "loras"),
		StyleDir:        filepath.Join(root, "styles"),
		LoraTriggerFile: filepath.Join(root, "loras.json"),
	}
	writeFile(t, filepath.Join(paths.CheckpointDir, "sdxl_base.safetensors"), "")
	writeFile(t, filepath.Join(paths.LoraDir, "knight_armor_v2.safetensors"), "")
	writeFile(t, paths.LoraTriggerFile, `{"knight_armor_v2": {"trigger": "shining armor"}}`)

	c := New(paths, zap.NewNop())
	warnings := c.Refresh(context.Background())

	// The style directory does not exist: one warning, everything else loads.
	require.Len(t, warnings, 1)
	snap := c.Snapshot()
	assert.Equal(t, []string{"sdxl_base.safetensors"}, snap.Checkpoints)
	assert.Equal(t, []string{"knight_armor_v2"}, snap.Loras)
	assert.Empty(t, snap.StyleTags)
	assert.Len(t, snap.Warnings, 1)
	assert.Equal(t, "shining armor", c.Trigger("knight_armor_v2"))

	writeFile(t, filepath.Join(paths.LoraDir, "Cave_Troll_v1.2.safetensors"), "")
	writeFile(t, paths.LoraTriggerFile, `{}`)
	loras, loraWarnings := c.RefreshLoras()
	assert.Empty(t, loraWarnings)
	assert.Equal(t, []string{"Cave_Troll_v1.2", "knight_armor_v2"}, loras)
	assert.Equal(t, "knight armor", c.Trigger("knight_armor_v2"))
	assert.Equal(t, "cave troll", c.Trigger("Cave_Troll_v1.2"))
}
