package journal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "sd-prompt-enhancer/backend/pkg/errors"
)

func TestAppend_WritesDelimitedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enhanced_prompts.txt")
	j := New(path, zap.NewNop())

	id1, err := j.Append("castle, fog", "blurry")
	require.NoError(t, err)
	id2, err := j.Append("--checkpoint x\nknight", "")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	want := "--- Prompt ---\nPositive Prompt:\ncastle, fog\n\nNegative Prompt:\nblurry\n--------------\n\n" +
		"--- Prompt ---\nPositive Prompt:\n--checkpoint x\nknight\n\nNegative Prompt:\n\n--------------\n\n"
	assert.Equal(t, want, string(data))
}

func TestAppend_NeverOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("existing\n"), 0o644))

	_, err := New(path, zap.NewNop()).Append("a", "b")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing\n"+Record("a", "b"), string(data))
}

func TestAppend_RejectsEmptyPrompt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	_, err := New(path, zap.NewNop()).Append("   ", "neg")

	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeInput))
	assert.NoFileExists(t, path)
}

func TestAppend_UnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "out.txt")
	_, err := New(path, zap.NewNop()).Append("a", "")

	require.Error(t, err)
	var persistErr *apperrors.ErrPersistenceFailed
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, path, persistErr.Path)
	assert.Contains(t, apperrors.UserMessage(err), "Save Error")
}
