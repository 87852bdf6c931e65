package discord

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sd-prompt-enhancer/backend/internal/catalog"
	"sd-prompt-enhancer/backend/internal/enhancer"
	"sd-prompt-enhancer/backend/internal/journal"
	"sd-prompt-enhancer/backend/internal/prompt"
	apperrors "sd-prompt-enhancer/backend/pkg/errors"
)

func TestCommandText(t *testing.T) {
	botID := "bot-123"

	tests := []struct {
		name    string
		content string
		want    string
		ok      bool
	}{
		{"prefixed command", "!enhance a castle", "enhance a castle", true},
		{"mention", "<@bot-123> enhance a castle", "enhance a castle", true},
		{"nickname mention with prefix", "<@!bot-123> !styles", "styles", true},
		{"plain chat", "hello there", "", false},
		{"bare prefix", "!   ", "", false},
		{"other mention", "<@user-456> !styles", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CommandText(tt.content, "!", botID)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, strings.TrimSpace(got))
			}
		})
	}
}

func TestParseCommand_ShellQuoting(t *testing.T) {
	cmd, ok := ParseCommand(`Enhance a castle --tag "Cinematic::a cinematic scene::blurry, low quality"`)
	require.True(t, ok)
	assert.Equal(t, CommandEnhance, cmd.Name)
	assert.Equal(t, []string{"a", "castle", "--tag", "Cinematic::a cinematic scene::blurry, low quality"}, cmd.Args)

	// Unbalanced apostrophe falls back to whitespace splitting
	cmd, ok = ParseCommand("enhance a knight's sword")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "knight's", "sword"}, cmd.Args)

	_, ok = ParseCommand("   ")
	assert.False(t, ok)
}

func TestParseEnhanceArgs(t *testing.T) {
	req, err := ParseEnhanceArgs([]string{"a", "--style", "Fantasy", "castle", "--concise=80", "--nsfw", "--checkpoint", "sdxl_base.safetensors", "--lora", "knight_armor_v2"})
	require.NoError(t, err)

	assert.Equal(t, "a castle", req.BasePrompt)
	assert.Equal(t, "Fantasy", req.Style)
	require.NotNil(t, req.Conciseness)
	assert.Equal(t, 80.0, *req.Conciseness)
	assert.True(t, req.NSFW)
	assert.Equal(t, "sdxl_base.safetensors", req.Checkpoint)
	assert.Equal(t, "knight_armor_v2", req.Lora)

	req, err = ParseEnhanceArgs([]string{"castle", "--nsfw=false"})
	require.NoError(t, err)
	assert.False(t, req.NSFW)
	assert.Nil(t, req.Conciseness)
}

func TestParseEnhanceArgs_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing value", []string{"castle", "--style"}},
		{"bad number", []string{"castle", "--concise", "lots"}},
		{"unknown option", []string{"castle", "--seed", "4"}},
		{"bad bool", []string{"castle", "--nsfw=maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnhanceArgs(tt.args)
			require.Error(t, err)
			assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeInput))
		})
	}
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 100))

	line := strings.Repeat("x", 60)
	content := strings.Join([]string{line, line, line, line}, "\n")
	chunks := splitMessage(content, 130)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 130)
	}
	assert.Equal(t, content, strings.Join(chunks, "\n"))
}

func TestSplitMessage_KeepsCodeBlocksBalanced(t *testing.T) {
	var lines []string
	for i := 0; i < 30; i++ {
		lines = append(lines, strings.Repeat("y", 50))
	}
	content := "```text\n" + strings.Join(lines, "\n") + "\n```"

	chunks := splitMessage(content, 300)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 300)
		assert.True(t, strings.HasPrefix(c, "```text"), c)
		assert.Equal(t, 0, strings.Count(c, "```")%2, c)
	}
}

func TestSplitMessage_LongLine(t *testing.T) {
	content := strings.Repeat("word ", 100)
	chunks := splitMessage(content, 120)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 120)
	}
	assert.Equal(t, strings.Fields(content), strings.Fields(strings.Join(chunks, " ")))
}

type recordingSender struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingSender) Send(_, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, content)
	return nil
}

func (r *recordingSender) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return ""
	}
	return r.messages[len(r.messages)-1]
}

type stubLLM struct {
	reply string
	err   error
}

func (s stubLLM) Complete(context.Context, prompt.Payload) (string, error) {
	return s.reply, s.err
}

func newTestHandler(t *testing.T, llm enhancer.Completer) (*Handler, *recordingSender, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "loras"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "styles"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loras", "knight_armor_v2.safetensors"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loras", "Cave_Troll_v1.2.safetensors"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loras.json"), []byte(`{"knight_armor_v2":{"trigger":"shining armor"}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "styles", "s.json"),
		[]byte(`{"Cinematic":{"prompt":"a cinematic scene {prompt}","negative_prompt":"blurry, low quality"}}`), 0o644))

	cat := catalog.New(catalog.Paths{
		CheckpointDir:   filepath.Join(dir, "checkpoints"),
		LoraDir:         filepath.Join(dir, "loras"),
		StyleDir:        filepath.Join(dir, "styles"),
		LoraTriggerFile: filepath.Join(dir, "loras.json"),
	}, zap.NewNop())
	cat.Refresh(context.Background())

	e := enhancer.New(enhancer.Options{Triggers: cat, LLM: llm, Logger: zap.NewNop()})
	sender := &recordingSender{}
	outFile := filepath.Join(dir, "enhanced_prompts.txt")

	h := NewHandler(Options{
		Catalog:  cat,
		Enhancer: e,
		Sessions: enhancer.NewRegistry(e),
		Journal:  journal.New(outFile, zap.NewNop()),
		Sender:   sender,
		Prefix:   "!",
		Logger:   zap.NewNop(),
	})
	h.chunkDelay = 0
	return h, sender, outFile
}

func TestRespond_EnhanceAndSave(t *testing.T) {
	h, sender, outFile := newTestHandler(t, stubLLM{reply: "knight ,castle"})

	h.Respond(context.Background(), "chan-1", `enhance a knight --lora knight_armor_v2 --tag cinematic`)
	want := "<lora:knight_armor_v2:0.8>, a cinematic scene, shining armor, knight, castle"
	assert.Contains(t, sender.last(), want)
	assert.Contains(t, sender.last(), "blurry, low quality")

	h.Respond(context.Background(), "chan-1", "save")
	assert.Contains(t, sender.last(), "Saved to")

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, journal.Record(want, "blurry, low quality"), string(data))
}

func TestRespond_SaveWithoutResult(t *testing.T) {
	h, sender, outFile := newTestHandler(t, stubLLM{reply: "x"})

	h.Respond(context.Background(), "chan-2", "save")
	assert.Contains(t, sender.last(), "No enhanced prompt to save")
	assert.NoFileExists(t, outFile)
}

func TestRespond_ErrorsAreReported(t *testing.T) {
	h, sender, _ := newTestHandler(t, stubLLM{err: apperrors.NewConnectionFailed("http://localhost:11434/v1/chat/completions", errors.New("refused"))})

	h.Respond(context.Background(), "chan-3", "enhance")
	assert.Contains(t, sender.last(), "Input Error")

	h.Respond(context.Background(), "chan-3", "enhance a castle")
	assert.Contains(t, sender.last(), "Connection Error")

	session := h.sessions.ForKey("chan-3")
	assert.Empty(t, session.Transcript())
	assert.False(t, session.Busy())
}

func TestRespond_ListLorasAndStyles(t *testing.T) {
	h, sender, _ := newTestHandler(t, stubLLM{reply: "x"})

	h.Respond(context.Background(), "chan-4", "loras")
	msg := sender.last()
	assert.Contains(t, msg, "LoRAs (2)")
	assert.Contains(t, msg, "`knight_armor_v2` → shining armor")
	assert.Contains(t, msg, "`Cave_Troll_v1.2` → cave troll")
	assert.Less(t, strings.Index(msg, "Cave_Troll"), strings.Index(msg, "knight_armor"))

	h.Respond(context.Background(), "chan-4", "styles")
	msg = sender.last()
	assert.Contains(t, msg, "`Visual Detail` (default)")
	assert.Contains(t, msg, "Style tags (1)")
	assert.Contains(t, msg, "`Cinematic`")
}
