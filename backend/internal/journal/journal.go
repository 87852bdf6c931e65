package journal

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "sd-prompt-enhancer/backend/pkg/errors"
	"sd-prompt-enhancer/backend/pkg/logger"
)

const (
	recordHeader = "--- Prompt ---\n"
	recordFooter = "--------------\n\n"
)

// Journal appends enhanced prompts to a flat text file. Records are only
// ever added; the file is never truncated or rewritten.
type Journal struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// New creates a journal writing to path
func New(path string, log *zap.Logger) *Journal {
	return &Journal{path: path, logger: logger.OrDefault(log)}
}

// Path returns the file records are appended to
func (j *Journal) Path() string {
	return j.path
}

// Record renders one entry in the on-disk format
func Record(positive, negative string) string {
	var b strings.Builder
	b.WriteString(recordHeader)
	b.WriteString("Positive Prompt:\n")
	b.WriteString(positive)
	b.WriteString("\n\nNegative Prompt:\n")
	b.WriteString(negative)
	b.WriteString("\n")
	b.WriteString(recordFooter)
	return b.String()
}

// Append writes one record and returns its id. Failures are returned as
// persistence errors and leave in-memory state untouched.
func (j *Journal) Append(positive, negative string) (string, error) {
	if strings.TrimSpace(positive) == "" {
		return "", apperrors.NewInvalidInput("positive", "No enhanced prompt to save")
	}

	id := uuid.New().String()

	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		j.logger.Error("Failed to open prompt journal", zap.String("path", j.path), zap.Error(err))
		return "", apperrors.NewPersistenceFailed(j.path, err)
	}

	if _, err := f.WriteString(Record(positive, negative)); err != nil {
		_ = f.Close()
		j.logger.Error("Failed to write prompt journal", zap.String("path", j.path), zap.Error(err))
		return "", apperrors.NewPersistenceFailed(j.path, err)
	}
	if err := f.Close(); err != nil {
		j.logger.Error("Failed to close prompt journal", zap.String("path", j.path), zap.Error(err))
		return "", apperrors.NewPersistenceFailed(j.path, fmt.Errorf("close: %w", err))
	}

	j.logger.Info("Prompt saved",
		zap.String("record_id", id),
		zap.String("path", j.path),
		zap.Int("positive_length", len(positive)),
	)
	return id, nil
}
