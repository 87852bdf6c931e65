package catalog

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sd-prompt-enhancer/backend/internal/constants"
	"sd-prompt-enhancer/backend/pkg/logger"
)

// Paths locates the on-disk asset catalogs
type Paths struct {
	CheckpointDir   string
	LoraDir         string
	StyleDir        string
	LoraTriggerFile string
}

// Snapshot is a consistent copy of the loaded listings
type Snapshot struct {
	Checkpoints []string     `json:"checkpoints"`
	Loras       []string     `json:"loras"`
	StyleTags   []StyleEntry `json:"style_tags"`
	Warnings    []string     `json:"warnings,omitempty"`
}

// Catalog owns the asset listings and LoRA triggers for one process.
// Refreshes replace listings wholesale.
type Catalog struct {
	paths  Paths
	logger *zap.Logger

	mu          sync.RWMutex
	checkpoints []string
	loras       []string
	styles      []StyleEntry
	triggers    Triggers
	warnings    []error
}

// New creates an empty catalog; call Refresh to populate it
func New(paths Paths, log *zap.Logger) *Catalog {
	return &Catalog{
		paths:       paths,
		logger:      logger.OrDefault(log),
		checkpoints: []string{},
		loras:       []string{},
		styles:      []StyleEntry{},
		triggers:    Triggers{},
	}
}

// Refresh rescans checkpoints, LoRAs, style documents and the trigger file.
// The returned warnings are also kept for Snapshot; none of them is fatal.
func (c *Catalog) Refresh(ctx context.Context) []error {
	var (
		checkpoints, loras []string
		styles             []StyleEntry
		triggers           Triggers
		cpErr, loraErr     error
		trigErr            error
		styleErrs          []error
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		checkpoints, cpErr = ScanAssets(c.paths.CheckpointDir, constants.CheckpointExtensions, NameFull)
		return nil
	})
	g.Go(func() error {
		loras, loraErr = ScanAssets(c.paths.LoraDir, constants.LoraExtensions, NameStem)
		return nil
	})
	g.Go(func() error {
		styles, styleErrs = LoadStyleEntries(c.paths.StyleDir)
		return nil
	})
	g.Go(func() error {
		triggers, trigErr = LoadTriggers(c.paths.LoraTriggerFile)
		return nil
	})
	_ = g.Wait()

	warnings := collect(cpErr, loraErr, trigErr)
	warnings = append(warnings, styleErrs...)

	c.mu.Lock()
	c.checkpoints = checkpoints
	c.loras = loras
	c.styles = styles
	c.triggers = triggers
	c.warnings = warnings
	c.mu.Unlock()

	c.logWarnings(warnings)
	c.logger.Info("Catalog refreshed",
		zap.Int("checkpoints", len(checkpoints)),
		zap.Int("loras", len(loras)),
		zap.Int("style_tags", len(styles)),
		zap.Int("triggers", len(triggers)),
		zap.Int("warnings", len(warnings)),
	)

	return warnings
}

// RefreshLoras reloads the trigger file and rescans the LoRA directory only
func (c *Catalog) RefreshLoras() ([]string, []error) {
	loras, loraErr := ScanAssets(c.paths.LoraDir, constants.LoraExtensions, NameStem)
	triggers, trigErr := LoadTriggers(c.paths.LoraTriggerFile)
	warnings := collect(loraErr, trigErr)

	c.mu.Lock()
	c.loras = loras
	c.triggers = triggers
	c.mu.Unlock()

	c.logWarnings(warnings)
	c.logger.Debug("LoRAs refreshed", zap.Int("loras", len(loras)))

	return append([]string(nil), loras...), warnings
}

// Snapshot returns copies of the current listings
func (c *Catalog) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		Checkpoints: append([]string{}, c.checkpoints...),
		Loras:       append([]string{}, c.loras...),
		StyleTags:   append([]StyleEntry{}, c.styles...),
	}
	for _, w := range c.warnings {
		snap.Warnings = append(snap.Warnings, w.Error())
	}
	return snap
}

// Trigger resolves the trigger phrase for a LoRA name against the loaded mapping
func (c *Catalog) Trigger(lora string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.triggers.Resolve(lora)
}

func (c *Catalog) logWarnings(warnings []error) {
	for _, w := range warnings {
		c.logger.Warn("Catalog warning", zap.Error(w))
	}
}

func collect(errs ...error) []error {
	var out []error
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
