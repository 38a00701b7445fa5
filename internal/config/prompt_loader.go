package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"careermatch/internal/errors"
)

// PromptLoader resolves the active oracle prompt template with a clear
// priority order:
//  1. A template file on disk (hot-reloaded on change).
//  2. A template string from the configuration.
//  3. The compiled-in default.
type PromptLoader struct {
	mu       sync.RWMutex
	current  string
	fallback string
	filePath string
	logger   *errors.Logger

	watcher *fsnotify.Watcher
}

// NewPromptLoader builds a loader. When filePath is non-empty the file must
// exist and be readable at startup; later reload failures keep the previous
// template.
func NewPromptLoader(defaultTemplate, configTemplate, filePath string, logger *errors.Logger) (*PromptLoader, error) {
	fallback := defaultTemplate
	if strings.TrimSpace(configTemplate) != "" {
		fallback = configTemplate
	}

	pl := &PromptLoader{
		current:  fallback,
		fallback: fallback,
		filePath: filePath,
		logger:   logger,
	}

	if filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt template file %s: %w", filePath, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			return nil, fmt.Errorf("prompt template file %s is empty", filePath)
		}
		pl.current = string(content)
	}

	return pl, nil
}

// Template returns the currently active prompt template.
func (pl *PromptLoader) Template() string {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return pl.current
}

// Watch starts watching the template file for changes and reloads it on
// writes, until ctx is canceled. No-op when no file is configured.
func (pl *PromptLoader) Watch(ctx context.Context) error {
	if pl.filePath == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create prompt template watcher: %w", err)
	}

	// Watch the directory rather than the file: editors replace files via
	// rename, which drops file-level watches.
	dir := filepath.Dir(pl.filePath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch prompt template directory %s: %w", dir, err)
	}
	pl.watcher = watcher

	go pl.watchLoop(ctx)

	if pl.logger != nil {
		pl.logger.Info("Watching prompt template file for changes", "file", pl.filePath)
	}
	return nil
}

func (pl *PromptLoader) watchLoop(ctx context.Context) {
	defer pl.watcher.Close()

	// Debounce timer: editors often emit several events per save.
	var debounce *time.Timer
	target := filepath.Clean(pl.filePath)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-pl.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(500*time.Millisecond, pl.reload)
		case err, ok := <-pl.watcher.Errors:
			if !ok {
				return
			}
			if pl.logger != nil {
				pl.logger.Warn("Prompt template watcher error", "error", err.Error())
			}
		}
	}
}

// reload re-reads the template file, keeping the previous template (and
// finally the fallback) on failure.
func (pl *PromptLoader) reload() {
	content, err := os.ReadFile(pl.filePath)
	if err != nil {
		if pl.logger != nil {
			pl.logger.Warn("Failed to reload prompt template, keeping previous",
				"file", pl.filePath,
				"error", err.Error())
		}
		return
	}

	template := string(content)
	if strings.TrimSpace(template) == "" {
		template = pl.fallback
	}

	pl.mu.Lock()
	pl.current = template
	pl.mu.Unlock()

	if pl.logger != nil {
		pl.logger.Info("Reloaded prompt template", "file", pl.filePath, "length", len(template))
	}
}
