// Package prompt loads the translator's system prompt from disk and keeps it
// current while the process runs.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Fallback is used when the prompt file does not exist.
const Fallback = "You are an Argentine Spanish translator. Translate the input to Argentine Spanish. Return only the translation, nothing else."

// Loader serves the current system prompt.
type Loader struct {
	path   string
	logger log.FieldLogger

	mu   sync.RWMutex
	text string
}

// NewLoader reads path once. A missing or unreadable file yields Fallback.
func NewLoader(path string, logger log.FieldLogger) *Loader {
	if logger == nil {
		logger = log.StandardLogger()
	}
	l := &Loader{path: path, logger: logger.WithField("prompt", path)}
	_ = l.Reload()
	return l
}

// Load returns the current prompt text.
func (l *Loader) Load() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.text
}

// Reload re-reads the file. On error the fallback text is installed and the error returned.
func (l *Loader) Reload() error {
	text, err := read(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("prompt file not found, using built-in prompt")
		} else {
			l.logger.WithError(err).Error("could not read prompt file, using built-in prompt")
		}
		text = Fallback
	}
	l.mu.Lock()
	l.text = text
	l.mu.Unlock()
	return err
}

func read(path string) (string, error) {
	if path == "" {
		return "", fs.ErrNotExist
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Watch reloads the prompt whenever the file is written, created or replaced.
// It watches the parent directory so editors that save by rename are seen.
// Watch blocks until ctx is done.
func (l *Loader) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("prompt watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(l.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("prompt watcher: watch %s: %w", dir, err)
	}
	target := filepath.Clean(l.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if err := l.Reload(); err == nil {
				l.logger.Info("prompt reloaded")
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.WithError(err).Warn("prompt watcher error")
		}
	}
}
