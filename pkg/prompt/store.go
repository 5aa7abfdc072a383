package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/papercomputeco/minutes/pkg/transcript"
)

// Store serves the active templates. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tpl    *compiled
	path   string
	logger *slog.Logger
}

// NewStore creates a Store. With a non-empty path the YAML file is loaded and
// must parse; a missing file is an error. An empty path serves Defaults.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		logger: logger,
	}

	if path == "" {
		tpl, err := compile(Defaults())
		if err != nil {
			return nil, err
		}
		s.tpl = tpl
		return s, nil
	}

	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the override file path, or "" when serving defaults.
func (s *Store) Path() string {
	return s.path
}

// Templates returns the active raw templates.
func (s *Store) Templates() Templates {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tpl.raw
}

// Build renders the prompt for batch. previous selects the continuation
// template. Rendering the built-in defaults never fails; a user template that
// fails at render time falls back to the defaults and logs the error.
func (s *Store) Build(previous *string, batch []transcript.Fragment) string {
	s.mu.RLock()
	tpl := s.tpl
	s.mu.RUnlock()

	out, err := tpl.render(previous, batch)
	if err == nil {
		return out
	}

	s.logger.Error("prompt template failed, using built-in template", "error", err)
	fallback, _ := compile(Defaults())
	out, _ = fallback.render(previous, batch)
	return out
}

// Reload re-reads the override file. On error the active templates are kept.
// With no override file Reload is a no-op.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("reading prompt file: %w", err)
	}

	var raw Templates
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing prompt file %s: %w", s.path, err)
	}

	tpl, err := compile(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.tpl = tpl
	s.mu.Unlock()

	s.logger.Info("prompt templates loaded", "path", s.path)
	return nil
}

// Watch reloads the override file whenever it changes and calls onChange after
// each successful reload. It blocks until ctx is done. The parent directory is
// watched so editors that replace the file on save are handled.
func (s *Store) Watch(ctx context.Context, onChange func()) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating prompt watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watching %s: %w", s.path, err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			if err := s.Reload(); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					// mid-rename; the Create event follows
					continue
				}
				s.logger.Error("prompt reload failed, keeping previous templates", "error", err)
				continue
			}
			if onChange != nil {
				onChange()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("prompt watcher error", "error", err)
		}
	}
}

// WriteDefaults writes the built-in templates to path as YAML, for users to
// start customizing from.
func WriteDefaults(path string) error {
	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return fmt.Errorf("encoding prompt templates: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing prompt file: %w", err)
	}
	return nil
}
