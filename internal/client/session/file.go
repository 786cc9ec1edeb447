package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/atinyakov/SkillMap/internal/models"
)

// Backend persists one session durably.
type Backend interface {
	// Load returns the persisted session, or a zero Session if none exists.
	Load(ctx context.Context) (models.Session, error)
	// Save replaces the persisted session.
	Save(ctx context.Context, s models.Session) error
	// Clear removes the persisted session.
	Clear(ctx context.Context) error
	// Watch calls onChange, from another goroutine, whenever the persisted
	// session may have been changed by another process. It returns once
	// watching has started; watching stops when ctx is done.
	Watch(ctx context.Context, onChange func()) error
}

// FileBackend stores the session as JSON in a single file.
type FileBackend struct {
	Path string
	log  *zap.Logger
}

// NewFileBackend returns a backend writing to path.
func NewFileBackend(path string, log *zap.Logger) *FileBackend {
	return &FileBackend{Path: path, log: log}
}

func (b *FileBackend) Load(_ context.Context) (models.Session, error) {
	var s models.Session
	f, err := os.Open(b.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return models.Session{}, fmt.Errorf("decode session file: %w", err)
	}
	return s, nil
}

// Save writes to a temporary file and renames it over Path so readers in
// other processes never observe a partial file.
func (b *FileBackend) Save(_ context.Context, s models.Session) error {
	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(s); err != nil {
		tmp.Close()
		return fmt.Errorf("encode session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.Path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (b *FileBackend) Clear(_ context.Context) error {
	if err := os.Remove(b.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// Watch observes the session file's directory, since Save replaces the
// file by rename.
func (b *FileBackend) Watch(ctx context.Context, onChange func()) error {
	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	name := filepath.Base(b.Path)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != name {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					onChange()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				b.log.Warn("session watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
