package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/m3rciful/postbot/core/logger"
)

// FileStore keeps the document in a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Load reads the file. A missing or corrupt file yields the default document.
func (s *FileStore) Load(ctx context.Context) (*Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug(ctx, "store", "load.missing", slog.String("path", s.path))
		return DefaultDocument(), nil
	}
	if err != nil {
		logger.Warn(ctx, "store", "load.read_failed",
			slog.String("path", s.path),
			slog.String("err", err.Error()),
		)
		return DefaultDocument(), nil
	}
	doc, err := Decode(data)
	if err != nil {
		logger.Warn(ctx, "store", "load.corrupt",
			slog.String("path", s.path),
			slog.String("err", err.Error()),
		)
		return DefaultDocument(), nil
	}
	return doc, nil
}

// Save writes doc to a temp file in the same directory and renames it over the target.
func (s *FileStore) Save(ctx context.Context, doc *Document) error {
	start := time.Now()
	data, err := Encode(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", s.path, err)
	}

	logger.Debug(ctx, "store", "save",
		slog.String("path", s.path),
		slog.Int("bytes", len(data)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// Watch calls fn after the file is written, created or renamed into place by
// another process. It blocks until ctx is done.
func (s *FileStore) Watch(ctx context.Context, fn func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: an atomic rename replaces the inode the file watch would follow.
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				logger.Debug(ctx, "store", "watch.event",
					slog.String("path", ev.Name),
					slog.String("op", ev.Op.String()),
				)
				fn()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn(ctx, "store", "watch.error", slog.String("err", err.Error()))
		}
	}
}
