package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/postbot/core/logger"
)

// Shared is the process-wide document. Readers get deep copies; writers go
// through Update, which persists before publishing.
type Shared struct {
	backend Backend

	mu  sync.Mutex
	doc *Document
}

// Open loads the document from backend.
func Open(ctx context.Context, backend Backend) (*Shared, error) {
	doc, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	return &Shared{backend: backend, doc: doc}, nil
}

// Snapshot returns a deep copy of the current document.
func (s *Shared) Snapshot() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Update applies fn to a copy of the document and saves it. The copy replaces
// the current document only when fn and the save both succeed.
func (s *Shared) Update(ctx context.Context, fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := s.backend.Save(ctx, next); err != nil {
		logger.Error(ctx, "store", "save.failed", slog.String("err", err.Error()))
		return fmt.Errorf("persist document: %w", err)
	}
	s.doc = next
	return nil
}

// Reload replaces the in-memory document with the backend's current content.
func (s *Shared) Reload(ctx context.Context) error {
	doc, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload document: %w", err)
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	logger.Info(ctx, "store", "reload", slog.Int("post_types", doc.PostTypes.Len()))
	return nil
}
