// Package workspace models the host environment the exporter drives: the
// document list and the single "active document" slot the renderer reads from.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/kenaz-export/internal/apperr"
	"github.com/starford/kenaz-export/internal/index"
	"github.com/starford/kenaz-export/internal/models"
	"github.com/starford/kenaz-export/internal/storage"
)

// Lister enumerates indexed documents in a stable order.
type Lister interface {
	ListDocuments(ctx context.Context) ([]index.DocumentRow, error)
}

// Workspace owns the active-document slot. Only one View can be held at
// a time; Acquire blocks until the previous holder releases it.
type Workspace struct {
	store  storage.Provider
	docs   Lister
	logger *slog.Logger

	slot chan struct{}

	mu     sync.RWMutex
	active *models.Document
}

// New creates a workspace with no active document.
func New(store storage.Provider, docs Lister, logger *slog.Logger) *Workspace {
	return &Workspace{
		store:  store,
		docs:   docs,
		logger: logger,
		slot:   make(chan struct{}, 1),
	}
}

// Documents returns every recognised document in enumeration order.
func (w *Workspace) Documents(ctx context.Context) ([]models.Document, error) {
	rows, err := w.docs.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("workspace: list documents: %w", err)
	}
	out := make([]models.Document, 0, len(rows))
	for _, r := range rows {
		if !models.IsSupportedInput(r.Path) {
			continue
		}
		abs, err := w.store.Abs(r.Path)
		if err != nil {
			return nil, fmt.Errorf("workspace: resolve %s: %w", r.Path, err)
		}
		out = append(out, models.Document{
			Path:      r.Path,
			AbsPath:   abs,
			Title:     r.Title,
			Checksum:  r.Checksum,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return out, nil
}

// Document looks up one document by vault-relative path.
func (w *Workspace) Document(ctx context.Context, path string) (models.Document, error) {
	docs, err := w.Documents(ctx)
	if err != nil {
		return models.Document{}, err
	}
	for _, d := range docs {
		if d.Path == path {
			return d, nil
		}
	}
	return models.Document{}, fmt.Errorf("workspace: document %s: %w", path, apperr.ErrNotFound)
}

// ResolveAbsolutePath returns the absolute filesystem path of doc.
func (w *Workspace) ResolveAbsolutePath(doc models.Document) (string, error) {
	if doc.AbsPath != "" {
		return doc.AbsPath, nil
	}
	return w.store.Abs(doc.Path)
}

// Active returns the currently active document.
func (w *Workspace) Active() (models.Document, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.active == nil {
		return models.Document{}, false
	}
	return *w.active, true
}

// SetActive switches the active document, waiting for any in-flight View.
func (w *Workspace) SetActive(ctx context.Context, doc models.Document) error {
	v, err := w.Acquire(ctx, doc)
	if err != nil {
		return err
	}
	v.Release()
	return nil
}

// ClearActive leaves the workspace without an active document.
func (w *Workspace) ClearActive() {
	w.mu.Lock()
	w.active = nil
	w.mu.Unlock()
}

// Acquire waits for the slot, makes doc the active document and returns a
// View over its current content. The caller must Release the View.
func (w *Workspace) Acquire(ctx context.Context, doc models.Document) (*View, error) {
	select {
	case w.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	src, err := w.store.Read(doc.Path)
	if err != nil {
		<-w.slot
		return nil, fmt.Errorf("workspace: open %s: %w", doc.Path, err)
	}
	if doc.AbsPath == "" {
		if doc.AbsPath, err = w.store.Abs(doc.Path); err != nil {
			<-w.slot
			return nil, err
		}
	}

	w.mu.Lock()
	d := doc
	w.active = &d
	w.mu.Unlock()

	w.logger.Debug("workspace: active document switched", slog.String("path", doc.Path))
	return &View{Document: doc, Source: src, release: func() { <-w.slot }}, nil
}

// View is the handle to the active document held between switch and release.
type View struct {
	Document models.Document
	Source   []byte

	once    sync.Once
	release func()
}

// Release frees the active-document slot. Calling it twice is a no-op.
func (v *View) Release() {
	v.once.Do(func() {
		if v.release != nil {
			v.release()
		}
	})
}
