package workspace

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/kenaz-export/internal/apperr"
	"github.com/starford/kenaz-export/internal/index"
	"github.com/starford/kenaz-export/internal/storage"
)

type staticLister []index.DocumentRow

func (s staticLister) ListDocuments(context.Context) ([]index.DocumentRow, error) {
	return s, nil
}

func testWorkspace(t *testing.T, files map[string]string) *Workspace {
	t.Helper()
	dir := t.TempDir()
	var rows staticLister
	for p, content := range files {
		abs := filepath.Join(dir, filepath.FromSlash(p))
		_ = os.MkdirAll(filepath.Dir(abs), 0o755)
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for _, p := range []string{"a.md", "b.md", "notes/c.md", "image.png"} {
		if _, ok := files[p]; ok {
			rows = append(rows, index.DocumentRow{Path: p, Title: p})
		}
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return New(store, rows, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestDocuments_ResolvesAbsolutePaths(t *testing.T) {
	w := testWorkspace(t, map[string]string{"a.md": "a", "notes/c.md": "c", "image.png": "x"})
	docs, err := w.Documents(context.Background())
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("docs = %+v, want 2", docs)
	}
	if !filepath.IsAbs(docs[1].AbsPath) || filepath.Base(docs[1].AbsPath) != "c.md" {
		t.Errorf("abs path = %q", docs[1].AbsPath)
	}
}

func TestDocument_NotFound(t *testing.T) {
	w := testWorkspace(t, map[string]string{"a.md": "a"})
	if _, err := w.Document(context.Background(), "zzz.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAcquire_SwitchesActiveAndReadsSource(t *testing.T) {
	w := testWorkspace(t, map[string]string{"a.md": "alpha", "b.md": "beta"})
	ctx := context.Background()
	if _, ok := w.Active(); ok {
		t.Fatal("new workspace should have no active document")
	}
	b, _ := w.Document(ctx, "b.md")
	v, err := w.Acquire(ctx, b)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer v.Release()

	if string(v.Source) != "beta" {
		t.Errorf("source = %q", v.Source)
	}
	if active, ok := w.Active(); !ok || active.Path != "b.md" {
		t.Errorf("active = %+v, %v", active, ok)
	}
}

func TestAcquire_IsExclusive(t *testing.T) {
	w := testWorkspace(t, map[string]string{"a.md": "alpha", "b.md": "beta"})
	ctx := context.Background()
	a, _ := w.Document(ctx, "a.md")
	b, _ := w.Document(ctx, "b.md")

	first, err := w.Acquire(ctx, a)
	if err != nil {
		t.Fatal(err)
	}

	acquired := make(chan *View)
	go func() {
		v, err := w.Acquire(ctx, b)
		if err != nil {
			close(acquired)
			return
		}
		acquired <- v
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire returned while the first view was held")
	case <-time.After(100 * time.Millisecond):
	}
	if active, _ := w.Active(); active.Path != "a.md" {
		t.Errorf("active switched while held: %q", active.Path)
	}

	first.Release()
	first.Release() // idempotent

	select {
	case v, ok := <-acquired:
		if !ok {
			t.Fatal("second Acquire failed")
		}
		v.Release()
	case <-time.After(2 * time.Second):
		t.Fatal("second Acquire never completed")
	}
}

func TestAcquire_ContextCancelledWhileWaiting(t *testing.T) {
	w := testWorkspace(t, map[string]string{"a.md": "alpha"})
	a, _ := w.Document(context.Background(), "a.md")
	held, _ := w.Acquire(context.Background(), a)
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := w.Acquire(ctx, a); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestAcquire_MissingFileReleasesSlot(t *testing.T) {
	w := testWorkspace(t, map[string]string{"a.md": "alpha"})
	ctx := context.Background()
	a, _ := w.Document(ctx, "a.md")
	_ = os.Remove(a.AbsPath)

	if _, err := w.Acquire(ctx, a); err == nil {
		t.Fatal("expected error for missing file")
	}
	// Slot must be free again.
	_ = os.WriteFile(a.AbsPath, []byte("back"), 0o644)
	ctx2, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	v, err := w.Acquire(ctx2, a)
	if err != nil {
		t.Fatalf("Acquire after failure: %v", err)
	}
	v.Release()
}

func TestSetActive(t *testing.T) {
	w := testWorkspace(t, map[string]string{"a.md": "alpha"})
	ctx := context.Background()
	a, _ := w.Document(ctx, "a.md")
	if err := w.SetActive(ctx, a); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if got, ok := w.Active(); !ok || got.Path != "a.md" {
		t.Errorf("active = %+v", got)
	}
	w.ClearActive()
	if _, ok := w.Active(); ok {
		t.Error("ClearActive left an active document")
	}
}
