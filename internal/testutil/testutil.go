// Package testutil provides shared test helpers for setting up vaults, databases
// and a fully wired export service.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/kenaz-export/internal/capability"
	"github.com/starford/kenaz-export/internal/commands"
	"github.com/starford/kenaz-export/internal/convert"
	"github.com/starford/kenaz-export/internal/export"
	"github.com/starford/kenaz-export/internal/exportservice"
	"github.com/starford/kenaz-export/internal/index"
	"github.com/starford/kenaz-export/internal/notify"
	"github.com/starford/kenaz-export/internal/render"
	"github.com/starford/kenaz-export/internal/storage"
	"github.com/starford/kenaz-export/internal/workspace"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "kenaz-export-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// WriteFiles writes vault-relative path → content pairs under dir.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// StaticProbe resolves executables from a fixed table.
type StaticProbe map[string]string

// FindExecutable implements capability.Probe.
func (p StaticProbe) FindExecutable(_ context.Context, name string) (string, bool) {
	path, ok := p[name]
	return path, ok
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Env is a wired export stack over a temporary vault.
type Env struct {
	Vault     string
	Store     *storage.FS
	DB        *index.DB
	Workspace *workspace.Workspace
	Caps      *capability.Registry
	Exporter  *export.Exporter
	Commands  *commands.Registry
	Service   *exportservice.Service
	Notices   *notify.Recorder
}

// NewEnv writes files into a fresh vault, indexes them and wires the
// export stack with probe as the tool lookup.
func NewEnv(t *testing.T, files map[string]string, probe capability.Probe) *Env {
	t.Helper()
	vault, store := TestVault(t)
	WriteFiles(t, vault, files)
	layout := export.Layout{VaultRoot: store.Root()}
	store.Exclude(layout.OutputDirs()...)
	db := TestDB(t)
	logger := DiscardLogger()
	if err := index.Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if probe == nil {
		probe = StaticProbe{}
	}
	caps := capability.NewRegistry(capability.Settings{Tools: capability.DefaultTools("")}, probe, logger)
	if _, err := caps.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	ws := workspace.New(store, db, logger)
	rec := &notify.Recorder{}
	exp := export.New(export.Deps{
		Host:      ws,
		Renderer:  render.New(render.Options{}),
		Converter: convert.NewPandoc(caps, logger),
		Writer:    storage.NewOutput(),
		Caps:      caps,
		Sink:      notify.Multi(notify.Log(logger), rec),
		Logger:    logger,
	}, layout)
	cmds := commands.New(context.Background(), ws, exp, logger)
	t.Cleanup(cmds.Wait)

	return &Env{
		Vault:     store.Root(),
		Store:     store,
		DB:        db,
		Workspace: ws,
		Caps:      caps,
		Exporter:  exp,
		Commands:  cmds,
		Service: exportservice.New(exportservice.Deps{
			Workspace: ws,
			Index:     db,
			Caps:      caps,
			Exporter:  exp,
			Commands:  cmds,
			Logger:    logger,
		}),
		Notices: rec,
	}
}
