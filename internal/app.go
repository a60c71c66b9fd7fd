package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

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

// stack is the wired export pipeline shared by every entry point.
type stack struct {
	store    *storage.FS
	db       *index.DB
	caps     *capability.Registry
	ws       *workspace.Workspace
	exporter *export.Exporter
	commands *commands.Registry
	service  *exportservice.Service
}

func newApplication(opts []Option) (*application, error) {
	app := &application{out: os.Stdout, logOut: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

func capabilitySettings(cfg *Config) capability.Settings {
	s := capability.Settings{
		Overrides: map[capability.Name]string{},
		Tools:     capability.DefaultTools(cfg.Tools.LatexEngine),
	}
	if cfg.Tools.PandocPath != "" {
		s.Overrides[capability.DocumentConverter] = cfg.Tools.PandocPath
	}
	if cfg.Tools.LatexPath != "" {
		s.Overrides[capability.TypesettingEngine] = cfg.Tools.LatexPath
	}
	return s
}

func exportLayout(cfg *Config, vaultRoot string) export.Layout {
	out := cfg.Export.OutputFolder
	if out != "" && !filepath.IsAbs(out) {
		out = filepath.Join(vaultRoot, out)
	}
	return export.Layout{
		VaultRoot:    vaultRoot,
		OutputFolder: out,
		MapFilename:  cfg.Export.MapFilename,
	}
}

// buildStack opens the vault and index, syncs the index, probes the tools
// and wires the exporter. base outlives individual requests and is used
// for background commands. The caller must close the returned stack.
func buildStack(base context.Context, cfg *Config, logger *slog.Logger, sink notify.Sink) (*stack, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	layout := exportLayout(cfg, store.Root())
	store.Exclude(layout.OutputDirs()...)

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	caps := capability.NewRegistry(capabilitySettings(cfg), capability.ExecProbe{}, logger)
	if _, err := caps.Rebuild(base); err != nil {
		db.Close()
		return nil, fmt.Errorf("detect capabilities: %w", err)
	}

	ws := workspace.New(store, db, logger)
	exp := export.New(export.Deps{
		Host:      ws,
		Renderer:  render.New(render.Options{Sanitize: cfg.Export.Sanitize}),
		Converter: convert.NewPandoc(caps, logger),
		Writer:    storage.NewOutput(),
		Caps:      caps,
		Sink:      sink,
		Logger:    logger,
	}, layout)
	cmds := commands.New(base, ws, exp, logger)

	return &stack{
		store:    store,
		db:       db,
		caps:     caps,
		ws:       ws,
		exporter: exp,
		commands: cmds,
		service: exportservice.New(exportservice.Deps{
			Workspace: ws,
			Index:     db,
			Caps:      caps,
			Exporter:  exp,
			Commands:  cmds,
			Logger:    logger,
		}),
	}, nil
}

// Close waits for background commands and closes the index.
func (s *stack) Close() error {
	s.commands.Wait()
	return s.db.Close()
}
