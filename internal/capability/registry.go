// Package capability detects which external tools are available to the exporter.
//
// Detection runs once and the resulting Map is treated as immutable until
// the Registry is explicitly rebuilt (for example after a settings change).
package capability

import (
	"context"
	"log/slog"
	"maps"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Name identifies an external tool capability.
type Name string

const (
	DocumentConverter Name = "document-converter"
	TypesettingEngine Name = "typesetting-engine"
)

// Map maps a capability to the absolute path of its executable.
// A capability without an entry is absent.
type Map map[Name]string

// Has reports whether the capability is present.
func (m Map) Has(n Name) bool {
	return m[n] != ""
}

// Path returns the executable path for n.
func (m Map) Path(n Name) (string, bool) {
	p, ok := m[n]
	return p, ok && p != ""
}

// Tool is a known external tool and the executable name looked up on PATH.
type Tool struct {
	Name       Name
	Executable string
}

// Settings are the user-controlled inputs to detection.
type Settings struct {
	// Overrides holds explicit executable paths; empty values are ignored.
	Overrides map[Name]string
	// Tools lists the tools to resolve.
	Tools []Tool
}

// DefaultTools returns the known tools; engine is the typesetting
// executable name (pdflatex when empty).
func DefaultTools(engine string) []Tool {
	if engine == "" {
		engine = "pdflatex"
	}
	return []Tool{
		{Name: DocumentConverter, Executable: "pandoc"},
		{Name: TypesettingEngine, Executable: engine},
	}
}

// Probe looks up an executable by name. ok is false when it cannot be found.
type Probe interface {
	FindExecutable(ctx context.Context, name string) (path string, ok bool)
}

// Resolve combines configured overrides with probe results: a non-empty
// override wins, then the probed path, otherwise the capability is left out.
func Resolve(s Settings, probed map[Name]string) Map {
	out := make(Map, len(s.Tools))
	for _, t := range s.Tools {
		if p := s.Overrides[t.Name]; p != "" {
			out[t.Name] = p
			continue
		}
		if p := probed[t.Name]; p != "" {
			out[t.Name] = p
		}
	}
	return out
}

// Detect probes every tool without an override and resolves the map.
// Lookups run concurrently; a tool that cannot be found is not an error.
func Detect(ctx context.Context, s Settings, probe Probe) (Map, error) {
	var mu sync.Mutex
	probed := make(map[Name]string, len(s.Tools))

	g, gCtx := errgroup.WithContext(ctx)
	for _, t := range s.Tools {
		if s.Overrides[t.Name] != "" {
			continue
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			if p, ok := probe.FindExecutable(gCtx, t.Executable); ok {
				mu.Lock()
				probed[t.Name] = p
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Resolve(s, probed), nil
}

// Registry caches the detected Map for the session.
type Registry struct {
	probe  Probe
	logger *slog.Logger

	mu       sync.RWMutex
	settings Settings
	current  Map
}

// NewRegistry returns a Registry that has not probed yet; call Rebuild.
func NewRegistry(s Settings, probe Probe, logger *slog.Logger) *Registry {
	return &Registry{
		probe:    probe,
		logger:   logger,
		settings: s,
		current:  Map{},
	}
}

// Rebuild re-runs detection with the current settings and swaps the cached map.
func (r *Registry) Rebuild(ctx context.Context) (Map, error) {
	r.mu.RLock()
	s := r.settings
	r.mu.RUnlock()

	m, err := Detect(ctx, s, r.probe)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.current = m
	r.mu.Unlock()

	for _, t := range s.Tools {
		if p, ok := m.Path(t.Name); ok {
			r.logger.Info("capability: detected", slog.String("capability", string(t.Name)), slog.String("path", p))
		} else {
			r.logger.Info("capability: missing", slog.String("capability", string(t.Name)), slog.String("executable", t.Executable))
		}
	}
	return maps.Clone(m), nil
}

// UpdateSettings replaces the settings and rebuilds the map.
func (r *Registry) UpdateSettings(ctx context.Context, s Settings) (Map, error) {
	r.mu.Lock()
	r.settings = s
	r.mu.Unlock()
	return r.Rebuild(ctx)
}

// Current returns a copy of the cached map.
func (r *Registry) Current() Map {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.current)
}
