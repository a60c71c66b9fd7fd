// Package exportservice is the application layer shared by the HTTP API,
// the MCP server and the CLI: document listing, active-document control,
// capability inspection, eligibility and the command surface.
package exportservice

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/starford/kenaz-export/internal/apperr"
	"github.com/starford/kenaz-export/internal/capability"
	"github.com/starford/kenaz-export/internal/commands"
	"github.com/starford/kenaz-export/internal/export"
	"github.com/starford/kenaz-export/internal/format"
	"github.com/starford/kenaz-export/internal/index"
	"github.com/starford/kenaz-export/internal/models"
	"github.com/starford/kenaz-export/internal/workspace"
)

// DocumentItem is a document as listed to clients.
type DocumentItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	Backlinks []string  `json:"backlinks,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FormatStatus is a format and whether the session's tools can produce it.
type FormatStatus struct {
	format.Format
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// CapabilitiesView lists detected tool paths keyed by capability.
type CapabilitiesView struct {
	Tools   map[capability.Name]string `json:"tools"`
	Formats []FormatStatus             `json:"formats"`
}

// Eligibility is the answer to "can the active document be exported as f".
type Eligibility struct {
	Format    string `json:"format"`
	Active    string `json:"active,omitempty"`
	CanExport bool   `json:"can_export"`
}

// Deps are the collaborators of a Service.
type Deps struct {
	Workspace *workspace.Workspace
	Index     *index.DB
	Caps      *capability.Registry
	Exporter  *export.Exporter
	Commands  *commands.Registry
	Logger    *slog.Logger
}

// Service coordinates the workspace, index, capability registry,
// exporter and command registry.
type Service struct {
	ws       *workspace.Workspace
	db       *index.DB
	caps     *capability.Registry
	exporter *export.Exporter
	cmds     *commands.Registry
	logger   *slog.Logger
}

// New creates a Service.
func New(d Deps) *Service {
	return &Service{
		ws:       d.Workspace,
		db:       d.Index,
		caps:     d.Caps,
		exporter: d.Exporter,
		cmds:     d.Commands,
		logger:   d.Logger,
	}
}

// ListDocuments returns every recognised document in enumeration order.
func (s *Service) ListDocuments(ctx context.Context) ([]DocumentItem, error) {
	rows, err := s.db.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]DocumentItem, 0, len(rows))
	for _, r := range rows {
		if !models.IsSupportedInput(r.Path) {
			continue
		}
		items = append(items, toItem(r))
	}
	return items, nil
}

// Active returns the active document with its backlinks.
func (s *Service) Active(_ context.Context) (*DocumentItem, error) {
	doc, ok := s.ws.Active()
	if !ok {
		return nil, apperr.ErrNoActiveDocument
	}
	return s.detail(doc.Path)
}

// SetActive makes path the active document.
func (s *Service) SetActive(ctx context.Context, path string) (*DocumentItem, error) {
	doc, err := s.ws.Document(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := s.ws.SetActive(ctx, doc); err != nil {
		return nil, err
	}
	s.logger.Info("active document set", slog.String("path", path))
	return s.detail(path)
}

// ClearActive leaves no document active.
func (s *Service) ClearActive() {
	s.ws.ClearActive()
}

func (s *Service) detail(path string) (*DocumentItem, error) {
	row, err := s.db.GetDocument(path)
	if err != nil {
		return nil, err
	}
	item := toItem(*row)
	bl, err := s.backlinks(path)
	if err != nil {
		return nil, err
	}
	item.Backlinks = bl
	return &item, nil
}

// backlinks collects sources linking to path by any of the names a
// wikilink can use: the full path, the path without extension, or the stem.
func (s *Service) backlinks(rel string) ([]string, error) {
	noExt := strings.TrimSuffix(rel, path.Ext(rel))
	names := []string{rel, noExt, path.Base(noExt)}
	sources := map[string]struct{}{}
	for i, n := range names {
		if slices.Contains(names[:i], n) {
			continue
		}
		src, err := s.db.Backlinks(n)
		if err != nil {
			return nil, err
		}
		for _, p := range src {
			sources[p] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(sources)), nil
}

// Capabilities returns the cached capability map and per-format availability.
func (s *Service) Capabilities() CapabilitiesView {
	caps := s.caps.Current()
	return CapabilitiesView{Tools: caps, Formats: formatStatuses(caps)}
}

// RefreshCapabilities re-probes the external tools.
func (s *Service) RefreshCapabilities(ctx context.Context) (CapabilitiesView, error) {
	caps, err := s.caps.Rebuild(ctx)
	if err != nil {
		return CapabilitiesView{}, fmt.Errorf("exportservice: refresh capabilities: %w", err)
	}
	return CapabilitiesView{Tools: caps, Formats: formatStatuses(caps)}, nil
}

// Formats lists every output format with its availability.
func (s *Service) Formats() []FormatStatus {
	return formatStatuses(s.caps.Current())
}

// Eligibility evaluates the named format against the active document.
func (s *Service) Eligibility(formatName string) (Eligibility, error) {
	f, err := format.Lookup(formatName)
	if err != nil {
		return Eligibility{}, err
	}
	out := Eligibility{Format: f.Name, CanExport: s.exporter.CanExport(f)}
	if doc, ok := s.ws.Active(); ok {
		out.Active = doc.Path
	}
	return out, nil
}

// CheckDocument evaluates the named format for a document without
// touching the active-document slot.
func (s *Service) CheckDocument(ctx context.Context, formatName, path string) (Eligibility, error) {
	f, err := format.Lookup(formatName)
	if err != nil {
		return Eligibility{}, err
	}
	if _, err := s.ws.Document(ctx, path); err != nil {
		return Eligibility{}, err
	}
	return Eligibility{
		Format:    f.Name,
		Active:    path,
		CanExport: export.CanExport(f, path, s.caps.Current()),
	}, nil
}

// Commands returns the command surface with enabled states.
func (s *Service) Commands(ctx context.Context) []commands.Status {
	return s.cmds.List(ctx)
}

// RunCommand starts a command in the background.
func (s *Service) RunCommand(ctx context.Context, id string) error {
	if err := s.cmds.Run(ctx, id); err != nil {
		return err
	}
	s.logger.Info("command started", slog.String("command", id))
	return nil
}

// Export runs a batch synchronously.
func (s *Service) Export(ctx context.Context, formatName string) (*export.Summary, error) {
	return s.exporter.ExportAll(ctx, formatName)
}

func formatStatuses(caps capability.Map) []FormatStatus {
	all := format.All()
	out := make([]FormatStatus, 0, len(all))
	for _, f := range all {
		st := FormatStatus{Format: f, Available: true}
		if err := export.FormatAvailable(f, caps); err != nil {
			st.Available = false
			st.Reason = err.Error()
		}
		out = append(out, st)
	}
	return out
}

func toItem(r index.DocumentRow) DocumentItem {
	return DocumentItem{
		Path:      r.Path,
		Title:     r.Title,
		Checksum:  r.Checksum,
		Tags:      nonNilSlice(r.Tags),
		UpdatedAt: r.UpdatedAt,
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
