// Package convert hands rendered HTML to the external document converter.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/starford/kenaz-export/internal/apperr"
	"github.com/starford/kenaz-export/internal/capability"
	"github.com/starford/kenaz-export/internal/format"
)

// Request is one conversion of a rendered document.
type Request struct {
	HTML       []byte
	Format     format.Format
	InputPath  string // absolute path of the source document
	OutputPath string // absolute path the converter writes to
	Title      string

	// Tools pins the tool paths for this call; nil uses the current map.
	Tools capability.Map
}

// Capabilities supplies the current capability map.
type Capabilities interface {
	Current() capability.Map
}

// Pandoc runs pandoc with HTML on stdin.
type Pandoc struct {
	caps   Capabilities
	logger *slog.Logger
}

// NewPandoc creates a converter that resolves tool paths from caps on every call.
func NewPandoc(caps Capabilities, logger *slog.Logger) *Pandoc {
	return &Pandoc{caps: caps, logger: logger}
}

// Convert writes req.OutputPath, creating its parent directory.
func (p *Pandoc) Convert(ctx context.Context, req Request) error {
	caps := req.Tools
	if caps == nil {
		caps = p.caps.Current()
	}
	bin, ok := caps.Path(capability.DocumentConverter)
	if !ok {
		return fmt.Errorf("convert: %s: %w", capability.DocumentConverter, apperr.ErrCapabilityMissing)
	}

	args := []string{
		"--from", "html",
		"--output", req.OutputPath,
		"--standalone",
		"--resource-path", filepath.Dir(req.InputPath),
	}
	if req.Title != "" {
		args = append(args, "--metadata", "title="+req.Title)
	}
	if req.Format.Writer != "" {
		args = append(args, "--to", req.Format.Writer)
	}
	if req.Format.NeedsTypesetter {
		engine, ok := caps.Path(capability.TypesettingEngine)
		if !ok {
			return fmt.Errorf("convert: %s: %w", capability.TypesettingEngine, apperr.ErrCapabilityMissing)
		}
		args = append(args, "--pdf-engine="+engine)
	}

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return fmt.Errorf("convert: mkdir: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(req.HTML)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	p.logger.Debug("convert: running pandoc",
		slog.String("format", req.Format.Name),
		slog.String("output", req.OutputPath))

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("convert: pandoc %s: %w", req.Format.Name, err)
		}
		return fmt.Errorf("convert: pandoc %s: %w: %s", req.Format.Name, err, msg)
	}

	if req.Format.Name == format.PDF {
		pages, err := pageCount(req.OutputPath)
		if err != nil {
			return fmt.Errorf("convert: verify pdf %s: %w", req.OutputPath, err)
		}
		p.logger.Debug("convert: pdf written", slog.String("output", req.OutputPath), slog.Int("pages", pages))
	}
	return nil
}

// pageCount opens a PDF and returns its page count.
func pageCount(path string) (n int, err error) {
	defer func() {
		// The pdf reader panics on some malformed inputs.
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n = r.NumPage()
	if n == 0 {
		return 0, fmt.Errorf("pdf has no pages")
	}
	return n, nil
}
