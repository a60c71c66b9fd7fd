// Package export runs batch exports over every document in the vault.
//
// A batch is planned up front as an ordered list of immutable jobs and then
// executed strictly one job at a time: make the document active, render the
// active view, write the result. A failing job produces a failure notice
// and the batch moves on; only errors before the first job (enumeration,
// map preamble) are returned to the caller.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/starford/kenaz-export/internal/apperr"
	"github.com/starford/kenaz-export/internal/capability"
	"github.com/starford/kenaz-export/internal/convert"
	"github.com/starford/kenaz-export/internal/format"
	"github.com/starford/kenaz-export/internal/models"
	"github.com/starford/kenaz-export/internal/notify"
	"github.com/starford/kenaz-export/internal/render"
	"github.com/starford/kenaz-export/internal/storage"
	"github.com/starford/kenaz-export/internal/workspace"
)

// Host is the environment holding the documents and the active-document slot.
type Host interface {
	Documents(ctx context.Context) ([]models.Document, error)
	Active() (models.Document, bool)
	Acquire(ctx context.Context, doc models.Document) (*workspace.View, error)
}

// Renderer converts the active view into HTML.
type Renderer interface {
	Render(ctx context.Context, view *workspace.View, f format.Format) (*render.Output, error)
	RenderFragment(ctx context.Context, view *workspace.View, f format.Format) (*render.Output, error)
}

// Converter produces formats that need the external tool chain.
type Converter interface {
	Convert(ctx context.Context, req convert.Request) error
}

// Capabilities supplies the session's capability map.
type Capabilities interface {
	Current() capability.Map
}

// Deps are the collaborators of an Exporter.
type Deps struct {
	Host      Host
	Renderer  Renderer
	Converter Converter
	Writer    storage.Writer
	Caps      Capabilities
	Sink      notify.Sink
	Logger    *slog.Logger
}

// Outcome is the result of one job.
type Outcome struct {
	Job Job
	Err error
}

// Summary describes a finished batch.
type Summary struct {
	BatchID   string
	Format    string
	Outcomes  []Outcome
	Succeeded int
	Failed    int
}

// Exporter plans and runs export batches. One batch runs at a time.
type Exporter struct {
	host      Host
	renderer  Renderer
	converter Converter
	writer    storage.Writer
	caps      Capabilities
	sink      notify.Sink
	logger    *slog.Logger
	layout    Layout

	running atomic.Bool
}

// New creates an Exporter.
func New(d Deps, l Layout) *Exporter {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Sink == nil {
		d.Sink = notify.Log(d.Logger)
	}
	return &Exporter{
		host:      d.Host,
		renderer:  d.Renderer,
		converter: d.Converter,
		writer:    d.Writer,
		caps:      d.Caps,
		sink:      d.Sink,
		logger:    d.Logger,
		layout:    l,
	}
}

// CanExport evaluates eligibility of f against the current active
// document and capability map.
func (e *Exporter) CanExport(f format.Format) bool {
	active, ok := e.host.Active()
	if !ok {
		return CanExport(f, "", e.caps.Current())
	}
	return CanExport(f, active.Path, e.caps.Current())
}

// Plan enumerates the documents and builds the batch for f without running it.
func (e *Exporter) Plan(ctx context.Context, f format.Format) (*Batch, error) {
	docs, err := e.host.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: enumerate documents: %w", err)
	}
	if f.Name == format.Map {
		return e.mapBatch(docs), nil
	}
	return PlanFiles(docs, f, e.layout), nil
}

// BatchFunc runs a batch whose slot has already been claimed.
type BatchFunc func(ctx context.Context) (*Summary, error)

// ExportAll exports every document in the named format.
func (e *Exporter) ExportAll(ctx context.Context, formatName string) (*Summary, error) {
	run, err := e.Reserve(formatName)
	if err != nil {
		return nil, err
	}
	return run(ctx)
}

// Reserve claims the batch slot for formatName without starting the batch.
// The returned function plans and runs the batch, then frees the slot; it
// must be called exactly once.
func (e *Exporter) Reserve(formatName string) (BatchFunc, error) {
	f, err := format.Lookup(formatName)
	if err != nil {
		return nil, err
	}
	if !e.running.CompareAndSwap(false, true) {
		return nil, apperr.ErrBatchRunning
	}
	return func(ctx context.Context) (*Summary, error) {
		defer e.running.Store(false)
		b, err := e.Plan(ctx, f)
		if err != nil {
			return nil, err
		}
		return e.Run(ctx, b)
	}, nil
}

// Busy reports whether a batch holds the slot.
func (e *Exporter) Busy() bool {
	return e.running.Load()
}

// Run executes a planned batch. Callers other than ExportAll are
// responsible for not running batches concurrently.
func (e *Exporter) Run(ctx context.Context, b *Batch) (*Summary, error) {
	start := time.Now()
	log := e.logger.With(slog.String("batch_id", b.ID), slog.String("format", b.Format.Name))
	log.Info("export: batch started", slog.Int("jobs", len(b.Jobs)))

	if b.Setup != nil {
		if err := b.Setup(ctx); err != nil {
			log.Error("export: batch setup failed", slog.String("error", err.Error()))
			return nil, err
		}
	}

	// The capability map is fixed for the whole batch.
	caps := e.caps.Current()
	sum := &Summary{BatchID: b.ID, Format: b.Format.Name, Outcomes: make([]Outcome, 0, len(b.Jobs))}
	for i, job := range b.Jobs {
		if err := ctx.Err(); err != nil {
			log.Warn("export: batch abandoned", slog.Int("completed", i), slog.String("error", err.Error()))
			return sum, err
		}

		e.sink.Notify(notify.Notice{
			Kind:     notify.KindStarted,
			Text:     fmt.Sprintf("Exporting %s", job.InputPath),
			Duration: notify.DefaultDuration,
			BatchID:  b.ID,
			Input:    job.InputPath,
		})

		err := e.runJob(ctx, job, caps)
		sum.Outcomes = append(sum.Outcomes, Outcome{Job: job, Err: err})
		if err != nil {
			sum.Failed++
			log.Warn("export: job failed", slog.String("input", job.InputPath), slog.String("error", err.Error()))
			e.sink.Notify(notify.Notice{
				Kind:     notify.KindFailed,
				Text:     fmt.Sprintf("Failed to export %s: %s", job.InputPath, err.Error()),
				Duration: notify.FailureDuration,
				BatchID:  b.ID,
				Input:    job.InputPath,
				Output:   job.OutputPath,
				Error:    err.Error(),
			})
			continue
		}
		sum.Succeeded++
		log.Debug("export: job done", slog.String("input", job.InputPath), slog.String("output", job.OutputPath))
		e.sink.Notify(notify.Notice{
			Kind:     notify.KindSucceeded,
			Text:     fmt.Sprintf("Exported %s to %s", job.InputPath, job.OutputPath),
			Duration: notify.DefaultDuration,
			BatchID:  b.ID,
			Input:    job.InputPath,
			Output:   job.OutputPath,
		})
	}

	if b.Complete != nil {
		if err := b.Complete(ctx); err != nil {
			log.Error("export: batch completion failed", slog.String("error", err.Error()))
			return sum, err
		}
	}

	log.Info("export: batch finished",
		slog.Int("succeeded", sum.Succeeded),
		slog.Int("failed", sum.Failed),
		slog.Duration("elapsed", time.Since(start)))
	return sum, nil
}

// runJob switches to the job's document, renders it and writes the result.
// The active-document slot is held until the write has finished.
func (e *Exporter) runJob(ctx context.Context, job Job, caps capability.Map) error {
	if err := FormatAvailable(job.Format, caps); err != nil {
		return err
	}

	view, err := e.host.Acquire(ctx, job.Document)
	if err != nil {
		return fmt.Errorf("open %s: %w", job.Document.Path, err)
	}
	defer view.Release()

	if job.Fragment {
		out, err := e.renderer.RenderFragment(ctx, view, job.Format)
		if err != nil {
			return err
		}
		return e.writer.AppendFile(ctx, job.OutputPath, []byte(out.HTML))
	}

	out, err := e.renderer.Render(ctx, view, job.Format)
	if err != nil {
		return err
	}
	if !job.Format.NeedsConverter {
		return e.writer.WriteFile(ctx, job.OutputPath, []byte(out.HTML))
	}
	if e.converter == nil {
		return errors.New("no converter configured")
	}
	return e.converter.Convert(ctx, convert.Request{
		HTML:       []byte(out.HTML),
		Format:     job.Format,
		InputPath:  job.InputPath,
		OutputPath: job.OutputPath,
		Title:      out.Metadata.Title,
		Tools:      caps,
	})
}
