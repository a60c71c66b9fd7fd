// Package commands exposes the batch exports as named, gated actions that
// run in the background.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/kenaz-export/internal/apperr"
	"github.com/starford/kenaz-export/internal/export"
	"github.com/starford/kenaz-export/internal/format"
	"github.com/starford/kenaz-export/internal/models"
)

// Command IDs.
const (
	ExportAllHTML = "export-all-html"
	ExportAllMap  = "export-all-map"
)

// Command is one registered action.
type Command struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Format string `json:"format"`
}

// Status is a command together with whether it can run right now.
type Status struct {
	Command
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason,omitempty"`
}

// Host reports the vault contents and the active document.
type Host interface {
	Documents(ctx context.Context) ([]models.Document, error)
	Active() (models.Document, bool)
}

// Runner claims and executes batch exports.
type Runner interface {
	Reserve(formatName string) (export.BatchFunc, error)
	Busy() bool
}

// Registry holds the commands and runs them detached from the caller.
type Registry struct {
	host   Host
	runner Runner
	logger *slog.Logger
	base   context.Context
	cmds   []Command

	wg sync.WaitGroup
}

// New creates the registry. Started batches run under base, not under the
// context of the request that triggered them.
func New(base context.Context, host Host, runner Runner, logger *slog.Logger) *Registry {
	return &Registry{
		host:   host,
		runner: runner,
		logger: logger,
		base:   base,
		cmds: []Command{
			{ID: ExportAllHTML, Title: "Export all documents as HTML", Format: format.HTML},
			{ID: ExportAllMap, Title: "Export all documents as a map", Format: format.Map},
		},
	}
}

// Commands returns the registered commands.
func (r *Registry) Commands() []Command {
	out := make([]Command, len(r.cmds))
	copy(out, r.cmds)
	return out
}

func (r *Registry) lookup(id string) (Command, error) {
	for _, c := range r.cmds {
		if c.ID == id {
			return c, nil
		}
	}
	return Command{}, fmt.Errorf("commands: %s: %w", id, apperr.ErrNotFound)
}

// Check reports why the command cannot run, or nil when it can. A command
// needs at least one document, an active document and an idle exporter.
func (r *Registry) Check(ctx context.Context, id string) error {
	if _, err := r.lookup(id); err != nil {
		return err
	}
	docs, err := r.host.Documents(ctx)
	if err != nil {
		return fmt.Errorf("commands: list documents: %w", err)
	}
	if len(docs) == 0 {
		return apperr.ErrNoDocuments
	}
	if _, ok := r.host.Active(); !ok {
		return apperr.ErrNoActiveDocument
	}
	if r.runner.Busy() {
		return apperr.ErrBatchRunning
	}
	return nil
}

// List returns every command with its current enabled state.
func (r *Registry) List(ctx context.Context) []Status {
	out := make([]Status, 0, len(r.cmds))
	for _, c := range r.cmds {
		st := Status{Command: c, Enabled: true}
		if err := r.Check(ctx, c.ID); err != nil {
			st.Enabled = false
			st.Reason = err.Error()
		}
		out = append(out, st)
	}
	return out
}

// Run claims the exporter, starts the command in the background and
// returns. Job outcomes are reported through the exporter's notices; Run
// itself fails when the command is unknown, gated off or another batch
// holds the exporter.
func (r *Registry) Run(ctx context.Context, id string) error {
	c, err := r.lookup(id)
	if err != nil {
		return err
	}
	if err := r.Check(ctx, id); err != nil {
		return err
	}
	run, err := r.runner.Reserve(c.Format)
	if err != nil {
		return fmt.Errorf("commands: %s: %w", c.ID, err)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		sum, err := run(r.base)
		if err != nil {
			r.logger.Error("commands: run failed", slog.String("command", c.ID), slog.String("error", err.Error()))
			return
		}
		r.logger.Info("commands: run finished",
			slog.String("command", c.ID),
			slog.String("batch_id", sum.BatchID),
			slog.Int("succeeded", sum.Succeeded),
			slog.Int("failed", sum.Failed))
	}()
	return nil
}

// Wait blocks until every started command has returned.
func (r *Registry) Wait() {
	r.wg.Wait()
}
