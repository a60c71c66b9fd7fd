package export

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/starford/kenaz-export/internal/format"
	"github.com/starford/kenaz-export/internal/models"
)

// Job binds one document to one output. Jobs are built up front and never modified.
type Job struct {
	Document   models.Document
	InputPath  string // absolute
	OutputPath string // absolute
	Format     format.Format
	// Fragment jobs render a body fragment and append it to OutputPath
	// instead of replacing the file.
	Fragment bool
}

// Action is a batch-level step.
type Action func(ctx context.Context) error

// Batch is the ordered job list of one export run.
type Batch struct {
	ID     string
	Format format.Format
	Jobs   []Job
	// Destination is the shared output of a map batch; empty otherwise.
	Destination string
	// Setup runs before the first job; its error aborts the run.
	Setup Action
	// Complete runs after the last job.
	Complete Action
}

// Layout holds the configuration that determines output locations.
type Layout struct {
	VaultRoot    string
	OutputFolder string // empty writes under the vault root
	MapFilename  string
}

// OutputDirs returns the absolute directories exports write into. A
// configured output folder covers every format; otherwise each format
// other than map gets its subfolder of the vault root.
func (l Layout) OutputDirs() []string {
	if l.OutputFolder != "" {
		if out := absolute(l.OutputFolder, l.VaultRoot); out != filepath.Clean(l.VaultRoot) {
			return []string{out}
		}
	}
	var dirs []string
	for _, f := range format.All() {
		if f.Name == format.Map {
			continue
		}
		dirs = append(dirs, filepath.Join(l.VaultRoot, f.Subfolder()))
	}
	return dirs
}

// PlanFiles builds one standalone job per document in enumeration order.
func PlanFiles(docs []models.Document, f format.Format, l Layout) *Batch {
	jobs := make([]Job, 0, len(docs))
	for _, d := range docs {
		in := absolute(d.AbsPath, l.VaultRoot)
		jobs = append(jobs, Job{
			Document:   d,
			InputPath:  in,
			OutputPath: absolute(OutputPath(in, f, l.OutputFolder), l.VaultRoot),
			Format:     f,
		})
	}
	return &Batch{ID: uuid.NewString(), Format: f, Jobs: jobs}
}

// PlanMap builds fragment jobs that all append into the map destination.
// Setup and Complete are attached by the caller.
func PlanMap(docs []models.Document, l Layout) *Batch {
	f := format.MustLookup(format.Map)
	dest := absolute(MapPath(l.OutputFolder, l.MapFilename), l.VaultRoot)
	jobs := make([]Job, 0, len(docs))
	for _, d := range docs {
		jobs = append(jobs, Job{
			Document:   d,
			InputPath:  absolute(d.AbsPath, l.VaultRoot),
			OutputPath: dest,
			Format:     f,
			Fragment:   true,
		})
	}
	return &Batch{ID: uuid.NewString(), Format: f, Jobs: jobs, Destination: dest}
}
