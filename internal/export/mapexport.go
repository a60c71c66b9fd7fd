package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/kenaz-export/internal/models"
)

// MapPreamble opens the aggregated map document.
const MapPreamble = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<meta name="generator" content="kenaz-export">
<title>Vault map</title>
<style>
body { margin: 2rem; font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; line-height: 1.5; color: #1f2328; }
main { display: grid; grid-template-columns: repeat(auto-fill, minmax(22rem, 1fr)); gap: 1rem; }
section.note { border: 1px solid #d0d7de; border-radius: 6px; padding: 0 1rem 1rem; }
section.note:target { border-color: #0969da; box-shadow: 0 0 0 2px #54aeff66; }
section.note h2 { font-size: 1.1rem; border-bottom: 1px solid #d0d7de; padding-bottom: 0.25rem; }
</style>
</head>
<body>
<main>
`

// MapPostamble closes the document opened by MapPreamble.
const MapPostamble = `</main>
</body>
</html>
`

// mapBatch plans a map export and attaches the preamble and postamble
// writes. If the run is interrupted after Setup the destination is left
// without its postamble.
func (e *Exporter) mapBatch(docs []models.Document) *Batch {
	b := PlanMap(docs, e.layout)
	dest := b.Destination

	b.Setup = func(ctx context.Context) error {
		if err := e.writer.WriteFile(ctx, dest, []byte(MapPreamble)); err != nil {
			return fmt.Errorf("export: write map preamble: %w", err)
		}
		e.logger.Debug("export: map preamble written", slog.String("batch_id", b.ID), slog.String("output", dest))
		return nil
	}
	b.Complete = func(ctx context.Context) error {
		if err := e.writer.AppendFile(ctx, dest, []byte(MapPostamble)); err != nil {
			return fmt.Errorf("export: write map postamble: %w", err)
		}
		e.logger.Debug("export: map postamble written", slog.String("batch_id", b.ID), slog.String("output", dest))
		return nil
	}
	return b
}
