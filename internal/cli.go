package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/starford/kenaz-export/internal/capability"
	"github.com/starford/kenaz-export/internal/format"
	"github.com/starford/kenaz-export/internal/mcpserver"
	"github.com/starford/kenaz-export/internal/notify"
)

// Export runs one batch export in the foreground and prints every notice.
// It returns an error when the batch could not start or any job failed.
func Export(ctx context.Context, formatName string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, app.logOut)

	st, err := buildStack(ctx, app.config, logger, notify.Multi(notify.Log(logger), notify.Writer(app.out)))
	if err != nil {
		return err
	}
	defer st.Close()

	sum, err := st.exporter.ExportAll(ctx, formatName)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.out, "%s: %d exported, %d failed\n", sum.Format, sum.Succeeded, sum.Failed)
	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d documents failed", sum.Failed, len(sum.Outcomes))
	}
	return nil
}

// Capabilities prints the detected tools and the formats they enable.
func Capabilities(ctx context.Context, asJSON bool, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, app.logOut)

	st, err := buildStack(ctx, app.config, logger, notify.Log(logger))
	if err != nil {
		return err
	}
	defer st.Close()

	view := st.service.Capabilities()
	if asJSON {
		enc := json.NewEncoder(app.out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	names := make([]string, 0, len(view.Tools))
	for n := range view.Tools {
		names = append(names, string(n))
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(tw, "%s\t%s\n", n, view.Tools[capability.Name(n)])
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "FORMAT\tEXT\tAVAILABLE")
	for _, f := range view.Formats {
		fmt.Fprintf(tw, "%s\t.%s\t%t\n", f.Name, f.Extension, f.Available)
	}
	return tw.Flush()
}

// Check reports whether one document can be exported in a format.
func Check(ctx context.Context, formatName, path string, opts ...Option) error {
	if _, err := format.Lookup(formatName); err != nil {
		return err
	}
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, app.logOut)

	st, err := buildStack(ctx, app.config, logger, notify.Log(logger))
	if err != nil {
		return err
	}
	defer st.Close()

	el, err := st.service.CheckDocument(ctx, formatName, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.out, "%s as %s: %t\n", el.Active, el.Format, el.CanExport)
	if !el.CanExport {
		return fmt.Errorf("%s cannot be exported as %s", path, formatName)
	}
	return nil
}

// ServeMCP runs the MCP server on stdin/stdout until the client disconnects.
// Logs go to stderr since stdout carries the protocol.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := newLogger(app.config, app.logOut)
	slog.SetDefault(logger)

	st, err := buildStack(ctx, app.config, logger, notify.Log(logger))
	if err != nil {
		return err
	}
	defer st.Close()

	logger.Info("MCP server starting", slog.String("vault_path", app.config.Vault.Path))
	return mcpserver.New(st.service).ServeStdio()
}
