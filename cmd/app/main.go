package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/kenaz-export/internal"
	pkgconfig "github.com/starford/kenaz-export/pkg/config"
)

// loadOptions reads the config file and applies command-line overrides.
func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
	}
	if v := cmd.String("output"); v != "" {
		cfg.Export.OutputFolder = v
	}
	return []internal.Option{internal.WithConfig(cfg)}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func exportAll(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.Export(ctx, cmd.String("format"), append(opts, internal.WithLogOutput(os.Stderr))...)
}

func exportMap(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.Export(ctx, "map", append(opts, internal.WithLogOutput(os.Stderr))...)
}

func capabilities(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.Capabilities(ctx, cmd.Bool("json"), append(opts, internal.WithLogOutput(os.Stderr))...)
}

func check(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.Check(ctx, cmd.String("format"), cmd.String("document"), append(opts, internal.WithLogOutput(os.Stderr))...)
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, opts...)
}

func main() {
	formatFlag := &cli.StringFlag{
		Name:     "format",
		Aliases:  []string{"f"},
		Usage:    "Output format (html, map, md, docx, odt, rtf, pptx, epub, latex, rst, asciidoc, mediawiki, dokuwiki, org, pdf)",
		Required: true,
	}

	cmd := &cli.Command{
		Name:  "kenaz-export",
		Usage: "Batch export a Markdown vault to HTML, a single-page map, or any format pandoc can write",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "Vault directory (overrides vault.path)",
				Sources: cli.EnvVars("APP_VAULT_PATH"),
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "Output folder (overrides export.output_folder)",
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with live notices over SSE",
				Action: serve,
			},
			{
				Name:   "export",
				Usage:  "Export every document in one format",
				Flags:  []cli.Flag{formatFlag},
				Action: exportAll,
			},
			{
				Name:   "map",
				Usage:  "Concatenate every document into one HTML map",
				Action: exportMap,
			},
			{
				Name:  "capabilities",
				Usage: "Show detected external tools and available formats",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print as JSON"},
				},
				Action: capabilities,
			},
			{
				Name:  "check",
				Usage: "Check whether a document can be exported in a format",
				Flags: []cli.Flag{
					formatFlag,
					&cli.StringFlag{
						Name:     "document",
						Aliases:  []string{"d"},
						Usage:    "Vault-relative document path",
						Required: true,
					},
				},
				Action: check,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the export tools over MCP on stdin/stdout",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
