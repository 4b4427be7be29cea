package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/lumi/internal/export"
	"github.com/robalyx/lumi/internal/setup"
	"github.com/robalyx/lumi/internal/setup/telemetry"
	"github.com/urfave/cli/v3"
)

const (
	// ExportLogDir specifies where export log files are stored.
	ExportLogDir = "logs/export_logs"
)

var ErrChannelRequired = errors.New("a channel id is required")

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "export",
		Usage: "Export the stored transcript of a channel",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "channel",
				Aliases: []string{"c"},
				Usage:   "Discord channel id to export",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Value:   "exports",
				Usage:   "Base output directory for export files",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   string(export.FormatAll),
				Usage:   "Output format (sqlite, csv or all)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.String("channel") == "" {
				return ErrChannelRequired
			}

			channelID, err := snowflake.Parse(c.String("channel"))
			if err != nil {
				return fmt.Errorf("invalid channel id: %w", err)
			}

			formats, err := export.ParseFormats(c.String("format"))
			if err != nil {
				return err
			}

			// Initialize application with required dependencies
			app, err := setup.InitializeApp(ctx, telemetry.ServiceExport, ExportLogDir)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.Cleanup(ctx)

			// Create timestamped output directory per channel
			timestamp := time.Now().UTC().Format("2006-01-02_150405")
			outDir := filepath.Join(c.String("out"), channelID.String(), timestamp)

			exporter := export.New(app.DB.Model().Message(), outDir, formats, app.Logger)

			count, err := exporter.ExportChannel(ctx, channelID)
			if err != nil {
				return fmt.Errorf("failed to export channel: %w", err)
			}

			fmt.Printf("Exported %d messages to %s\n", count, outDir)
			return nil
		},
	}

	return app.Run(context.Background(), os.Args)
}
