package export

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/disgoorg/snowflake/v2"
	dbTypes "github.com/robalyx/lumi/internal/database/types"
	"github.com/robalyx/lumi/internal/export/csv"
	"github.com/robalyx/lumi/internal/export/sqlite"
	"github.com/robalyx/lumi/internal/export/types"
	"go.uber.org/zap"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format represents a supported export format.
type Format string

const (
	FormatSQLite Format = "sqlite"
	FormatCSV    Format = "csv"
	FormatAll    Format = "all"
)

// ParseFormats expands a format flag into the formats to write.
func ParseFormats(value string) ([]Format, error) {
	switch Format(value) {
	case FormatSQLite, FormatCSV:
		return []Format{Format(value)}, nil
	case FormatAll, "":
		return []Format{FormatSQLite, FormatCSV}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, value)
	}
}

// MessageSource loads the stored transcript of a channel.
type MessageSource interface {
	GetChannelMessages(ctx context.Context, channelID snowflake.ID) ([]*dbTypes.Message, error)
}

// Exporter writes channel transcripts to disk.
type Exporter struct {
	messages MessageSource
	outDir   string
	formats  []Format
	logger   *zap.Logger
}

// New creates a new exporter instance.
func New(messages MessageSource, outDir string, formats []Format, logger *zap.Logger) *Exporter {
	return &Exporter{
		messages: messages,
		outDir:   outDir,
		formats:  formats,
		logger:   logger.Named("exporter"),
	}
}

// ExportChannel writes every stored message of a channel in each configured format.
// It returns the number of exported messages.
func (e *Exporter) ExportChannel(ctx context.Context, channelID snowflake.ID) (int, error) {
	if err := os.MkdirAll(e.outDir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	messages, err := e.messages.GetChannelMessages(ctx, channelID)
	if err != nil {
		return 0, fmt.Errorf("failed to load messages: %w", err)
	}

	records := make([]*types.Record, 0, len(messages))
	for _, message := range messages {
		records = append(records, types.FromMessage(message))
	}

	for _, format := range e.formats {
		if err := e.export(format, records); err != nil {
			return 0, fmt.Errorf("failed to export %s format: %w", format, err)
		}

		e.logger.Info("Exported transcript",
			zap.Uint64("channelID", uint64(channelID)),
			zap.String("format", string(format)),
			zap.Int("messages", len(records)))
	}

	return len(records), nil
}

func (e *Exporter) export(format Format, records []*types.Record) error {
	switch format {
	case FormatSQLite:
		return sqlite.New(e.outDir).Export(records)
	case FormatCSV:
		return csv.New(e.outDir).Export(records)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
