package csv_test

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	exportCSV "github.com/robalyx/lumi/internal/export/csv"
	"github.com/robalyx/lumi/internal/export/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// verifyCSVFile reads a CSV file and verifies its contents match the expected records.
func verifyCSVFile(t *testing.T, path string, expected []*types.Record) {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	require.NoError(t, err)
	assert.Equal(t, types.Columns, header)

	for _, record := range expected {
		row, err := reader.Read()
		require.NoError(t, err)
		assert.Equal(t, record.Fields(), row)
	}

	_, err = reader.Read()
	assert.Equal(t, io.EOF, err, "expected EOF after last record")
}

func TestExporter_Export(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		records []*types.Record
	}{
		{
			name: "basic export",
			records: []*types.Record{
				{ID: "1", Time: at, Sender: "7", SenderName: "alice", SenderDisplayName: "Alice", Contents: "hi"},
				{ID: "2", Time: at, Sender: "9", SenderName: "lumi", SenderDisplayName: "Lumi", IsSelf: true, Reply: "1", Contents: "hello"},
			},
		},
		{
			name:    "empty records",
			records: []*types.Record{},
		},
		{
			name: "records with special characters",
			records: []*types.Record{
				{ID: "3", Time: at, Sender: "7", SenderName: "alice", Contents: "commas, \"quotes\"\nand newlines"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tempDir := t.TempDir()

			err := exportCSV.New(tempDir).Export(tt.records)
			require.NoError(t, err)

			verifyCSVFile(t, filepath.Join(tempDir, "messages.csv"), tt.records)
		})
	}
}

func TestExporter_ExistingFile(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()

	err := os.WriteFile(filepath.Join(tempDir, "messages.csv"), []byte("existing content"), 0o600)
	require.NoError(t, err)

	records := []*types.Record{{ID: "1", Time: time.Unix(0, 0).UTC(), Contents: "fresh"}}
	require.NoError(t, exportCSV.New(tempDir).Export(records))

	verifyCSVFile(t, filepath.Join(tempDir, "messages.csv"), records)
}
