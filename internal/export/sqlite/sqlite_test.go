package sqlite_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	exportSQLite "github.com/robalyx/lumi/internal/export/sqlite"
	"github.com/robalyx/lumi/internal/export/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

type row struct {
	id       string
	isSelf   bool
	reply    string
	hasReply bool
	contents string
}

// readRows returns every exported message ordered by id.
func readRows(t *testing.T, path string) []row {
	t.Helper()

	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	require.NoError(t, err)
	defer conn.Close()

	var rows []row
	err = sqlitex.ExecuteTransient(conn, "SELECT id, is_self, reply, contents FROM messages ORDER BY id", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			rows = append(rows, row{
				id:       stmt.ColumnText(0),
				isSelf:   stmt.ColumnInt64(1) == 1,
				reply:    stmt.ColumnText(2),
				hasReply: stmt.ColumnType(2) != sqlite.TypeNull,
				contents: stmt.ColumnText(3),
			})
			return nil
		},
	})
	require.NoError(t, err)
	return rows
}

func TestExporter_Export(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		records []*types.Record
		want    []row
		wantErr bool
	}{
		{
			name: "basic export",
			records: []*types.Record{
				{ID: "1", Time: at, Sender: "7", SenderName: "alice", Contents: "hi"},
				{ID: "2", Time: at, Sender: "9", SenderName: "lumi", IsSelf: true, Reply: "1", Contents: "hello"},
			},
			want: []row{
				{id: "1", contents: "hi"},
				{id: "2", isSelf: true, reply: "1", hasReply: true, contents: "hello"},
			},
		},
		{
			name:    "empty records",
			records: []*types.Record{},
		},
		{
			name: "records with special characters",
			records: []*types.Record{
				{ID: "3", Time: at, Contents: "it's \"quoted\""},
			},
			want: []row{{id: "3", contents: "it's \"quoted\""}},
		},
		{
			name: "duplicate id",
			records: []*types.Record{
				{ID: "4", Time: at, Contents: "a"},
				{ID: "4", Time: at, Contents: "b"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tempDir := t.TempDir()

			err := exportSQLite.New(tempDir).Export(tt.records)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.want, readRows(t, filepath.Join(tempDir, "messages.db")))
		})
	}
}

func TestExporter_ExistingFile(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()

	err := os.WriteFile(filepath.Join(tempDir, "messages.db"), []byte("invalid sqlite db"), 0o600)
	require.NoError(t, err)

	records := []*types.Record{{ID: "1", Time: time.Unix(0, 0).UTC(), Contents: "fresh"}}
	require.NoError(t, exportSQLite.New(tempDir).Export(records))

	assert.Equal(t, []row{{id: "1", contents: "fresh"}}, readRows(t, filepath.Join(tempDir, "messages.db")))
}

func TestExporter_DatabaseSchema(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()

	require.NoError(t, exportSQLite.New(tempDir).Export(nil))

	conn, err := sqlite.OpenConn(filepath.Join(tempDir, "messages.db"), sqlite.OpenReadOnly)
	require.NoError(t, err)
	defer conn.Close()

	var columns []string
	err = sqlitex.ExecuteTransient(conn, "PRAGMA table_info(messages)", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			columns = append(columns, stmt.ColumnText(1))
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, types.Columns, columns)
}
