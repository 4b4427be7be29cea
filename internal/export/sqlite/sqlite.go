package sqlite

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/robalyx/lumi/internal/export/types"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const batchSize = 1000

// Exporter handles exporting transcripts to SQLite databases.
type Exporter struct {
	outDir string
}

// New creates a new SQLite exporter instance.
func New(outDir string) *Exporter {
	return &Exporter{outDir: outDir}
}

// Export writes records to messages.db, replacing any existing file.
func (e *Exporter) Export(records []*types.Record) error {
	path := filepath.Join(e.outDir, "messages.db")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing file: %w", err)
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	defer conn.Close()

	err = sqlitex.ExecuteTransient(conn, `
		CREATE TABLE messages (
			id TEXT PRIMARY KEY,
			time TEXT NOT NULL,
			sender TEXT NOT NULL,
			sender_name TEXT NOT NULL,
			sender_display_name TEXT NOT NULL,
			is_self INTEGER NOT NULL,
			mentions_self INTEGER NOT NULL,
			reply TEXT,
			contents TEXT NOT NULL
		)
	`, nil)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))
		if err := insertBatch(conn, records[i:end]); err != nil {
			return err
		}
	}

	return nil
}

// insertBatch inserts records inside a single transaction.
func insertBatch(conn *sqlite.Conn, records []*types.Record) (err error) {
	defer sqlitex.Save(conn)(&err)

	for _, record := range records {
		var reply any
		if record.Reply != "" {
			reply = record.Reply
		}

		err = sqlitex.Execute(conn, `
			INSERT INTO messages (
				id, time, sender, sender_name, sender_display_name,
				is_self, mentions_self, reply, contents
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, &sqlitex.ExecOptions{
			Args: []any{
				record.ID,
				record.Fields()[1],
				record.Sender,
				record.SenderName,
				record.SenderDisplayName,
				boolInt(record.IsSelf),
				boolInt(record.MentionsSelf),
				reply,
				record.Contents,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to insert record %s: %w", record.ID, err)
		}
	}

	return nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
