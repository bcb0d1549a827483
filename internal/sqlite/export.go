package sqlite

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/backlog/pkg/types"
)

// ExportResult reports how many rows each table contributed to an export.
type ExportResult struct {
	Dir  string         `json:"dir"`
	Rows map[string]int `json:"rows"`
}

// Export writes every table to dir as <table>.jsonl, one JSON object per row
// keyed by column name. Images are written base64 encoded. The tables are
// read under one lock so the files agree with each other; each file is
// replaced atomically.
func (b *Backend) Export(ctx context.Context, dir string) (*ExportResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}

	tables := make(map[string][]json.RawMessage, len(types.StandardTableNames))
	err := b.read(func(db *sql.DB) error {
		for _, table := range types.StandardTableNames {
			records, err := dumpTable(ctx, db, table)
			if err != nil {
				return err
			}
			tables[table] = records
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &ExportResult{Dir: dir, Rows: make(map[string]int, len(tables))}
	for _, table := range types.StandardTableNames {
		if err := writeJSONL(filepath.Join(dir, table+".jsonl"), tables[table]); err != nil {
			return nil, fmt.Errorf("exporting %s: %w", table, err)
		}
		result.Rows[table] = len(tables[table])
	}
	b.logger.Info("store exported", "dir", dir, "tables", len(tables))
	return result, nil
}

func dumpTable(ctx context.Context, q execer, table string) ([]json.RawMessage, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY 1, 2", table))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading %s columns: %w", table, err)
	}

	records := []json.RawMessage{}
	for rows.Next() {
		values := make([]any, len(cols))
		dests := make([]any, len(cols))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		obj := make(map[string]any, len(cols))
		for i, c := range cols {
			obj[c] = values[i]
		}
		rec, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("encoding %s row: %w", table, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", table, err)
	}
	return records, nil
}

// writeJSONL replaces path with records, one per line, through a synced
// temp file and a rename.
func writeJSONL(path string, records []json.RawMessage) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(format string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf(format, err)
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fail("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
