package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// execer is satisfied by *sql.DB, *sql.Conn, and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// columnInfo is one row of PRAGMA table_info.
type columnInfo struct {
	name    string
	typ     string
	notNull bool
	pk      bool
}

func tableExists(ctx context.Context, q execer, table string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}
	return n > 0, nil
}

// tableColumns returns the columns of table in declaration order. A missing
// table yields no columns.
func tableColumns(ctx context.Context, q execer, table string) ([]columnInfo, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []columnInfo
	for rows.Next() {
		var (
			cid     int
			info    columnInfo
			dflt    sql.NullString
			notNull int
			pk      int
		)
		if err := rows.Scan(&cid, &info.name, &info.typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scanning columns of %s: %w", table, err)
		}
		info.notNull = notNull != 0
		info.pk = pk != 0
		cols = append(cols, info)
	}
	return cols, rows.Err()
}

// columnSet indexes columns by name.
func columnSet(cols []columnInfo) map[string]columnInfo {
	set := make(map[string]columnInfo, len(cols))
	for _, c := range cols {
		set[c.name] = c
	}
	return set
}

// hasColumn reports whether table has the named column.
func hasColumn(ctx context.Context, q execer, table, name string) (bool, error) {
	cols, err := tableColumns(ctx, q, table)
	if err != nil {
		return false, err
	}
	_, ok := columnSet(cols)[name]
	return ok, nil
}

// shapeDiffers reports whether the live table differs from the shape: a
// column missing or extra, a NOT NULL flag that disagrees, or a declared type
// that disagrees. Primary key columns are compared by presence only.
func shapeDiffers(cols []columnInfo, s shape) bool {
	if len(cols) != len(s.columns) {
		return true
	}
	live := columnSet(cols)
	for _, want := range s.columns {
		got, ok := live[want.name]
		if !ok {
			return true
		}
		if want.pk {
			continue
		}
		if got.notNull != want.notNull || !strings.EqualFold(strings.TrimSpace(got.typ), want.typ) {
			return true
		}
	}
	return false
}

// addMissingColumns adds every shape column the live table lacks. Required
// text columns default to the empty string; nullable columns to NULL.
func addMissingColumns(ctx context.Context, tx execer, s shape) ([]string, error) {
	cols, err := tableColumns(ctx, tx, s.table)
	if err != nil {
		return nil, err
	}
	live := columnSet(cols)

	var added []string
	for _, c := range s.columns {
		if _, ok := live[c.name]; ok || c.pk {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", s.table, c.addDefinition())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("adding %s.%s: %w", s.table, c.name, err)
		}
		added = append(added, c.name)
	}
	return added, nil
}
