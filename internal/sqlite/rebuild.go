package sqlite

import (
	"context"
	"fmt"
	"strings"
)

// rebuildTable recreates s.table in shape s, copying every row. Columns the
// old table lacks are filled from computed, keyed by column name, or from the
// column default. Kept values are coerced to the new declaration: integers
// through CAST with blanks becoming NULL, required text through COALESCE.
// Foreign key enforcement must be off on the connection running tx.
func rebuildTable(ctx context.Context, tx execer, s shape, computed map[string]string) error {
	cols, err := tableColumns(ctx, tx, s.table)
	if err != nil {
		return err
	}
	live := columnSet(cols)

	names := make([]string, 0, len(s.columns))
	exprs := make([]string, 0, len(s.columns))
	for _, c := range s.columns {
		names = append(names, c.name)
		if expr, ok := computed[c.name]; ok {
			exprs = append(exprs, expr)
			continue
		}
		if _, ok := live[c.name]; !ok {
			exprs = append(exprs, c.fill())
			continue
		}
		exprs = append(exprs, coerce(c, "src."+c.name))
	}

	tmp := s.table + "_new"
	stmts := []string{
		"DROP TABLE IF EXISTS " + tmp,
		s.createSQL(tmp, false),
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s AS src",
			tmp, strings.Join(names, ", "), strings.Join(exprs, ", "), s.table),
		"DROP TABLE " + s.table,
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tmp, s.table),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("rebuilding %s: %w", s.table, err)
		}
	}
	return nil
}

// coerce converts ref to the declaration of c.
func coerce(c column, ref string) string {
	switch {
	case c.pk:
		return ref
	case c.typ == "INTEGER":
		expr := fmt.Sprintf("CASE WHEN TRIM(CAST(%[1]s AS TEXT)) = '' THEN NULL ELSE CAST(%[1]s AS INTEGER) END", ref)
		if c.notNull {
			return fmt.Sprintf("COALESCE(%s, %s)", expr, c.fill())
		}
		return expr
	case c.notNull:
		return fmt.Sprintf("COALESCE(%s, %s)", ref, c.fill())
	default:
		return ref
	}
}
