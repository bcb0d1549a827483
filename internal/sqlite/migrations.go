package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations is the ordered schema history. Append new steps; never reorder
// or renumber applied ones.
var migrations = []migration{
	{1, "rename legacy sub_task table", renameLegacySubTask},
	{2, "create base tables", createBaseTables},
	{3, "backlog legacy columns", migrateBacklogColumns},
	{4, "rebuild backlog", rebuildBacklog},
	{5, "dependency legacy columns", migrateDependency},
	{6, "evaluation note", migrateEvaluation},
	{7, "sub-backlog links", migrateSubBacklog},
	{8, "meeting note columns", migrateMeetingNote},
	{9, "backfill themes and evaluations", backfillLookups},
	{10, "backlog lookup foreign keys", backlogLookupKeys},
	{11, "drop sub-backlog parent column", dropSubBacklogParent},
	{12, "secondary indexes", createIndexes},
}

// renameLegacySubTask renames sub_task to sub_backlog when only the old name
// is in use.
func renameLegacySubTask(ctx context.Context, tx *sql.Tx) error {
	legacy, err := tableExists(ctx, tx, "sub_task")
	if err != nil || !legacy {
		return err
	}
	current, err := tableExists(ctx, tx, "sub_backlog")
	if err != nil || current {
		return err
	}
	_, err = tx.ExecContext(ctx, "ALTER TABLE sub_task RENAME TO sub_backlog")
	return err
}

func createBaseTables(ctx context.Context, tx *sql.Tx) error {
	for _, s := range textEraShapes {
		if _, err := tx.ExecContext(ctx, s.createSQL(s.table, true)); err != nil {
			return fmt.Errorf("creating %s: %w", s.table, err)
		}
	}
	return nil
}

// migrateBacklogColumns adds the columns older stores lack and carries the
// legacy name and sub_task values into task and task_details.
func migrateBacklogColumns(ctx context.Context, tx *sql.Tx) error {
	if _, err := addMissingColumns(ctx, tx, textBacklogShape); err != nil {
		return err
	}

	cols, err := tableColumns(ctx, tx, "backlog")
	if err != nil {
		return err
	}
	live := columnSet(cols)

	if _, ok := live["name"]; ok {
		if _, err := tx.ExecContext(ctx,
			"UPDATE backlog SET task = name WHERE task = '' AND name IS NOT NULL",
		); err != nil {
			return fmt.Errorf("copying backlog names: %w", err)
		}
	}
	if _, ok := live["sub_task"]; ok {
		if _, err := tx.ExecContext(ctx, `
			UPDATE backlog SET task_details = sub_task
			WHERE (task_details IS NULL OR TRIM(task_details) = '')
			  AND sub_task IS NOT NULL AND TRIM(sub_task) != ''`,
		); err != nil {
			return fmt.Errorf("copying backlog sub tasks: %w", err)
		}
	}
	return nil
}

// rebuildBacklog rewrites backlog when its shape is not the text-era shape:
// leftover legacy columns, NOT NULL on optional fields, or a non-integer
// estimation.
func rebuildBacklog(ctx context.Context, tx *sql.Tx) error {
	return rebuildIfDiffers(ctx, tx, textBacklogShape)
}

func migrateDependency(ctx context.Context, tx *sql.Tx) error {
	if _, err := addMissingColumns(ctx, tx, dependencyShape); err != nil {
		return err
	}
	hasName, err := hasColumn(ctx, tx, "dependency", "name")
	if err != nil {
		return err
	}
	if hasName {
		if _, err := tx.ExecContext(ctx,
			"UPDATE dependency SET task = name WHERE task = '' AND name IS NOT NULL",
		); err != nil {
			return fmt.Errorf("copying dependency names: %w", err)
		}
	}
	return rebuildIfDiffers(ctx, tx, dependencyShape)
}

func migrateEvaluation(ctx context.Context, tx *sql.Tx) error {
	_, err := addMissingColumns(ctx, tx, evaluationShape)
	return err
}

// migrateSubBacklog relaxes a required parent column and copies each
// parent into the sub_backlog_backlog association.
func migrateSubBacklog(ctx context.Context, tx *sql.Tx) error {
	if _, err := addMissingColumns(ctx, tx, textSubBacklogShape); err != nil {
		return err
	}
	if err := rebuildIfDiffers(ctx, tx, textSubBacklogShape); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO sub_backlog_backlog (sub_backlog_id, backlog_id)
		SELECT id, backlog_id FROM sub_backlog
		WHERE backlog_id IS NOT NULL
		  AND backlog_id IN (SELECT id FROM backlog)`)
	if err != nil {
		return fmt.Errorf("backfilling sub_backlog_backlog: %w", err)
	}
	return nil
}

func migrateMeetingNote(ctx context.Context, tx *sql.Tx) error {
	_, err := addMissingColumns(ctx, tx, meetingNoteShape)
	return err
}

// backfillLookups registers every distinct theme and evaluation name in use.
func backfillLookups(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`INSERT OR IGNORE INTO theme (name)
		 SELECT DISTINCT theme FROM backlog WHERE theme IS NOT NULL AND TRIM(theme) != ''`,
		`INSERT OR IGNORE INTO evaluation (name)
		 SELECT DISTINCT evaluation FROM backlog WHERE evaluation IS NOT NULL AND TRIM(evaluation) != ''`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("backfilling lookups: %w", err)
		}
	}
	return nil
}

// backlogLookupKeys replaces the theme and evaluation names on backlog with
// references to the lookup rows.
func backlogLookupKeys(ctx context.Context, tx *sql.Tx) error {
	converted, err := hasColumn(ctx, tx, "backlog", "theme_id")
	if err != nil || converted {
		return err
	}
	return rebuildTable(ctx, tx, backlogShape, map[string]string{
		"theme_id":      "(SELECT t.id FROM theme t WHERE t.name = src.theme)",
		"evaluation_id": "(SELECT e.id FROM evaluation e WHERE e.name = src.evaluation)",
	})
}

func dropSubBacklogParent(ctx context.Context, tx *sql.Tx) error {
	return rebuildIfDiffers(ctx, tx, subBacklogShape)
}

func createIndexes(ctx context.Context, tx *sql.Tx) error {
	for _, stmt := range indexes {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

func rebuildIfDiffers(ctx context.Context, tx *sql.Tx, s shape) error {
	cols, err := tableColumns(ctx, tx, s.table)
	if err != nil {
		return err
	}
	if !shapeDiffers(cols, s) {
		return nil
	}
	return rebuildTable(ctx, tx, s, nil)
}
