package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/backlog/internal/logging"
)

// migration is one versioned schema step. Steps that repair legacy layouts
// inspect the live schema first, so they are safe on stores created before
// versions were recorded.
type migration struct {
	version int
	name    string
	apply   func(ctx context.Context, tx *sql.Tx) error
}

// Migrator brings a database to the current schema.
type Migrator struct {
	db         *sql.DB
	logger     *slog.Logger
	migrations []migration
}

// NewMigrator returns a migrator over db with the standard step list. A nil
// logger discards output.
func NewMigrator(db *sql.DB, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = logging.NewDiscard()
	}
	return &Migrator{db: db, logger: logger, migrations: migrations}
}

// Migrate applies every pending step in version order, each in its own
// transaction, and returns how many were applied. Foreign key enforcement is
// off on the migrating connection for the duration and is restored before
// Migrate returns.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return 0, fmt.Errorf("disabling foreign keys: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), "PRAGMA foreign_keys = ON"); err != nil {
			m.logger.Error("restoring foreign keys", "error", err)
		}
	}()

	if _, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT DEFAULT (datetime('now'))
		)
	`); err != nil {
		return 0, fmt.Errorf("create migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, step := range m.migrations {
		if applied[step.version] {
			continue
		}
		if err := m.applyStep(ctx, conn, step); err != nil {
			return count, err
		}
		m.logger.Info("migration applied", "version", step.version, "name", step.name)
		count++
	}

	if count > 0 {
		m.checkForeignKeys(ctx, conn)
	}
	return count, nil
}

func (m *Migrator) applyStep(ctx context.Context, conn *sql.Conn, step migration) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", step.version, err)
	}
	defer tx.Rollback()

	if err := step.apply(ctx, tx); err != nil {
		return fmt.Errorf("apply migration %d (%s): %w", step.version, step.name, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO "+migrationsTable+" (version, name) VALUES (?, ?)", step.version, step.name,
	); err != nil {
		return fmt.Errorf("record migration %d: %w", step.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", step.version, err)
	}
	return nil
}

// checkForeignKeys logs rows left dangling by legacy data. They do not fail
// the migration.
func (m *Migrator) checkForeignKeys(ctx context.Context, conn *sql.Conn) {
	rows, err := conn.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		m.logger.Warn("foreign key check failed", "error", err)
		return
	}
	defer rows.Close()

	violations := make(map[string]int)
	for rows.Next() {
		var (
			table  string
			rowid  sql.NullInt64
			parent string
			fkid   int
		)
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			m.logger.Warn("foreign key check failed", "error", err)
			return
		}
		violations[table+" -> "+parent]++
	}
	for pair, n := range violations {
		m.logger.Warn("dangling references after migration", "reference", pair, "rows", n)
	}
}

func appliedVersions(ctx context.Context, conn *sql.Conn) (map[int]bool, error) {
	rows, err := conn.QueryContext(ctx, "SELECT version FROM "+migrationsTable)
	if err != nil {
		return nil, fmt.Errorf("query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migrations: %w", err)
	}
	return applied, nil
}
