// Package sqlite implements the backlog store on SQLite: schema migration,
// entity tables, many-to-many associations, and reporting views.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/backlog/internal/logging"
	"github.com/mesh-intelligence/backlog/pkg/types"
)

// connPragmas are applied to every pooled connection.
var connPragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// Backend is the SQLite backlog store. Writes hold the write lock for the
// whole transaction, so a logical edit is never observed half done by a
// reader in the same process.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	logger   *slog.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used by the backend and its migrator.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBackend creates a detached backend. Call Attach to open the store.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{logger: logging.NewDiscard()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach opens the database under config.DataDir, creating the directory if
// needed, and migrates the schema. A migration failure closes the database
// and is returned wrapped in types.ErrMigration.
func (b *Backend) Attach(ctx context.Context, config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, config.DatabaseFile())
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}

	applied, err := NewMigrator(db, b.logger).Migrate(ctx)
	if err != nil {
		db.Close()
		return fmt.Errorf("%w: %w", types.ErrMigration, err)
	}
	b.logger.Debug("store attached", "path", dbPath, "migrations_applied", applied)

	b.db = db
	b.config = config
	b.attached = true
	return nil
}

// Detach closes the database. After Detach every operation returns
// types.ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	db := b.db
	b.db = nil
	if err := db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Config returns the configuration the backend was attached with.
func (b *Backend) Config() types.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

// SchemaVersion returns the highest applied migration version.
func (b *Backend) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := b.read(func(db *sql.DB) error {
		return db.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(version), 0) FROM "+migrationsTable,
		).Scan(&version)
	})
	return version, err
}

// Table accessors. They are cheap values bound to the backend.

// Backlogs returns the backlog table.
func (b *Backend) Backlogs() *BacklogTable { return &BacklogTable{backend: b} }

// Dependencies returns the dependency table.
func (b *Backend) Dependencies() *DependencyTable { return &DependencyTable{backend: b} }

// Themes returns the theme lookup table.
func (b *Backend) Themes() *ThemeTable { return &ThemeTable{backend: b} }

// Evaluations returns the evaluation lookup table.
func (b *Backend) Evaluations() *EvaluationTable { return &EvaluationTable{backend: b} }

// SubBacklogs returns the sub-backlog table.
func (b *Backend) SubBacklogs() *SubBacklogTable { return &SubBacklogTable{backend: b} }

// Meetings returns the meeting table.
func (b *Backend) Meetings() *MeetingTable { return &MeetingTable{backend: b} }

// MeetingNotes returns the meeting note table.
func (b *Backend) MeetingNotes() *MeetingNoteTable { return &MeetingNoteTable{backend: b} }

// Associations returns the association manager.
func (b *Backend) Associations() *AssociationManager { return &AssociationManager{backend: b} }

// Reports returns the reporting views.
func (b *Backend) Reports() *Reports { return &Reports{backend: b} }

// read runs fn under the read lock.
func (b *Backend) read(fn func(db *sql.DB) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrStoreDetached
	}
	return fn(b.db)
}

// write runs fn in a transaction under the write lock. The transaction
// commits only when fn returns nil.
func (b *Backend) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range connPragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}
