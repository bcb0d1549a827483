// Package sqlite is the public entry point to the SQLite backlog store.
// It opens an attached, migrated store while the implementation stays
// internal.
//
// Example:
//
//	store, err := sqlite.Open(ctx, types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".backlog-db",
//	}, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Detach()
package sqlite

import (
	"context"
	"log/slog"

	"github.com/mesh-intelligence/backlog/internal/sqlite"
	"github.com/mesh-intelligence/backlog/pkg/types"
)

// Store is an attached backlog store.
type Store = sqlite.Backend

// NewBackend returns a detached store. Call Attach with a Config before use.
func NewBackend(logger *slog.Logger) *Store {
	return sqlite.NewBackend(sqlite.WithLogger(logger))
}

// Open creates the data directory and database if needed, migrates the
// schema, and returns the attached store. A nil logger discards output.
func Open(ctx context.Context, cfg types.Config, logger *slog.Logger) (*Store, error) {
	store := NewBackend(logger)
	if err := store.Attach(ctx, cfg); err != nil {
		return nil, err
	}
	return store, nil
}
