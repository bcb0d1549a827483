package sqlite

import (
	"testing"

	"github.com/mesh-intelligence/backlog/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependencyTable(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, b *Backend)
	}{
		{
			name: "team is canonicalized against the enumeration",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				id := addDependency(t, b, "Ledger", " integration ")
				got, err := b.Dependencies().Get(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, "Integration", got.Team)

				_, err = b.Dependencies().Set(ctx, &types.Dependency{Task: "x", Team: "Marketing"}, nil)
				assert.ErrorIs(t, err, types.ErrInvalidTeam)
				_, err = b.Dependencies().Set(ctx, &types.Dependency{Team: "PC"}, nil)
				assert.ErrorIs(t, err, types.ErrInvalidTask)
			},
		},
		{
			name: "update and link backlogs",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				bl := addBacklog(t, b, "Checkout", "Payments", nil)
				d := &types.Dependency{Task: "Ledger", Team: "PC"}
				_, err := b.Dependencies().Set(ctx, d, []int64{bl})
				require.NoError(t, err)

				d.SubTask = "posting"
				_, err = b.Dependencies().Set(ctx, d, nil)
				require.NoError(t, err)

				deps, err := b.Dependencies().ForBacklog(ctx, bl)
				require.NoError(t, err)
				require.Len(t, deps, 1)
				assert.Equal(t, "posting", deps[0].SubTask)

				_, err = b.Dependencies().Set(ctx, &types.Dependency{ID: 404, Task: "x", Team: "PC"}, nil)
				assert.ErrorIs(t, err, types.ErrNotFound)
			},
		},
		{
			name: "fetch filters",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				addDependency(t, b, "Ledger export", "PC")
				addDependency(t, b, "Fraud check", "BC")
				addDependency(t, b, "Ledger import", "BC")

				byTeam, err := b.Dependencies().Fetch(ctx, types.Filter{"team": "BC"})
				require.NoError(t, err)
				assert.Len(t, byTeam, 2)

				byTask, err := b.Dependencies().Fetch(ctx, types.Filter{"task": "ledger"})
				require.NoError(t, err)
				assert.Len(t, byTask, 2)

				both, err := b.Dependencies().Fetch(ctx, types.Filter{"task": "ledger", "team": "BC"})
				require.NoError(t, err)
				require.Len(t, both, 1)
				assert.Equal(t, "Ledger import", both[0].Task)

				search, err := b.Dependencies().Fetch(ctx, types.Filter{"search": "pc"})
				require.NoError(t, err)
				assert.Len(t, search, 1)
			},
		},
		{
			name: "delete drops backlog and note links",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				bl := addBacklog(t, b, "Checkout", "Payments", nil)
				d := addDependency(t, b, "Ledger", "PC")
				require.NoError(t, b.Backlogs().AssignDependencies(ctx, []int64{bl}, []int64{d}))
				note, err := b.MeetingNotes().Set(ctx, &types.MeetingNote{NoteType: "todo", Note: "ask"},
					&types.NoteLinks{DependencyIDs: []int64{d}})
				require.NoError(t, err)

				require.NoError(t, b.Dependencies().Delete(ctx, d))

				got, err := b.Backlogs().Get(ctx, bl)
				require.NoError(t, err)
				assert.Zero(t, got.DependencyCount)
				links, err := b.MeetingNotes().Links(ctx, note)
				require.NoError(t, err)
				assert.Empty(t, links.DependencyIDs)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := setupBackend(t)
			tt.check(t, b)
		})
	}
}
