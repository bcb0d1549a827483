package sqlite

import (
	"testing"

	"github.com/mesh-intelligence/backlog/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssociationManager(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, b *Backend)
	}{
		{
			name: "replace sets the exact counterpart set",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				bl := addBacklog(t, b, "Checkout", "Payments", nil)
				d1 := addDependency(t, b, "Ledger", "PC")
				d2 := addDependency(t, b, "Fraud", "BC")
				d3 := addDependency(t, b, "Tax", "CC")
				m := b.Associations()

				require.NoError(t, m.Replace(ctx, types.RelBacklogDependencies, bl, []int64{d1, d2}))
				require.NoError(t, m.Replace(ctx, types.RelBacklogDependencies, bl, []int64{d3, d2, d2}))

				got, err := m.List(ctx, types.RelBacklogDependencies, bl)
				require.NoError(t, err)
				assert.Equal(t, []int64{d2, d3}, got)
			},
		},
		{
			name: "both directions share one join table",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				b1 := addBacklog(t, b, "A", "T", nil)
				b2 := addBacklog(t, b, "B", "T", nil)
				d := addDependency(t, b, "Shared", "Auth")
				m := b.Associations()

				require.NoError(t, m.Replace(ctx, types.RelDependencyBacklogs, d, []int64{b1, b2}))

				got, err := m.List(ctx, types.RelBacklogDependencies, b2)
				require.NoError(t, err)
				assert.Equal(t, []int64{d}, got)

				backlogs, err := b.Dependencies().Backlogs(ctx, d)
				require.NoError(t, err)
				require.Len(t, backlogs, 2)
				assert.Equal(t, 1, backlogs[0].DependencyCount)
			},
		},
		{
			name: "empty set clears links",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				bl := addBacklog(t, b, "A", "T", nil)
				d := addDependency(t, b, "X", "PC")
				m := b.Associations()
				require.NoError(t, m.Replace(ctx, types.RelBacklogDependencies, bl, []int64{d}))
				require.NoError(t, m.Replace(ctx, types.RelBacklogDependencies, bl, nil))

				got, err := m.List(ctx, types.RelBacklogDependencies, bl)
				require.NoError(t, err)
				assert.Empty(t, got)
				assert.NotNil(t, got)
			},
		},
		{
			name: "unknown counterpart rolls back and keeps the previous set",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				bl := addBacklog(t, b, "A", "T", nil)
				d := addDependency(t, b, "X", "PC")
				m := b.Associations()
				require.NoError(t, m.Replace(ctx, types.RelBacklogDependencies, bl, []int64{d}))

				err := m.Replace(ctx, types.RelBacklogDependencies, bl, []int64{d, 9999})
				assert.ErrorIs(t, err, types.ErrNotFound)

				got, err := m.List(ctx, types.RelBacklogDependencies, bl)
				require.NoError(t, err)
				assert.Equal(t, []int64{d}, got)
			},
		},
		{
			name: "unknown relation",
			check: func(t *testing.T, b *Backend) {
				err := b.Associations().Replace(t.Context(), types.Relation("nope"), 1, nil)
				assert.ErrorIs(t, err, types.ErrUnknownRelation)
				_, err = b.Associations().List(t.Context(), types.Relation("nope"), 1)
				assert.ErrorIs(t, err, types.ErrUnknownRelation)
			},
		},
		{
			name: "every relation round trips",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				bl := addBacklog(t, b, "A", "Theme A", nil)
				d := addDependency(t, b, "X", "PC")
				sub, err := b.SubBacklogs().Set(ctx, &types.SubBacklog{Title: "Group"}, nil)
				require.NoError(t, err)
				note, err := b.MeetingNotes().Set(ctx, &types.MeetingNote{NoteType: "todo", Note: "n"}, nil)
				require.NoError(t, err)
				theme, err := b.Themes().GetByName(ctx, "Theme A")
				require.NoError(t, err)
				eval, err := b.Evaluations().Ensure(ctx, "Eval")
				require.NoError(t, err)

				cases := map[types.Relation][2]int64{
					types.RelBacklogDependencies: {bl, d},
					types.RelDependencyBacklogs:  {d, bl},
					types.RelBacklogSubBacklogs:  {bl, sub},
					types.RelSubBacklogBacklogs:  {sub, bl},
					types.RelNoteBacklogs:        {note, bl},
					types.RelNoteDependencies:    {note, d},
					types.RelNoteThemes:          {note, theme.ID},
					types.RelNoteEvaluations:     {note, eval},
				}
				require.Len(t, cases, len(types.Relations))
				for rel, pair := range cases {
					require.NoError(t, b.Associations().Replace(ctx, rel, pair[0], []int64{pair[1]}), rel)
					got, err := b.Associations().List(ctx, rel, pair[0])
					require.NoError(t, err)
					assert.Equal(t, []int64{pair[1]}, got, rel)
				}
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
