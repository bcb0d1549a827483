package sqlite

import (
	"testing"

	"github.com/mesh-intelligence/backlog/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThemeTable(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, b *Backend)
	}{
		{
			name: "fetch lists themes by name with backlog counts",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				addBacklog(t, b, "a", "Payments", nil)
				addBacklog(t, b, "b", "Payments", nil)
				addBacklog(t, b, "c", "Identity", nil)
				_, err := b.Themes().Create(ctx, "Archive")
				require.NoError(t, err)

				themes, err := b.Themes().Fetch(ctx)
				require.NoError(t, err)
				require.Len(t, themes, 3)
				assert.Equal(t, "Archive", themes[0].Name)
				assert.Equal(t, 0, themes[0].BacklogCount)
				assert.Equal(t, "Identity", themes[1].Name)
				assert.Equal(t, "Payments", themes[2].Name)
				assert.Equal(t, 2, themes[2].BacklogCount)
			},
		},
		{
			name: "create rejects duplicates and blank names",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				_, err := b.Themes().Create(ctx, "Payments")
				require.NoError(t, err)
				_, err = b.Themes().Create(ctx, " Payments ")
				assert.ErrorIs(t, err, types.ErrDuplicateName)
				_, err = b.Themes().Create(ctx, "  ")
				assert.ErrorIs(t, err, types.ErrInvalidName)
			},
		},
		{
			name: "ensure is insert if absent",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				first, err := b.Themes().Ensure(ctx, "Payments")
				require.NoError(t, err)
				again, err := b.Themes().Ensure(ctx, "Payments")
				require.NoError(t, err)
				assert.Equal(t, first, again)
			},
		},
		{
			name: "rename is seen by every backlog",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				a := addBacklog(t, b, "a", "Payments", nil)
				c := addBacklog(t, b, "c", "Payments", nil)

				require.NoError(t, b.Themes().Rename(ctx, "Payments", "Billing"))

				for _, id := range []int64{a, c} {
					got, err := b.Backlogs().Get(ctx, id)
					require.NoError(t, err)
					assert.Equal(t, "Billing", got.Theme)
				}
				_, err := b.Themes().GetByName(ctx, "Payments")
				assert.ErrorIs(t, err, types.ErrNotFound)
				byTheme, err := b.Backlogs().Fetch(ctx, types.Filter{"theme": "Billing"})
				require.NoError(t, err)
				assert.Len(t, byTheme, 2)
			},
		},
		{
			name: "rename onto a taken name changes nothing",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				a := addBacklog(t, b, "a", "Payments", nil)
				addBacklog(t, b, "b", "Identity", nil)

				err := b.Themes().Rename(ctx, "Payments", "Identity")
				assert.ErrorIs(t, err, types.ErrDuplicateName)

				got, err := b.Backlogs().Get(ctx, a)
				require.NoError(t, err)
				assert.Equal(t, "Payments", got.Theme)

				assert.ErrorIs(t, b.Themes().Rename(ctx, "Nope", "Other"), types.ErrNotFound)
			},
		},
		{
			name: "delete blanks backlog themes and drops note links",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				a := addBacklog(t, b, "a", "Payments", nil)
				theme, err := b.Themes().GetByName(ctx, "Payments")
				require.NoError(t, err)
				assert.Equal(t, 1, theme.BacklogCount)
				note, err := b.MeetingNotes().Set(ctx,
					&types.MeetingNote{NoteType: "decision", Note: "drop it"},
					&types.NoteLinks{ThemeIDs: []int64{theme.ID}})
				require.NoError(t, err)

				require.NoError(t, b.Themes().Delete(ctx, theme.ID))

				got, err := b.Backlogs().Get(ctx, a)
				require.NoError(t, err)
				assert.Empty(t, got.Theme)
				assert.Zero(t, got.ThemeID)

				links, err := b.MeetingNotes().Links(ctx, note)
				require.NoError(t, err)
				assert.Empty(t, links.ThemeIDs)

				assert.ErrorIs(t, b.Themes().Delete(ctx, theme.ID), types.ErrNotFound)
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

func TestEvaluationTable(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, b *Backend)
	}{
		{
			name: "create and update with note",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				e := &types.Evaluation{Name: "Must", Note: "committed"}
				id, err := b.Evaluations().Create(ctx, e)
				require.NoError(t, err)
				assert.Equal(t, id, e.ID)

				e.Name = "Must have"
				e.Note = "committed for Q2"
				require.NoError(t, b.Evaluations().Update(ctx, e))

				got, err := b.Evaluations().Get(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, "Must have", got.Name)
				assert.Equal(t, "committed for Q2", got.Note)
			},
		},
		{
			name: "update onto a taken name changes nothing",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				_, err := b.Evaluations().Create(ctx, &types.Evaluation{Name: "Must"})
				require.NoError(t, err)
				second := &types.Evaluation{Name: "Could", Note: "maybe"}
				_, err = b.Evaluations().Create(ctx, second)
				require.NoError(t, err)

				err = b.Evaluations().Update(ctx, &types.Evaluation{ID: second.ID, Name: "Must", Note: "changed"})
				assert.ErrorIs(t, err, types.ErrDuplicateName)

				got, err := b.Evaluations().Get(ctx, second.ID)
				require.NoError(t, err)
				assert.Equal(t, "Could", got.Name)
				assert.Equal(t, "maybe", got.Note)

				assert.ErrorIs(t, b.Evaluations().Update(ctx, &types.Evaluation{ID: 999, Name: "x"}), types.ErrNotFound)
			},
		},
		{
			name: "rename and delete reach backlogs",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				id, err := b.Backlogs().Set(ctx, &types.Backlog{Task: "a", Theme: "T", Evaluation: "Must"}, nil)
				require.NoError(t, err)

				require.NoError(t, b.Evaluations().Rename(ctx, "Must", "Should"))
				got, err := b.Backlogs().Get(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, "Should", got.Evaluation)

				require.NoError(t, b.Evaluations().Delete(ctx, got.EvaluationID))
				got, err = b.Backlogs().Get(ctx, id)
				require.NoError(t, err)
				assert.Empty(t, got.Evaluation)
				assert.Equal(t, "T", got.Theme)
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
