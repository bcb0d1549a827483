package sqlite

import (
	"testing"

	"github.com/mesh-intelligence/backlog/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBacklogTable_CRUD(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, b *Backend)
	}{
		{
			name: "set creates backlog and resolves lookups",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				bl := &types.Backlog{
					Task:        "  Checkout  ",
					TaskDetails: "one page",
					Theme:       "Payments",
					Evaluation:  "High value",
					Estimation:  types.Int64(8),
					Team:        "PC",
					Sprint:      "Sprint 3",
				}
				id, err := b.Backlogs().Set(ctx, bl, nil)
				require.NoError(t, err)
				assert.Positive(t, id)
				assert.NotZero(t, bl.ThemeID)
				assert.NotZero(t, bl.EvaluationID)

				got, err := b.Backlogs().Get(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, "Checkout", got.Task)
				assert.Equal(t, "Payments", got.Theme)
				assert.Equal(t, "High value", got.Evaluation)
				assert.Equal(t, int64(8), *got.Estimation)
				assert.False(t, got.HasImage)
			},
		},
		{
			name: "set rejects missing task, theme, and negative estimation",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				_, err := b.Backlogs().Set(ctx, &types.Backlog{Theme: "T"}, nil)
				assert.ErrorIs(t, err, types.ErrInvalidTask)
				_, err = b.Backlogs().Set(ctx, &types.Backlog{Task: "x"}, nil)
				assert.ErrorIs(t, err, types.ErrInvalidTheme)
				_, err = b.Backlogs().Set(ctx, &types.Backlog{Task: "x", Theme: "T", Estimation: types.Int64(-1)}, nil)
				assert.ErrorIs(t, err, types.ErrInvalidEstimation)

				all, err := b.Backlogs().Fetch(ctx, nil)
				require.NoError(t, err)
				assert.Empty(t, all)
			},
		},
		{
			name: "update keeps image when nil and clears it when empty",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				bl := &types.Backlog{Task: "Logo", Theme: "Brand", Image: []byte{0x89, 'P', 'N', 'G'}}
				id, err := b.Backlogs().Set(ctx, bl, nil)
				require.NoError(t, err)

				update := &types.Backlog{ID: id, Task: "Logo v2", Theme: "Brand"}
				_, err = b.Backlogs().Set(ctx, update, nil)
				require.NoError(t, err)
				img, err := b.Backlogs().Image(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, img)

				update.Image = []byte{}
				_, err = b.Backlogs().Set(ctx, update, nil)
				require.NoError(t, err)
				got, err := b.Backlogs().Get(ctx, id)
				require.NoError(t, err)
				assert.False(t, got.HasImage)
				assert.Nil(t, got.Image)
			},
		},
		{
			name: "update of missing backlog is not found",
			check: func(t *testing.T, b *Backend) {
				_, err := b.Backlogs().Set(t.Context(), &types.Backlog{ID: 42, Task: "x", Theme: "T"}, nil)
				assert.ErrorIs(t, err, types.ErrNotFound)
			},
		},
		{
			name: "set replaces links in the same write",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				d := addDependency(t, b, "Ledger", "pc")
				sub, err := b.SubBacklogs().Set(ctx, &types.SubBacklog{Title: "Q1"}, nil)
				require.NoError(t, err)

				id, err := b.Backlogs().Set(ctx, &types.Backlog{Task: "x", Theme: "T"},
					&types.BacklogLinks{DependencyIDs: []int64{d}, SubBacklogIDs: []int64{sub}})
				require.NoError(t, err)

				got, err := b.Backlogs().Get(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, 1, got.DependencyCount)
				subs, err := b.Associations().List(ctx, types.RelBacklogSubBacklogs, id)
				require.NoError(t, err)
				assert.Equal(t, []int64{sub}, subs)

				_, err = b.Backlogs().Set(ctx, &types.Backlog{Task: "y", Theme: "T"},
					&types.BacklogLinks{DependencyIDs: []int64{777}})
				assert.ErrorIs(t, err, types.ErrNotFound)
				all, err := b.Backlogs().Fetch(ctx, types.Filter{"task": "y"})
				require.NoError(t, err)
				assert.Empty(t, all, "failed link write must not leave the backlog behind")
			},
		},
		{
			name: "delete removes rows and their links",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				id := addBacklog(t, b, "x", "T", nil)
				d := addDependency(t, b, "dep", "PC")
				require.NoError(t, b.Backlogs().AssignDependencies(ctx, []int64{id}, []int64{d}))

				require.NoError(t, b.Backlogs().Delete(ctx, id))
				_, err := b.Backlogs().Get(ctx, id)
				assert.ErrorIs(t, err, types.ErrNotFound)

				left, err := b.Dependencies().Backlogs(ctx, d)
				require.NoError(t, err)
				assert.Empty(t, left)

				assert.ErrorIs(t, b.Backlogs().Delete(ctx, id), types.ErrNotFound)
				assert.ErrorIs(t, b.Backlogs().Delete(ctx), types.ErrInvalidID)
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

func TestBacklogTable_Fetch(t *testing.T) {
	b := setupBackend(t)
	ctx := t.Context()

	for _, bl := range []*types.Backlog{
		{Task: "Checkout redesign", LOB: "Retail", Theme: "Payments", Team: "PC", Sprint: "Sprint 1"},
		{Task: "Refund API", TaskDetails: "partial refunds", Theme: "Payments", Evaluation: "Must", Team: "BC", Sprint: "Sprint 2"},
		{Task: "Login", Theme: "Identity", Evaluation: "Must", Team: "PC", Sprint: "Sprint 2"},
	} {
		_, err := b.Backlogs().Set(ctx, bl, nil)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter types.Filter
		want   []string
	}{
		{"no filter", nil, []string{"Checkout redesign", "Refund API", "Login"}},
		{"task substring ignores case", types.Filter{"task": "CHECK"}, []string{"Checkout redesign"}},
		{"details substring", types.Filter{"task_details": "refund"}, []string{"Refund API"}},
		{"lob substring", types.Filter{"lob": "ret"}, []string{"Checkout redesign"}},
		{"exact theme", types.Filter{"theme": "Payments"}, []string{"Checkout redesign", "Refund API"}},
		{"exact evaluation", types.Filter{"evaluation": "Must"}, []string{"Refund API", "Login"}},
		{"team and sprint", types.Filter{"team": "PC", "sprint": "Sprint 2"}, []string{"Login"}},
		{"search spans theme", types.Filter{"search": "identity"}, []string{"Login"}},
		{"search spans details", types.Filter{"search": "partial"}, []string{"Refund API"}},
		{"empty value ignored", types.Filter{"team": ""}, []string{"Checkout redesign", "Refund API", "Login"}},
		{"no match", types.Filter{"sprint": "Sprint 9"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Backlogs().Fetch(ctx, tt.filter)
			require.NoError(t, err)
			tasks := []string{}
			for _, bl := range got {
				tasks = append(tasks, bl.Task)
			}
			assert.Equal(t, tt.want, tasks)
		})
	}

	_, err := b.Backlogs().Fetch(ctx, types.Filter{"team": 3})
	assert.ErrorIs(t, err, types.ErrInvalidFilter)
}

func TestBacklogTable_Split(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, b *Backend)
	}{
		{
			name: "children inherit fields and dependencies and parent is removed",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				parent := &types.Backlog{
					Task: "Big", TaskDetails: "all of it", LOB: "Retail", Theme: "Payments",
					Evaluation: "Must", Estimation: types.Int64(8), Team: "PC", Sprint: "Sprint 4",
					Image: []byte("img"),
				}
				id, err := b.Backlogs().Set(ctx, parent, nil)
				require.NoError(t, err)
				d := addDependency(t, b, "Ledger", "PC")
				require.NoError(t, b.Backlogs().AssignDependencies(ctx, []int64{id}, []int64{d}))

				children, err := b.Backlogs().Split(ctx, id, []types.SplitPart{
					{Task: "Big A", Estimation: 5},
					{Task: "Big B", TaskDetails: "own details", Estimation: 3},
				})
				require.NoError(t, err)
				require.Len(t, children, 2)

				_, err = b.Backlogs().Get(ctx, id)
				assert.ErrorIs(t, err, types.ErrNotFound)

				a, err := b.Backlogs().Get(ctx, children[0])
				require.NoError(t, err)
				assert.Equal(t, "all of it (1)", a.TaskDetails)
				assert.Equal(t, int64(5), *a.Estimation)
				assert.Equal(t, "Payments", a.Theme)
				assert.Equal(t, "Must", a.Evaluation)
				assert.Equal(t, "Retail", a.LOB)
				assert.Equal(t, "PC", a.Team)
				assert.Equal(t, "Sprint 4", a.Sprint)
				assert.Equal(t, []byte("img"), a.Image)

				bb, err := b.Backlogs().Get(ctx, children[1])
				require.NoError(t, err)
				assert.Equal(t, "own details", bb.TaskDetails)

				for _, c := range children {
					deps, err := b.Associations().List(ctx, types.RelBacklogDependencies, c)
					require.NoError(t, err)
					assert.Equal(t, []int64{d}, deps)
				}
			},
		},
		{
			name: "parent without details gets numbered parts",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				id := addBacklog(t, b, "Big", "T", types.Int64(2))
				children, err := b.Backlogs().Split(ctx, id, []types.SplitPart{
					{Task: "one", Estimation: 1}, {Task: "two", Estimation: 1},
				})
				require.NoError(t, err)
				got, err := b.Backlogs().Get(ctx, children[1])
				require.NoError(t, err)
				assert.Equal(t, "Part 2", got.TaskDetails)
			},
		},
		{
			name: "invalid splits write nothing",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				id := addBacklog(t, b, "Big", "T", types.Int64(5))
				unestimated := addBacklog(t, b, "Vague", "T", nil)
				two := []types.SplitPart{{Task: "a", Estimation: 2}, {Task: "b", Estimation: 3}}

				_, err := b.Backlogs().Split(ctx, id, two[:1])
				assert.ErrorIs(t, err, types.ErrSplitTooFew)
				_, err = b.Backlogs().Split(ctx, unestimated, two)
				assert.ErrorIs(t, err, types.ErrEstimationRequired)
				_, err = b.Backlogs().Split(ctx, id, []types.SplitPart{{Task: "a", Estimation: 2}, {Task: "b", Estimation: 2}})
				assert.ErrorIs(t, err, types.ErrSplitMismatch)
				_, err = b.Backlogs().Split(ctx, id, []types.SplitPart{{Task: "a", Estimation: 5}, {Task: " ", Estimation: 0}})
				assert.ErrorIs(t, err, types.ErrInvalidTask)
				_, err = b.Backlogs().Split(ctx, 999, two)
				assert.ErrorIs(t, err, types.ErrNotFound)

				all, err := b.Backlogs().Fetch(ctx, nil)
				require.NoError(t, err)
				assert.Len(t, all, 2)
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

func TestBacklogTable_Merge(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, b *Backend)
	}{
		{
			name: "survivor takes dependency union and estimation sum",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				a := addBacklog(t, b, "A", "T", types.Int64(3))
				bb := addBacklog(t, b, "B", "T", types.Int64(5))
				c := addBacklog(t, b, "C", "T", nil)
				d1 := addDependency(t, b, "d1", "PC")
				d2 := addDependency(t, b, "d2", "BC")
				require.NoError(t, b.Backlogs().AssignDependencies(ctx, []int64{a}, []int64{d1}))
				require.NoError(t, b.Backlogs().AssignDependencies(ctx, []int64{bb, c}, []int64{d1, d2}))

				require.NoError(t, b.Backlogs().Merge(ctx, types.MergeRequest{SurvivorID: bb, IDs: []int64{a, bb, c}}))

				survivor, err := b.Backlogs().Get(ctx, bb)
				require.NoError(t, err)
				assert.Equal(t, "B", survivor.Task)
				require.NotNil(t, survivor.Estimation)
				assert.Equal(t, int64(8), *survivor.Estimation)

				deps, err := b.Associations().List(ctx, types.RelBacklogDependencies, bb)
				require.NoError(t, err)
				assert.Equal(t, []int64{d1, d2}, deps)

				all, err := b.Backlogs().Fetch(ctx, nil)
				require.NoError(t, err)
				require.Len(t, all, 1)
				assert.Equal(t, bb, all[0].ID)
			},
		},
		{
			name: "no estimations leaves survivor unestimated",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				a := addBacklog(t, b, "A", "T", nil)
				bb := addBacklog(t, b, "B", "T", nil)
				require.NoError(t, b.Backlogs().Merge(ctx, types.MergeRequest{SurvivorID: a, IDs: []int64{a, bb}}))
				got, err := b.Backlogs().Get(ctx, a)
				require.NoError(t, err)
				assert.Nil(t, got.Estimation)
			},
		},
		{
			name: "overrides replace survivor fields",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				a := addBacklog(t, b, "A", "T", types.Int64(1))
				bb := addBacklog(t, b, "B", "T", types.Int64(2))
				err := b.Backlogs().Merge(ctx, types.MergeRequest{
					SurvivorID: a,
					IDs:        []int64{a, bb},
					Overrides:  &types.Backlog{Task: "A+B", Theme: "Merged", Estimation: types.Int64(13)},
				})
				require.NoError(t, err)
				got, err := b.Backlogs().Get(ctx, a)
				require.NoError(t, err)
				assert.Equal(t, "A+B", got.Task)
				assert.Equal(t, "Merged", got.Theme)
				assert.Equal(t, int64(13), *got.Estimation)
			},
		},
		{
			name: "invalid merges write nothing",
			check: func(t *testing.T, b *Backend) {
				ctx := t.Context()
				a := addBacklog(t, b, "A", "T", nil)
				bb := addBacklog(t, b, "B", "T", nil)

				assert.ErrorIs(t, b.Backlogs().Merge(ctx, types.MergeRequest{SurvivorID: a, IDs: []int64{a, a}}), types.ErrMergeTooFew)
				assert.ErrorIs(t, b.Backlogs().Merge(ctx, types.MergeRequest{SurvivorID: 77, IDs: []int64{a, bb}}), types.ErrSurvivorNotMerged)
				assert.ErrorIs(t, b.Backlogs().Merge(ctx, types.MergeRequest{SurvivorID: a, IDs: []int64{a, 404}}), types.ErrNotFound)

				all, err := b.Backlogs().Fetch(ctx, nil)
				require.NoError(t, err)
				assert.Len(t, all, 2)
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

func TestBacklogTable_BulkEdits(t *testing.T) {
	b := setupBackend(t)
	ctx := t.Context()
	a := addBacklog(t, b, "A", "T", nil)
	bb := addBacklog(t, b, "B", "T", nil)
	d := addDependency(t, b, "d", "Auth")
	sub, err := b.SubBacklogs().Set(ctx, &types.SubBacklog{Title: "Group"}, nil)
	require.NoError(t, err)

	require.NoError(t, b.Backlogs().AssignDependencies(ctx, []int64{a, bb}, []int64{d}))
	require.NoError(t, b.Backlogs().AssignSubBacklogs(ctx, []int64{a, bb}, []int64{sub}))
	require.NoError(t, b.Backlogs().SetEvaluation(ctx, []int64{a, bb}, "Later"))

	for _, id := range []int64{a, bb} {
		got, err := b.Backlogs().Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Later", got.Evaluation)
		assert.Equal(t, 1, got.DependencyCount)
	}
	grouped, err := b.SubBacklogs().Backlogs(ctx, sub)
	require.NoError(t, err)
	assert.Len(t, grouped, 2)

	require.NoError(t, b.Backlogs().SetEvaluation(ctx, []int64{a}, ""))
	got, err := b.Backlogs().Get(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, got.Evaluation)

	assert.ErrorIs(t, b.Backlogs().AssignDependencies(ctx, []int64{a, 404}, []int64{d}), types.ErrNotFound)
	assert.ErrorIs(t, b.Backlogs().SetEvaluation(ctx, []int64{404}, "x"), types.ErrNotFound)
	assert.ErrorIs(t, b.Backlogs().AssignDependencies(ctx, nil, []int64{d}), types.ErrInvalidID)
}
