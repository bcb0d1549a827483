package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/backlog/internal/sqlite"
	"github.com/mesh-intelligence/backlog/pkg/types"
)

type fakeBacklogs struct {
	saved []*types.Backlog
	err   error
}

func (f *fakeBacklogs) Set(_ context.Context, b *types.Backlog, _ *types.BacklogLinks) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = append(f.saved, b)
	return int64(len(f.saved)), nil
}

type fakeDependencies struct {
	saved []*types.Dependency
}

func (f *fakeDependencies) Set(_ context.Context, d *types.Dependency, _ []int64) (int64, error) {
	f.saved = append(f.saved, d)
	return int64(len(f.saved)), nil
}

const backlogCSV = `Summary,Details,Area,Points,Squad,Iteration
Fix login,,Identity,5,PC,Sprint 1
Fix logout,,,3,PC,Sprint 1
,orphan details,Identity,1,PC,Sprint 1
Refund API,partial,Payments,"1,200",BC,Sprint 2
Tax report,,Payments,2.5,BC,Sprint 2
Ledger,,Payments,,BC,
Short row,,Payments
`

func backlogMapping() Mapping {
	return Mapping{
		FieldTask:        "Summary",
		FieldTaskDetails: "Details",
		FieldTheme:       "Area",
		FieldEstimation:  "Points",
		FieldTeam:        "Squad",
		FieldSprint:      "Iteration",
	}
}

func TestImporter_Backlogs(t *testing.T) {
	store := &fakeBacklogs{}
	result, err := New().Backlogs(t.Context(), strings.NewReader(backlogCSV), backlogMapping(), store)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Imported)
	assert.Equal(t, 3, result.Skipped)
	assert.Equal(t, map[string]int{
		types.SkipMissingTheme:      1,
		types.SkipMissingTask:       1,
		types.SkipInvalidEstimation: 1,
	}, result.SkipReasons)

	_, err = uuid.Parse(result.RunID)
	assert.NoError(t, err, "run id should be a UUID")

	require.Len(t, store.saved, 4)
	assert.Equal(t, "Fix login", store.saved[0].Task)
	assert.Equal(t, int64(5), *store.saved[0].Estimation)
	assert.Equal(t, "Sprint 1", store.saved[0].Sprint)
	assert.Equal(t, int64(1200), *store.saved[1].Estimation)
	assert.Nil(t, store.saved[2].Estimation)
	assert.Equal(t, "Short row", store.saved[3].Task)
	assert.Empty(t, store.saved[3].Team)
}

func TestImporter_MappingErrors(t *testing.T) {
	tests := []struct {
		name    string
		mapping Mapping
		want    error
	}{
		{"task unmapped", Mapping{FieldTheme: "Area"}, types.ErrMappingMissing},
		{"theme blank", Mapping{FieldTask: "Summary", FieldTheme: " "}, types.ErrMappingMissing},
		{"unknown field", Mapping{FieldTask: "Summary", FieldTheme: "Area", "owner": "Squad"}, ErrUnknownField},
		{"column not in header", Mapping{FieldTask: "Summary", FieldTheme: "Theme"}, ErrUnknownColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeBacklogs{}
			_, err := New().Backlogs(t.Context(), strings.NewReader(backlogCSV), tt.mapping, store)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, store.saved, "no row may be written when the mapping is rejected")
		})
	}

	_, err := New().Backlogs(t.Context(), strings.NewReader(""), backlogMapping(), &fakeBacklogs{})
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestImporter_StoreFailureStops(t *testing.T) {
	boom := errors.New("disk full")
	result, err := New().Backlogs(t.Context(), strings.NewReader(backlogCSV), backlogMapping(), &fakeBacklogs{err: boom})
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, result)
	assert.Zero(t, result.Imported)
}

func TestImporter_Dependencies(t *testing.T) {
	const csv = "\ufefftask,sub_task,team\n" +
		"Ledger,posting,pc\n" +
		"Fraud,,Marketing\n" +
		"Tax,,\n" +
		",x,BC\n" +
		"Token,,Auth\n"

	header := []string{"task", "sub_task", "team"}
	store := &fakeDependencies{}
	result, err := New().Dependencies(t.Context(), strings.NewReader(csv),
		DefaultMapping(header, DependencyFields), types.Config{}, store)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, map[string]int{types.SkipMissingTeam: 2, types.SkipMissingTask: 1}, result.SkipReasons)
	require.Len(t, store.saved, 2)
	assert.Equal(t, "PC", store.saved[0].Team)
	assert.Equal(t, "posting", store.saved[0].SubTask)

	_, err = New().Dependencies(t.Context(), strings.NewReader(csv), Mapping{FieldTask: "task"}, types.Config{}, store)
	assert.ErrorIs(t, err, types.ErrMappingMissing)
}

func TestImporter_SkipReasonsStartAtZero(t *testing.T) {
	clean, err := New().Backlogs(t.Context(), strings.NewReader("task,theme\nLogin,Identity\n"),
		DefaultMapping([]string{"task", "theme"}, BacklogFields), &fakeBacklogs{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		types.SkipMissingTask:       0,
		types.SkipMissingTheme:      0,
		types.SkipInvalidEstimation: 0,
	}, clean.SkipReasons)

	deps, err := New().Dependencies(t.Context(), strings.NewReader("task,team\nLedger,PC\n"),
		DefaultMapping([]string{"task", "team"}, DependencyFields), types.Config{}, &fakeDependencies{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{types.SkipMissingTask: 0, types.SkipMissingTeam: 0}, deps.SkipReasons)
}

func TestDefaultMapping(t *testing.T) {
	m := DefaultMapping([]string{" Task ", "THEME", "Notes"}, BacklogFields)
	assert.Equal(t, Mapping{FieldTask: " Task ", FieldTheme: "THEME"}, m)
}

func TestImporter_IntoStore(t *testing.T) {
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(t.Context(), types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })

	const csv = "task,theme,evaluation,estimation\n" +
		"Fix login,,Must,3\n" +
		"Checkout,Payments,Must,8\n" +
		"Refund,Payments,,x\n"
	header := []string{"task", "theme", "evaluation", "estimation"}

	result, err := New().Backlogs(t.Context(), strings.NewReader(csv), DefaultMapping(header, BacklogFields), b.Backlogs())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.SkipReasons[types.SkipMissingTheme])
	assert.Equal(t, 1, result.SkipReasons[types.SkipInvalidEstimation])

	rows, err := b.Backlogs().Fetch(t.Context(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Checkout", rows[0].Task)
	assert.Equal(t, "Must", rows[0].Evaluation)

	themes, err := b.Themes().Fetch(t.Context())
	require.NoError(t, err)
	require.Len(t, themes, 1)
	assert.Equal(t, "Payments", themes[0].Name)
}
