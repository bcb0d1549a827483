// Package importer loads backlogs and dependencies from CSV files. A mapping
// names the CSV column that feeds each field. Rows that lack a required
// value are skipped and tallied by reason; the rest are written through the
// store one at a time.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/backlog/internal/logging"
	"github.com/mesh-intelligence/backlog/pkg/types"
)

// Field names accepted as mapping keys.
const (
	FieldTask        = "task"
	FieldTaskDetails = "task_details"
	FieldLOB         = "lob"
	FieldTheme       = "theme"
	FieldEvaluation  = "evaluation"
	FieldEstimation  = "estimation"
	FieldTeam        = "team"
	FieldSprint      = "sprint"
	FieldSubTask     = "sub_task"
)

// BacklogFields are the fields a backlog import can map; the first two are
// required.
var BacklogFields = []string{
	FieldTask, FieldTheme, FieldTaskDetails, FieldLOB, FieldEvaluation,
	FieldEstimation, FieldTeam, FieldSprint,
}

// DependencyFields are the fields a dependency import can map; the first two
// are required.
var DependencyFields = []string{FieldTask, FieldTeam, FieldSubTask}

var (
	backlogRequired    = []string{FieldTask, FieldTheme}
	dependencyRequired = []string{FieldTask, FieldTeam}
)

// Mapping errors.
var (
	ErrUnknownField  = errors.New("unknown import field")
	ErrUnknownColumn = errors.New("mapped column not in CSV header")
	ErrEmptyFile     = errors.New("CSV file has no header row")
)

// Mapping maps a field name to the CSV column header that feeds it. An
// absent or blank entry leaves the field unmapped.
type Mapping map[string]string

// DefaultMapping maps every field whose name matches a header column,
// ignoring case and surrounding space.
func DefaultMapping(header, fields []string) Mapping {
	m := Mapping{}
	for _, f := range fields {
		for _, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), f) {
				m[f] = h
				break
			}
		}
	}
	return m
}

// BacklogStore is where imported backlogs are written.
type BacklogStore interface {
	Set(ctx context.Context, b *types.Backlog, links *types.BacklogLinks) (int64, error)
}

// DependencyStore is where imported dependencies are written.
type DependencyStore interface {
	Set(ctx context.Context, d *types.Dependency, backlogIDs []int64) (int64, error)
}

// Importer runs CSV imports.
type Importer struct {
	logger *slog.Logger
	runID  func() string
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the logger for import runs.
func WithLogger(logger *slog.Logger) Option {
	return func(im *Importer) {
		if logger != nil {
			im.logger = logger
		}
	}
}

// New returns an Importer.
func New(opts ...Option) *Importer {
	im := &Importer{logger: logging.NewDiscard(), runID: newRunID}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Backlogs imports backlog rows from r. Mapping checks happen before any row
// is read: an unmapped task or theme returns types.ErrMappingMissing. Rows
// are skipped for a blank task, a blank theme, or an estimation that is not
// a non-negative integer, in that order.
func (im *Importer) Backlogs(ctx context.Context, r io.Reader, m Mapping, store BacklogStore) (*types.ImportResult, error) {
	src, err := openSheet(r, m, BacklogFields, backlogRequired)
	if err != nil {
		return nil, err
	}
	result, log := im.begin("backlog", backlogSkipReasons)

	err = src.each(func(line int, row rowValues) error {
		b := &types.Backlog{
			Task:        row.get(FieldTask),
			TaskDetails: row.get(FieldTaskDetails),
			LOB:         row.get(FieldLOB),
			Theme:       row.get(FieldTheme),
			Evaluation:  row.get(FieldEvaluation),
			Team:        row.get(FieldTeam),
			Sprint:      row.get(FieldSprint),
		}
		switch {
		case b.Task == "":
			return im.skip(log, result, line, types.SkipMissingTask)
		case b.Theme == "":
			return im.skip(log, result, line, types.SkipMissingTheme)
		}
		est, err := types.ParseEstimation(row.get(FieldEstimation))
		if err != nil {
			return im.skip(log, result, line, types.SkipInvalidEstimation)
		}
		b.Estimation = est

		if _, err := store.Set(ctx, b, nil); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		result.Imported++
		return nil
	})
	return im.finish(log, result, err)
}

// Dependencies imports dependency rows from r. An unmapped task or team
// returns types.ErrMappingMissing. Rows are skipped for a blank task, or for
// a team that is blank or not among cfg's dependency teams.
func (im *Importer) Dependencies(ctx context.Context, r io.Reader, m Mapping, cfg types.Config, store DependencyStore) (*types.ImportResult, error) {
	src, err := openSheet(r, m, DependencyFields, dependencyRequired)
	if err != nil {
		return nil, err
	}
	result, log := im.begin("dependency", dependencySkipReasons)

	err = src.each(func(line int, row rowValues) error {
		d := &types.Dependency{
			Task:    row.get(FieldTask),
			SubTask: row.get(FieldSubTask),
		}
		if d.Task == "" {
			return im.skip(log, result, line, types.SkipMissingTask)
		}
		team, ok := cfg.CanonicalTeam(row.get(FieldTeam))
		if !ok {
			return im.skip(log, result, line, types.SkipMissingTeam)
		}
		d.Team = team

		if _, err := store.Set(ctx, d, nil); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		result.Imported++
		return nil
	})
	return im.finish(log, result, err)
}

// Every reason an import kind can report starts at zero so results have a
// stable shape.
var (
	backlogSkipReasons    = []string{types.SkipMissingTask, types.SkipMissingTheme, types.SkipInvalidEstimation}
	dependencySkipReasons = []string{types.SkipMissingTask, types.SkipMissingTeam}
)

func (im *Importer) begin(kind string, reasons []string) (*types.ImportResult, *slog.Logger) {
	result := &types.ImportResult{RunID: im.runID(), SkipReasons: make(map[string]int, len(reasons))}
	for _, r := range reasons {
		result.SkipReasons[r] = 0
	}
	log := im.logger.With("run_id", result.RunID, "kind", kind)
	log.Info("import started")
	return result, log
}

func (im *Importer) skip(log *slog.Logger, result *types.ImportResult, line int, reason string) error {
	result.Skip(reason)
	log.Debug("row skipped", "line", line, "reason", reason)
	return nil
}

func (im *Importer) finish(log *slog.Logger, result *types.ImportResult, err error) (*types.ImportResult, error) {
	if err != nil {
		log.Error("import stopped", "imported", result.Imported, "skipped", result.Skipped, "error", err)
		return result, err
	}
	log.Info("import finished", "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}

// sheet is a CSV reader positioned after the header, with the mapping
// resolved to column indexes.
type sheet struct {
	reader  *csv.Reader
	columns map[string]int
}

type rowValues struct {
	record  []string
	columns map[string]int
}

// get returns the trimmed cell for field, or "" when the field is unmapped
// or the row is short.
func (r rowValues) get(field string) string {
	i, ok := r.columns[field]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func openSheet(r io.Reader, m Mapping, fields, required []string) (*sheet, error) {
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f] = true
	}
	for f := range m {
		if !known[f] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, f)
		}
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(m[f]) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrMappingMissing, strings.Join(missing, ", "))
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := index[strings.TrimSpace(h)]; !dup {
			index[strings.TrimSpace(h)] = i
		}
	}

	columns := make(map[string]int, len(m))
	var unknown []string
	for f, col := range m {
		col = strings.TrimSpace(col)
		if col == "" {
			continue
		}
		i, ok := index[col]
		if !ok {
			unknown = append(unknown, col)
			continue
		}
		columns[f] = i
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, strings.Join(unknown, ", "))
	}
	return &sheet{reader: reader, columns: columns}, nil
}

// each calls fn for every data row, numbering lines from 2. Blank lines are
// skipped by the CSV reader. A malformed record stops the import.
func (s *sheet) each(fn func(line int, row rowValues) error) error {
	line := 1
	for {
		record, err := s.reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(line, rowValues{record: record, columns: s.columns}); err != nil {
			return err
		}
	}
}
