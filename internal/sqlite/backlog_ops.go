package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/backlog/pkg/types"
)

// Split replaces backlog id with one child per part and returns the child
// ids. The parent must carry an estimation equal to the sum of the parts.
// Children inherit the parent's dependencies, theme, evaluation, team,
// sprint, image, and LOB. A part without details is described from the
// parent's details, or as "Part N". Nothing is written unless every check
// passes.
func (bt *BacklogTable) Split(ctx context.Context, id int64, parts []types.SplitPart) ([]int64, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	if len(parts) < 2 {
		return nil, types.ErrSplitTooFew
	}
	var sum int64
	for i := range parts {
		parts[i].Task = strings.TrimSpace(parts[i].Task)
		parts[i].TaskDetails = strings.TrimSpace(parts[i].TaskDetails)
		if parts[i].Task == "" {
			return nil, fmt.Errorf("part %d: %w", i+1, types.ErrInvalidTask)
		}
		if parts[i].Estimation < 0 {
			return nil, fmt.Errorf("part %d: %w", i+1, types.ErrInvalidEstimation)
		}
		sum += parts[i].Estimation
	}

	var children []int64
	err := bt.backend.write(ctx, func(tx *sql.Tx) error {
		parent, err := getBacklog(ctx, tx, id)
		if err != nil {
			return err
		}
		if parent.Estimation == nil {
			return fmt.Errorf("backlog %d: %w", id, types.ErrEstimationRequired)
		}
		if sum != *parent.Estimation {
			return fmt.Errorf("%w: parts total %d, backlog %d has %d",
				types.ErrSplitMismatch, sum, id, *parent.Estimation)
		}

		deps, err := listLinks(ctx, tx, relations[types.RelBacklogDependencies], id)
		if err != nil {
			return err
		}

		for i, part := range parts {
			child := &types.Backlog{
				Task:        part.Task,
				TaskDetails: part.TaskDetails,
				LOB:         parent.LOB,
				Image:       parent.Image,
				Theme:       parent.Theme,
				Evaluation:  parent.Evaluation,
				Estimation:  types.Int64(part.Estimation),
				Team:        parent.Team,
				Sprint:      parent.Sprint,
			}
			if child.TaskDetails == "" {
				child.TaskDetails = splitDetails(parent.TaskDetails, i+1)
			}
			if err := saveBacklog(ctx, tx, child); err != nil {
				return err
			}
			if err := addLinks(ctx, tx, relations[types.RelBacklogDependencies], child.ID, deps); err != nil {
				return err
			}
			children = append(children, child.ID)
		}

		_, err = deleteBacklogs(ctx, tx, []int64{id})
		return err
	})
	if err != nil {
		return nil, err
	}
	return children, nil
}

func splitDetails(parentDetails string, n int) string {
	if parentDetails == "" {
		return fmt.Sprintf("Part %d", n)
	}
	return fmt.Sprintf("%s (%d)", parentDetails, n)
}

// Merge folds req.IDs into req.SurvivorID. The survivor's dependencies become
// the union of every merged backlog's dependencies. Its estimation becomes
// the sum of the merged estimations unless Overrides supplies one. The other
// backlogs are deleted.
func (bt *BacklogTable) Merge(ctx context.Context, req types.MergeRequest) error {
	ids := uniqueIDs(req.IDs)
	if len(ids) < 2 {
		return types.ErrMergeTooFew
	}
	survivorListed := false
	var others []int64
	for _, id := range ids {
		if id == req.SurvivorID {
			survivorListed = true
			continue
		}
		others = append(others, id)
	}
	if !survivorListed {
		return types.ErrSurvivorNotMerged
	}

	var overrides *types.Backlog
	if req.Overrides != nil {
		o := *req.Overrides
		o.Normalize()
		if err := o.Validate(); err != nil {
			return err
		}
		overrides = &o
	}

	return bt.backend.write(ctx, func(tx *sql.Tx) error {
		n, err := countExisting(ctx, tx, "backlog", ids)
		if err != nil {
			return err
		}
		if n != len(ids) {
			return fmt.Errorf("merging %v: %w", ids, types.ErrNotFound)
		}

		in := placeholders(len(ids))
		args := idArgs(ids)

		var (
			estimated int
			total     sql.NullInt64
		)
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(estimation), SUM(estimation) FROM backlog WHERE id IN ("+in+")", args...,
		).Scan(&estimated, &total); err != nil {
			return fmt.Errorf("summing estimations: %w", err)
		}

		deps, err := distinctIDs(ctx, tx,
			"SELECT DISTINCT dependency_id FROM backlog_dependency WHERE backlog_id IN ("+in+") ORDER BY dependency_id",
			args...)
		if err != nil {
			return err
		}

		survivor, err := getBacklog(ctx, tx, req.SurvivorID)
		if err != nil {
			return err
		}
		merged := survivor
		merged.Image = nil
		if overrides != nil {
			merged = overrides
			merged.ID = req.SurvivorID
		}
		if overrides == nil || overrides.Estimation == nil {
			merged.Estimation = nil
			if estimated > 0 {
				merged.Estimation = types.Int64(total.Int64)
			}
		}
		if err := saveBacklog(ctx, tx, merged); err != nil {
			return err
		}
		if err := replaceLinks(ctx, tx, relations[types.RelBacklogDependencies], req.SurvivorID, deps); err != nil {
			return err
		}
		_, err = deleteBacklogs(ctx, tx, others)
		return err
	})
}

// AssignDependencies makes deps the full dependency set of every backlog in
// ids.
func (bt *BacklogTable) AssignDependencies(ctx context.Context, ids, deps []int64) error {
	return bt.assign(ctx, types.RelBacklogDependencies, ids, deps)
}

// AssignSubBacklogs makes subs the full sub-backlog set of every backlog in
// ids.
func (bt *BacklogTable) AssignSubBacklogs(ctx context.Context, ids, subs []int64) error {
	return bt.assign(ctx, types.RelBacklogSubBacklogs, ids, subs)
}

func (bt *BacklogTable) assign(ctx context.Context, rel types.Relation, ids, counterparts []int64) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return types.ErrInvalidID
	}
	counterparts = uniqueIDs(counterparts)
	return bt.backend.write(ctx, func(tx *sql.Tx) error {
		n, err := countExisting(ctx, tx, "backlog", ids)
		if err != nil {
			return err
		}
		if n != len(ids) {
			return fmt.Errorf("backlogs %v: %w", ids, types.ErrNotFound)
		}
		for _, id := range ids {
			if err := replaceLinks(ctx, tx, relations[rel], id, counterparts); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetEvaluation sets the evaluation of every backlog in ids to name,
// creating the evaluation when absent. An empty name clears it.
func (bt *BacklogTable) SetEvaluation(ctx context.Context, ids []int64, name string) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return types.ErrInvalidID
	}
	name = strings.TrimSpace(name)
	return bt.backend.write(ctx, func(tx *sql.Tx) error {
		var evaluationID int64
		if name != "" {
			var err error
			if evaluationID, err = ensureLookup(ctx, tx, "evaluation", name); err != nil {
				return err
			}
		}
		args := append([]any{nullID(evaluationID)}, idArgs(ids)...)
		res, err := tx.ExecContext(ctx,
			"UPDATE backlog SET evaluation_id = ? WHERE id IN ("+placeholders(len(ids))+")", args...)
		if err != nil {
			return fmt.Errorf("setting evaluation: %w", err)
		}
		if n, _ := res.RowsAffected(); n != int64(len(ids)) {
			return fmt.Errorf("backlogs %v: %w", ids, types.ErrNotFound)
		}
		return nil
	})
}

func distinctIDs(ctx context.Context, q execer, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ids: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
