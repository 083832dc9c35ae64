package store

import (
	"context"
	"fmt"
	"math"

	"github.com/roach88/rxnenum/internal/ir"
)

// WriteRun inserts a run record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
//
// The run's Seq is assigned by the database and ignored on input.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	sizesJSON, err := marshalInts(run.Sizes)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	start, err := dbStep(run.StartStep)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	end, err := dbStep(run.EndStep)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	workers := run.Workers
	if workers == 0 {
		workers = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, name, template, strategy, sizes, library, start_step, end_step, worker, workers)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Name,
		run.Template,
		run.Strategy,
		sizesJSON,
		run.Library,
		start,
		end,
		run.Worker,
		workers,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	return nil
}

// WriteCheckpoint records a cursor state blob for a run.
// Uses ON CONFLICT(run_id, step) DO NOTHING for idempotency: the first
// checkpoint written at a step wins.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteCheckpoint(ctx context.Context, cp Checkpoint) error {
	step, err := dbStep(cp.Step)
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints
		(run_id, step, state, exhausted)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, step) DO NOTHING
	`,
		cp.RunID,
		step,
		cp.State,
		boolToInt(cp.Exhausted),
	)
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}

	return nil
}

// WriteResult records the outcome of one enumeration step.
// Uses ON CONFLICT(run_id, step) DO NOTHING for idempotency: a step
// re-executed after resuming from an older checkpoint is not stored twice.
//
// errMsg is the template failure at this step, or "" on success.
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) WriteResult(ctx context.Context, runID string, res *ir.Result, errMsg string) error {
	step, err := dbStep(res.Step)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	positionJSON, err := marshalInts(res.Position)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	productsJSON, err := marshalGroups(res.Groups)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	digest, err := ir.ResultDigest(res)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results
		(run_id, step, position, matched, products, digest, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, step) DO NOTHING
	`,
		runID,
		step,
		positionJSON,
		boolToInt(res.Matched),
		productsJSON,
		digest,
		errMsg,
	)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	return nil
}

// dbStep converts a step to SQLite's signed INTEGER.
func dbStep(step uint64) (int64, error) {
	if step > math.MaxInt64 {
		return 0, fmt.Errorf("step %d exceeds storable range", step)
	}
	return int64(step), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
