package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a run or checkpoint does not exist.
var ErrNotFound = errors.New("not found")

// ReadRun retrieves a single run by ID.
// Returns ErrNotFound if the run does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, name, template, strategy, sizes, library, start_step, end_step, worker, workers
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// ListRuns returns all runs in creation order.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, name, template, strategy, sizes, library, start_step, end_step, worker, workers
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// LatestCheckpoint returns the checkpoint with the highest step for a run.
// Returns ErrNotFound if the run has no checkpoints.
func (s *Store) LatestCheckpoint(ctx context.Context, runID string) (Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, step, state, exhausted
		FROM checkpoints
		WHERE run_id = ?
		ORDER BY step DESC
		LIMIT 1
	`, runID)

	var (
		cp        Checkpoint
		step      int64
		exhausted int
	)
	err := row.Scan(&cp.RunID, &step, &cp.State, &exhausted)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkpoint{}, fmt.Errorf("checkpoint for run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("scan checkpoint: %w", err)
	}
	cp.Step = uint64(step)
	cp.Exhausted = exhausted != 0
	return cp, nil
}

// ResultFilter narrows ReadResults.
type ResultFilter struct {
	// MatchedOnly drops steps where the template did not apply.
	MatchedOnly bool

	// FailedOnly keeps only steps where the template failed.
	FailedOnly bool

	// Limit caps the number of records returned. Zero means no limit.
	Limit int
}

// ReadResults returns the stored results of a run ordered by step ASC.
//
// Returns an empty slice (not nil) if no results match.
func (s *Store) ReadResults(ctx context.Context, runID string, filter ResultFilter) ([]ResultRecord, error) {
	query := `
		SELECT run_id, step, position, matched, products, digest, error
		FROM results
		WHERE run_id = ?`
	args := []any{runID}
	if filter.MatchedOnly {
		query += ` AND matched = 1`
	}
	if filter.FailedOnly {
		query += ` AND error != ''`
	}
	query += ` ORDER BY step ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	records := []ResultRecord{}
	for rows.Next() {
		rec, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	return records, nil
}

// ResultCounts summarizes the stored results of a run.
type ResultCounts struct {
	Steps    int
	Matched  int
	Failed   int
	Products int
}

// CountResults summarizes the results of a run. Products counts structures
// across all matched steps.
func (s *Store) CountResults(ctx context.Context, runID string) (ResultCounts, error) {
	var counts ResultCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(matched), 0),
			COALESCE(SUM(CASE WHEN error != '' THEN 1 ELSE 0 END), 0)
		FROM results
		WHERE run_id = ?
	`, runID).Scan(&counts.Steps, &counts.Matched, &counts.Failed)
	if err != nil {
		return ResultCounts{}, fmt.Errorf("count results: %w", err)
	}

	records, err := s.ReadResults(ctx, runID, ResultFilter{MatchedOnly: true})
	if err != nil {
		return ResultCounts{}, fmt.Errorf("count results: %w", err)
	}
	for _, rec := range records {
		counts.Products += rec.Result.Count()
	}

	return counts, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run        Run
		sizesJSON  string
		start, end int64
	)
	err := row.Scan(
		&run.Seq,
		&run.ID,
		&run.Name,
		&run.Template,
		&run.Strategy,
		&sizesJSON,
		&run.Library,
		&start,
		&end,
		&run.Worker,
		&run.Workers,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.Sizes, err = unmarshalInts(sizesJSON)
	if err != nil {
		return Run{}, fmt.Errorf("scan run %s: %w", run.ID, err)
	}
	run.StartStep = uint64(start)
	run.EndStep = uint64(end)
	return run, nil
}

func scanResult(rows *sql.Rows) (ResultRecord, error) {
	var (
		rec          ResultRecord
		step         int64
		positionJSON string
		matched      int
		productsJSON string
	)
	err := rows.Scan(
		&rec.RunID,
		&step,
		&positionJSON,
		&matched,
		&productsJSON,
		&rec.Digest,
		&rec.Error,
	)
	if err != nil {
		return ResultRecord{}, fmt.Errorf("scan result: %w", err)
	}

	rec.Result.Step = uint64(step)
	rec.Result.Matched = matched != 0
	if rec.Result.Position, err = unmarshalInts(positionJSON); err != nil {
		return ResultRecord{}, fmt.Errorf("scan result %d: %w", step, err)
	}
	if rec.Result.Groups, err = unmarshalGroups(productsJSON); err != nil {
		return ResultRecord{}, fmt.Errorf("scan result %d: %w", step, err)
	}
	return rec, nil
}
