// Package runner drives an enumeration library into the run store.
//
// A run owns a contiguous step range of one library. The runner walks it,
// writes one result row per step and checkpoints the cursor state, so an
// interrupted run resumes from its last checkpoint without recomputing
// stored steps.
//
// Thread-safety model:
//   - a Runner may start and execute several runs concurrently
//   - each Library passed to it is owned by a single Execute call
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/rxnenum/internal/engine"
	"github.com/roach88/rxnenum/internal/ir"
	"github.com/roach88/rxnenum/internal/library"
	"github.com/roach88/rxnenum/internal/store"
)

// DefaultCheckpointEvery is the default number of steps between
// checkpoints.
const DefaultCheckpointEvery = 1000

// Runner records enumeration runs in a store.
type Runner struct {
	store           *store.Store
	ids             IDGenerator
	checkpointEvery uint64
	maxFailures     int
}

// Option allows configuration of runner parameters.
type Option func(*Runner)

// WithCheckpointEvery sets the number of steps between checkpoints.
// Zero checkpoints only when a run stops.
func WithCheckpointEvery(n uint64) Option {
	return func(r *Runner) {
		r.checkpointEvery = n
	}
}

// WithMaxFailures stops a run after more than n template failures.
// Zero (the default) never stops a run for failures.
func WithMaxFailures(n int) Option {
	return func(r *Runner) {
		r.maxFailures = n
	}
}

// WithIDGenerator replaces the UUIDv7 run ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Runner) {
		r.ids = g
	}
}

// New creates a Runner writing to s.
func New(s *store.Store, opts ...Option) *Runner {
	r := &Runner{
		store:           s,
		ids:             UUIDv7Generator{},
		checkpointEvery: DefaultCheckpointEvery,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Plan describes a run to start.
type Plan struct {
	// Name labels the run, usually the library name.
	Name string

	// Library is positioned at the first step the run owns.
	Library *library.Library

	// End is the exclusive last step. Zero walks until exhaustion.
	End uint64

	// Worker and Workers identify the partition, when the walk was split.
	Worker  int
	Workers int
}

// Summary reports what an Execute call did.
type Summary struct {
	RunID    string
	From     uint64
	To       uint64
	Steps    int
	Matched  int
	Failed   int
	Products int

	// Done is true when the run reached its end step or exhausted the walk.
	Done bool
}

// Start records a new run and its initial checkpoint. The library is
// serialized as it stands, so the stored run can be rebuilt without the
// spec files.
func (r *Runner) Start(ctx context.Context, plan Plan) (store.Run, error) {
	lib := plan.Library
	blob, err := lib.Serialize()
	if err != nil {
		return store.Run{}, fmt.Errorf("start run: %w", err)
	}

	run := store.Run{
		ID:        r.ids.Generate(),
		Name:      plan.Name,
		Template:  lib.Template().Name(),
		Strategy:  lib.Spec().String(),
		Sizes:     lib.Sizes(),
		Library:   blob,
		StartStep: lib.Step(),
		EndStep:   plan.End,
		Worker:    plan.Worker,
		Workers:   plan.Workers,
	}
	if run.Workers == 0 {
		run.Workers = 1
	}

	if err := r.store.WriteRun(ctx, run); err != nil {
		return store.Run{}, fmt.Errorf("start run: %w", err)
	}
	if err := r.checkpoint(ctx, run.ID, lib); err != nil {
		return store.Run{}, fmt.Errorf("start run: %w", err)
	}

	slog.Info("run started",
		"run", run.ID,
		"name", run.Name,
		"template", run.Template,
		"strategy", run.Strategy,
		"sizes", run.Sizes,
		"start", run.StartStep,
		"end", run.EndStep,
	)
	return run, nil
}

// Resume rebuilds a stored run at its latest checkpoint and executes up to
// limit more steps (zero means no limit).
func (r *Runner) Resume(ctx context.Context, runID string, decode library.TemplateDecoder, limit uint64) (Summary, error) {
	run, err := r.store.ReadRun(ctx, runID)
	if err != nil {
		return Summary{}, fmt.Errorf("resume: %w", err)
	}
	lib, err := library.Restore(run.Library, decode)
	if err != nil {
		return Summary{}, fmt.Errorf("resume %s: %w", runID, err)
	}
	cp, err := r.store.LatestCheckpoint(ctx, runID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Start crashed before its first checkpoint: the library blob
		// already sits at the start step.
	case err != nil:
		return Summary{}, fmt.Errorf("resume %s: %w", runID, err)
	default:
		if err := lib.RestoreState(cp.State); err != nil {
			return Summary{}, fmt.Errorf("resume %s at step %d: %w", runID, cp.Step, err)
		}
	}

	slog.Info("run resumed", "run", runID, "step", lib.Step())
	return r.Execute(ctx, run, lib, limit)
}

// Execute walks lib from its current step until the run's end step, the
// walk's exhaustion, or limit steps (zero means no limit), whichever comes
// first.
//
// A template failure is stored as an error row and the walk continues
// ("log and continue"), unless the failure budget is exceeded. Cancellation
// rewinds the interrupted step, checkpoints and returns the context error.
func (r *Runner) Execute(ctx context.Context, run store.Run, lib *library.Library, limit uint64) (Summary, error) {
	if !run.Bounded() && limit == 0 && lib.Spec().Kind == engine.KindRandom {
		return Summary{}, engine.NewInvalidConfiguration("run", "random walks never exhaust: set an end step or a limit")
	}

	sum := Summary{RunID: run.ID, From: lib.Step()}
	budget := NewFailureBudget(r.maxFailures)
	var since uint64

	for {
		if lib.Exhausted() || (run.Bounded() && lib.Step() >= run.EndStep) {
			sum.Done = true
			break
		}
		if limit > 0 && uint64(sum.Steps) >= limit {
			break
		}

		res, err := lib.Next(ctx)
		if errors.Is(err, engine.ErrExhausted) {
			sum.Done = true
			break
		}

		var te *library.TemplateError
		switch {
		case err == nil:
			if err := r.store.WriteResult(ctx, run.ID, res, ""); err != nil {
				return r.unstored(ctx, sum, lib, res.Step, err)
			}
			sum.Steps++
			if res.Matched {
				sum.Matched++
				sum.Products += res.Count()
			}

		case errors.As(err, &te) && ctx.Err() == nil:
			slog.Warn("template failed",
				"run", run.ID,
				"step", te.Step,
				"position", te.Position.String(),
				"error", te.Err,
			)
			failed := &ir.Result{Step: te.Step, Position: te.Position, Groups: [][]ir.Product{}}
			if err := r.store.WriteResult(ctx, run.ID, failed, err.Error()); err != nil {
				return r.unstored(ctx, sum, lib, te.Step, err)
			}
			sum.Steps++
			sum.Failed++
			if err := budget.Check(run.ID); err != nil {
				slog.Error("failure budget exceeded",
					"run", run.ID,
					"failures", budget.Current(),
					"limit", budget.Limit(),
				)
				return r.stop(ctx, sum, lib, err)
			}

		default:
			slog.Info("run interrupted", "run", run.ID, "step", lib.Step(), "error", err)
			if te != nil {
				return r.unstored(ctx, sum, lib, te.Step, err)
			}
			return r.stop(ctx, sum, lib, err)
		}

		since++
		if r.checkpointEvery > 0 && since >= r.checkpointEvery {
			if err := r.checkpoint(ctx, run.ID, lib); err != nil {
				return r.stop(ctx, sum, lib, err)
			}
			slog.Debug("checkpoint written", "run", run.ID, "step", lib.Step())
			since = 0
		}
	}

	sum.To = lib.Step()
	if err := r.checkpoint(ctx, run.ID, lib); err != nil {
		return sum, err
	}
	slog.Info("run stopped",
		"run", run.ID,
		"from", sum.From,
		"to", sum.To,
		"steps", sum.Steps,
		"matched", sum.Matched,
		"failed", sum.Failed,
		"done", sum.Done,
	)
	return sum, nil
}

// stop checkpoints after an error so a resume starts where the run left
// off. The checkpoint is written even when ctx is cancelled.
func (r *Runner) stop(ctx context.Context, sum Summary, lib *library.Library, cause error) (Summary, error) {
	sum.To = lib.Step()
	if err := r.checkpoint(context.WithoutCancel(ctx), sum.RunID, lib); err != nil {
		return sum, errors.Join(cause, err)
	}
	return sum, cause
}

// unstored rewinds lib to a step it consumed but never stored, then stops.
func (r *Runner) unstored(ctx context.Context, sum Summary, lib *library.Library, step uint64, cause error) (Summary, error) {
	if err := lib.Seek(step); err != nil {
		return sum, errors.Join(cause, err)
	}
	return r.stop(ctx, sum, lib, cause)
}

func (r *Runner) checkpoint(ctx context.Context, runID string, lib *library.Library) error {
	state, err := lib.State()
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return r.store.WriteCheckpoint(ctx, store.Checkpoint{
		RunID:     runID,
		Step:      lib.Step(),
		State:     state,
		Exhausted: lib.Exhausted(),
	})
}
