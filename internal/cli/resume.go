package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/rxnenum/internal/engine"
	"github.com/roach88/rxnenum/internal/runner"
	"github.com/roach88/rxnenum/internal/store"
	"github.com/roach88/rxnenum/internal/template"
)

// ResumeOptions holds flags for the resume command.
type ResumeOptions struct {
	*RootOptions
	Database        string
	RunID           string
	Limit           uint64
	CheckpointEvery uint64
	MaxFailures     int
}

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResumeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Continue a stored run from its last checkpoint",
		Long: `Continue a run from its latest checkpoint.

The library is rebuilt from the blob stored with the run, so neither the
spec directory nor the pool files are needed. Steps already stored are
not recomputed.

Example:
  rxnenum resume --db ./runs.db --run 0190e4c2-...
  rxnenum resume --db ./runs.db --run 0190e4c2-... --limit 5000`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().Uint64Var(&opts.Limit, "limit", 0, "stop after this many steps (0 = no limit)")
	cmd.Flags().Uint64Var(&opts.CheckpointEvery, "checkpoint-every", runner.DefaultCheckpointEvery, "steps between checkpoints (0 = only on stop)")
	cmd.Flags().IntVar(&opts.MaxFailures, "max-failures", 0, "stop after more than this many template failures (0 = never)")

	return cmd
}

func runResume(opts *ResumeOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: run %s not found", ErrCodeRunNotFound, opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	slog.Info("resuming run", "run", run.ID, "name", run.Name, "strategy", run.Strategy)

	r := runner.New(st,
		runner.WithCheckpointEvery(opts.CheckpointEvery),
		runner.WithMaxFailures(opts.MaxFailures),
	)
	sum, err := r.Resume(ctx, run.ID, template.Decode, opts.Limit)
	if engine.IsCorruptState(err) {
		return WrapExitError(ExitCommandError, "stored run cannot be restored", err)
	}
	return finishRun(opts.RootOptions, cmd, run.Name, sum, err)
}
