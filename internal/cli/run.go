package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/rxnenum/internal/engine"
	"github.com/roach88/rxnenum/internal/runner"
	"github.com/roach88/rxnenum/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database        string
	Library         string
	Name            string
	Limit           uint64
	Skip            uint64
	CheckpointEvery uint64
	MaxFailures     int
	Workers         int
	Worker          int

	// IDGenerator allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator runner.IDGenerator
}

// RunResult reports one execution of a run.
type RunResult struct {
	RunID       string `json:"run_id"`
	Name        string `json:"name"`
	From        uint64 `json:"from"`
	To          uint64 `json:"to"`
	Steps       int    `json:"steps"`
	Matched     int    `json:"matched"`
	Failed      int    `json:"failed"`
	Products    int    `json:"products"`
	Done        bool   `json:"done"`
	Interrupted bool   `json:"interrupted,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <specs-dir>",
		Short: "Enumerate a library into the run store",
		Long: `Build a library from its specs and enumerate it into a SQLite run store
(created if it doesn't exist).

Every step is stored as one result row. The cursor is checkpointed every
--checkpoint-every steps and when the run stops, so an interrupted run
continues with 'rxnenum resume'. Template failures are stored and the walk
continues, unless --max-failures is exceeded.

Example:
  rxnenum run --db ./runs.db ./specs
  rxnenum run --db ./runs.db ./specs --library amides --limit 10000
  rxnenum run --db ./runs.db ./specs --workers 4 --worker 2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnumerate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Library, "library", "", "library name (defaults to the only library)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "run label (defaults to the library name)")
	cmd.Flags().Uint64Var(&opts.Limit, "limit", 0, "stop after this many steps (0 = no limit)")
	cmd.Flags().Uint64Var(&opts.Skip, "skip", 0, "skip this many steps before the first stored step")
	cmd.Flags().Uint64Var(&opts.CheckpointEvery, "checkpoint-every", runner.DefaultCheckpointEvery, "steps between checkpoints (0 = only on stop)")
	cmd.Flags().IntVar(&opts.MaxFailures, "max-failures", 0, "stop after more than this many template failures (0 = never)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "split the walk into this many ranges")
	cmd.Flags().IntVar(&opts.Worker, "worker", 0, "range to run, 0-based (with --workers)")

	return cmd
}

func runEnumerate(opts *RunOptions, specsDir string, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())

	if opts.Workers < 1 || opts.Worker < 0 || opts.Worker >= opts.Workers {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid worker %d of %d", opts.Worker, opts.Workers))
	}

	slog.Info("loading library", "dir", specsDir, "library", opts.Library)
	lib, spec, err := loadLibrary(cmd, specsDir, opts.Library)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load library", err)
	}

	plan := runner.Plan{
		Name:    spec.Name,
		Library: lib,
		Worker:  opts.Worker,
		Workers: opts.Workers,
	}
	if opts.Name != "" {
		plan.Name = opts.Name
	}

	if opts.Workers > 1 {
		parts, ranges, err := lib.Partition(opts.Workers)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to partition library", err)
		}
		r := ranges[opts.Worker]
		plan.Library = parts[opts.Worker]
		plan.End = r.End
		slog.Info("partition selected", "worker", opts.Worker, "workers", opts.Workers, "range", r.String())
		if opts.Skip > r.Len() {
			return NewExitError(ExitCommandError, fmt.Sprintf("--skip %d exceeds the worker's %d steps", opts.Skip, r.Len()))
		}
	}
	if opts.Skip > 0 {
		if err := plan.Library.Skip(opts.Skip); err != nil {
			return WrapExitError(ExitCommandError, "failed to skip", err)
		}
	}

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	r := runner.New(st, runnerOptions(opts)...)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	run, err := r.Start(ctx, plan)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start run", err)
	}
	sum, err := r.Execute(ctx, run, plan.Library, opts.Limit)
	return finishRun(opts.RootOptions, cmd, run.Name, sum, err)
}

func runnerOptions(opts *RunOptions) []runner.Option {
	out := []runner.Option{
		runner.WithCheckpointEvery(opts.CheckpointEvery),
		runner.WithMaxFailures(opts.MaxFailures),
	}
	if opts.IDGenerator != nil {
		out = append(out, runner.WithIDGenerator(opts.IDGenerator))
	}
	return out
}

// finishRun prints the summary of an Execute call and maps its error to an
// exit code. An interrupted run is not an error: its checkpoint is stored.
func finishRun(opts *RootOptions, cmd *cobra.Command, name string, sum runner.Summary, err error) error {
	interrupted := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	var budgetErr *runner.FailureBudgetExceededError
	switch {
	case err == nil, interrupted, errors.As(err, &budgetErr):
	case engine.IsInvalidConfiguration(err):
		return WrapExitError(ExitCommandError, "invalid run", err)
	default:
		return WrapExitError(ExitFailure, "run failed", err)
	}

	result := RunResult{
		RunID:       sum.RunID,
		Name:        name,
		From:        sum.From,
		To:          sum.To,
		Steps:       sum.Steps,
		Matched:     sum.Matched,
		Failed:      sum.Failed,
		Products:    sum.Products,
		Done:        sum.Done,
		Interrupted: interrupted,
	}

	formatter := newFormatter(opts, cmd)
	if formatter.JSON() {
		if budgetErr == nil {
			return formatter.Success(result)
		}
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: ErrCodeFailureBudget, Message: budgetErr.Error()},
		}
		if err := json.NewEncoder(formatter.Writer).Encode(response); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, "run stopped", budgetErr)
	}

	status := "paused"
	switch {
	case budgetErr != nil:
		status = "stopped"
	case result.Done:
		status = "done"
	case result.Interrupted:
		status = "interrupted"
	}
	fmt.Fprintf(formatter.Writer, "Run %s (%s): %s\n", result.RunID, result.Name, status)
	fmt.Fprintf(formatter.Writer, "  steps %d..%d: %d stored, %d matched, %d failed, %d product(s)\n",
		result.From, result.To, result.Steps, result.Matched, result.Failed, result.Products)
	if !result.Done {
		fmt.Fprintf(formatter.Writer, "  continue with: rxnenum resume --run %s\n", result.RunID)
	}
	if budgetErr != nil {
		_ = formatter.Error(ErrCodeFailureBudget, budgetErr.Error(), nil)
		return WrapExitError(ExitFailure, "run stopped", budgetErr)
	}
	return nil
}

// signalContext cancels on SIGINT or SIGTERM. The command's context is the
// parent when set (tests cancel through it).
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(commandContext(cmd))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func openStore(path string) (*store.Store, error) {
	slog.Debug("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
