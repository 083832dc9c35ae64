package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rxnenum/internal/ir"
	"github.com/roach88/rxnenum/internal/library"
	"github.com/roach88/rxnenum/internal/store"
	"github.com/roach88/rxnenum/internal/template"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
	Limit    int
}

// ReplayMismatch is a stored step the library no longer reproduces.
type ReplayMismatch struct {
	Step uint64 `json:"step"`
	Want string `json:"want"`
	Got  string `json:"got"`
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string           `json:"run_id"`
	Name          string           `json:"name"`
	Checked       int              `json:"checked"`
	Mismatches    []ReplayMismatch `json:"mismatches,omitempty"`
	Deterministic bool             `json:"deterministic"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Recompute stored steps and verify determinism",
		Long: `Rebuild each run's library from its stored blob, recompute every stored
step, and compare the result digests with the stored ones.

Exit codes:
  0 - All runs reproduce their stored results
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  rxnenum replay --db ./runs.db
  rxnenum replay --db ./runs.db --run 0190e4c2-...
  rxnenum replay --db ./runs.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "check at most this many steps per run (0 = all)")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	var runs []store.Run
	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, store.ErrNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("%s: run %s not found", ErrCodeRunNotFound, opts.RunID))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		runs = []store.Run{run}
	} else {
		runs, err = st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}
	if len(runs) == 0 && opts.Format != "json" {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found in database.")
		return nil
	}

	for _, run := range runs {
		runResult, err := replayRun(ctx, st, run, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", run.ID), err)
		}
		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// replayRun recomputes the stored steps of run in step order. A failed
// step must fail again with the same message; any other step must
// reproduce its digest.
func replayRun(ctx context.Context, st *store.Store, run store.Run, limit int) (ReplayRunResult, error) {
	lib, err := library.Restore(run.Library, template.Decode)
	if err != nil {
		return ReplayRunResult{}, err
	}
	records, err := st.ReadResults(ctx, run.ID, store.ResultFilter{Limit: limit})
	if err != nil {
		return ReplayRunResult{}, err
	}

	out := ReplayRunResult{RunID: run.ID, Name: run.Name, Deterministic: true}
	for _, rec := range records {
		step := rec.Result.Step
		switch {
		case step > lib.Step():
			err = lib.Skip(step - lib.Step())
		case step < lib.Step():
			err = lib.Seek(step)
		}
		if err != nil {
			return out, fmt.Errorf("position at step %d: %w", step, err)
		}

		res, err := lib.Next(ctx)
		var te *library.TemplateError
		var got string
		switch {
		case errors.As(err, &te):
			got = err.Error()
		case err != nil:
			return out, fmt.Errorf("step %d: %w", step, err)
		default:
			if got, err = ir.ResultDigest(res); err != nil {
				return out, err
			}
		}

		want := rec.Digest
		if rec.Error != "" {
			want = rec.Error
		}
		out.Checked++
		if got != want {
			out.Deterministic = false
			out.Mismatches = append(out.Mismatches, ReplayMismatch{Step: step, Want: want, Got: got})
		}
	}
	return out, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Run: %s (%s)\n", status, run.RunID, run.Name)
		fmt.Fprintf(w, "  Steps checked: %d\n", run.Checked)

		if !run.Deterministic {
			fmt.Fprintf(w, "  Warning: %d step(s) differ\n", len(run.Mismatches))
			if verbose {
				for _, m := range run.Mismatches {
					fmt.Fprintf(w, "    step %d: stored %s, got %s\n", m.Step, m.Want, m.Got)
				}
			}
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
