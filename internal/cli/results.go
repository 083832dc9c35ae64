package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/roach88/rxnenum/internal/engine"
	"github.com/roach88/rxnenum/internal/ir"
	"github.com/roach88/rxnenum/internal/store"
)

// ResultsOptions holds flags for the results command.
type ResultsOptions struct {
	*RootOptions
	Database string
	RunID    string
	Matched  bool
	Failed   bool
	Limit    int
}

// RunInfo describes a stored run and its progress.
type RunInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Template string `json:"template"`
	Strategy string `json:"strategy"`
	Sizes    []int  `json:"sizes"`
	Start    uint64 `json:"start"`
	End      uint64 `json:"end,omitempty"`
	Worker   int    `json:"worker"`
	Workers  int    `json:"workers"`
	Step     uint64 `json:"step"`
	Done     bool   `json:"done"`

	Steps    int `json:"steps"`
	Matched  int `json:"matched"`
	Failed   int `json:"failed"`
	Products int `json:"products"`
}

// StepResult is one stored step.
type StepResult struct {
	Step     uint64   `json:"step"`
	Position []int    `json:"position"`
	Matched  bool     `json:"matched"`
	Products []string `json:"products,omitempty"`
	Digest   string   `json:"digest"`
	Error    string   `json:"error,omitempty"`
}

// ResultsOutput is the results command payload.
type ResultsOutput struct {
	Run     RunInfo      `json:"run"`
	Results []StepResult `json:"results"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	var database string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs",
		Long: `List the runs in a run store, oldest first, with their progress.

Example:
  rxnenum runs --db ./runs.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(rootOpts, database, cmd)
		},
	}

	cmd.Flags().StringVar(&database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRuns(opts *RootOptions, database string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	st, err := openStore(database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	infos := make([]RunInfo, 0, len(runs))
	for _, run := range runs {
		info, err := describeRun(cmd, st, run)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read run %s", run.ID), err)
		}
		infos = append(infos, info)
	}

	formatter := newFormatter(opts, cmd)
	if formatter.JSON() {
		return formatter.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs found in database.")
		return nil
	}
	for _, info := range infos {
		printRunInfo(formatter, info)
	}
	return nil
}

// NewResultsCommand creates the results command.
func NewResultsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResultsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show the stored steps of a run",
		Long: `Show a run's stored steps in step order.

Example:
  rxnenum results --db ./runs.db --run 0190e4c2-...
  rxnenum results --db ./runs.db --run 0190e4c2-... --matched --limit 20
  rxnenum results --db ./runs.db --run 0190e4c2-... --failed --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResults(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().BoolVar(&opts.Matched, "matched", false, "only steps that produced products")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "only steps where the template failed")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of steps to show (0 = all)")

	return cmd
}

func runResults(opts *ResultsOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Matched && opts.Failed {
		return NewExitError(ExitCommandError, "--matched and --failed are mutually exclusive")
	}

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrNotFound) {
		_ = formatter.Error(ErrCodeRunNotFound, fmt.Sprintf("run %s not found", opts.RunID), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	info, err := describeRun(cmd, st, run)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	records, err := st.ReadResults(ctx, run.ID, store.ResultFilter{
		MatchedOnly: opts.Matched,
		FailedOnly:  opts.Failed,
		Limit:       opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read results", err)
	}

	out := ResultsOutput{
		Run: info,
		Results: lo.Map(records, func(rec store.ResultRecord, _ int) StepResult {
			return StepResult{
				Step:     rec.Result.Step,
				Position: rec.Result.Position,
				Matched:  rec.Result.Matched,
				Products: lo.Map(rec.Result.Products(), func(p ir.Product, _ int) string { return p.Structure }),
				Digest:   rec.Digest,
				Error:    rec.Error,
			}
		}),
	}

	if formatter.JSON() {
		return formatter.Success(out)
	}

	printRunInfo(formatter, info)
	if len(out.Results) == 0 {
		fmt.Fprintln(formatter.Writer, "  no stored steps match")
		return nil
	}
	fmt.Fprintln(formatter.Writer)
	for _, r := range out.Results {
		pos := engine.Position(r.Position)
		switch {
		case r.Error != "":
			fmt.Fprintf(formatter.Writer, "  %6d %s ✗ %s\n", r.Step, pos, r.Error)
		case r.Matched:
			fmt.Fprintf(formatter.Writer, "  %6d %s → %s\n", r.Step, pos, strings.Join(r.Products, " "))
		default:
			fmt.Fprintf(formatter.Writer, "  %6d %s -\n", r.Step, pos)
		}
	}
	return nil
}

// describeRun combines a run row with its latest checkpoint and counts.
func describeRun(cmd *cobra.Command, st *store.Store, run store.Run) (RunInfo, error) {
	ctx := commandContext(cmd)
	info := RunInfo{
		ID:       run.ID,
		Name:     run.Name,
		Template: run.Template,
		Strategy: run.Strategy,
		Sizes:    run.Sizes,
		Start:    run.StartStep,
		End:      run.EndStep,
		Worker:   run.Worker,
		Workers:  run.Workers,
		Step:     run.StartStep,
	}

	cp, err := st.LatestCheckpoint(ctx, run.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return RunInfo{}, err
	default:
		info.Step = cp.Step
		info.Done = cp.Exhausted || (run.Bounded() && cp.Step >= run.EndStep)
	}

	counts, err := st.CountResults(ctx, run.ID)
	if err != nil {
		return RunInfo{}, err
	}
	info.Steps = counts.Steps
	info.Matched = counts.Matched
	info.Failed = counts.Failed
	info.Products = counts.Products
	return info, nil
}

func printRunInfo(formatter *OutputFormatter, info RunInfo) {
	status := "paused"
	if info.Done {
		status = "done"
	}
	fmt.Fprintf(formatter.Writer, "%s %s (%s, %s) %s\n", info.ID, info.Name, info.Template, info.Strategy, status)
	span := fmt.Sprintf("from %d", info.Start)
	if info.End > 0 {
		span = engine.Range{Start: info.Start, End: info.End}.String()
	}
	if info.Workers > 1 {
		span += fmt.Sprintf(" worker %d/%d", info.Worker, info.Workers)
	}
	fmt.Fprintf(formatter.Writer, "  %s at step %d: %d stored, %d matched, %d failed, %d product(s)\n",
		span, info.Step, info.Steps, info.Matched, info.Failed, info.Products)
}
