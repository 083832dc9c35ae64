package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rxnenum/internal/engine"
)

// PartitionOptions holds flags for the partition command.
type PartitionOptions struct {
	*RootOptions
	Library string
	Workers int
}

// PartitionRange is one worker's share of a walk.
type PartitionRange struct {
	Worker   int    `json:"worker"`
	Start    uint64 `json:"start"`
	End      uint64 `json:"end"`
	Len      uint64 `json:"len"`
	Position []int  `json:"position,omitempty"`
}

// PartitionResult lists the ranges of a partitioned walk.
type PartitionResult struct {
	Library string           `json:"library"`
	Total   uint64           `json:"total"`
	Ranges  []PartitionRange `json:"ranges"`
}

// NewPartitionCommand creates the partition command.
func NewPartitionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PartitionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "partition <specs-dir>",
		Short: "Split a library's walk across workers",
		Long: `Split a cartesian walk into contiguous, disjoint step ranges that cover
it exactly, one per worker, and print each range with its first position.

Run worker i with:
  rxnenum run <specs-dir> --db <db> --workers n --worker i`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPartition(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Library, "library", "", "library name (defaults to the only library)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "number of workers")

	return cmd
}

func runPartition(opts *PartitionOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	lib, spec, err := loadLibrary(cmd, specsDir, opts.Library)
	if err != nil {
		return formatter.FailLoad(err)
	}

	parts, ranges, err := lib.Partition(opts.Workers)
	if err != nil {
		if engine.IsUnsupported(err) || engine.IsInvalidConfiguration(err) {
			return formatter.Fail(ExitCommandError, ErrCodeInvalidStrategy, err.Error())
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	result := PartitionResult{Library: spec.Name}
	for i, r := range ranges {
		pr := PartitionRange{Worker: i, Start: r.Start, End: r.End, Len: r.Len()}
		if r.Len() > 0 {
			pr.Position = parts[i].Position()
		}
		result.Ranges = append(result.Ranges, pr)
		result.Total += r.Len()
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "Library %s: %d step(s) over %d worker(s)\n\n", result.Library, result.Total, len(result.Ranges))
	for _, r := range result.Ranges {
		if r.Len == 0 {
			fmt.Fprintf(formatter.Writer, "  worker %d: %s empty\n", r.Worker, engine.Range{Start: r.Start, End: r.End})
			continue
		}
		fmt.Fprintf(formatter.Writer, "  worker %d: %s %d step(s), from %s\n",
			r.Worker, engine.Range{Start: r.Start, End: r.End}, r.Len, engine.Position(r.Position))
	}
	return nil
}
