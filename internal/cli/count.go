package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rxnenum/internal/engine"
)

// CountOptions holds flags for the count command.
type CountOptions struct {
	*RootOptions
	Library string
	Exact   bool
}

// CountResult reports the size of a library's walk.
type CountResult struct {
	Library      string `json:"library"`
	Strategy     string `json:"strategy"`
	Sizes        []int  `json:"sizes"`
	Rejected     []int  `json:"rejected"`
	Permutations uint64 `json:"permutations"`

	// Total is the number of steps the walk yields. Nil for random walks,
	// and for filtered walks unless --exact was given.
	Total *uint64 `json:"total,omitempty"`
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count <specs-dir>",
		Short: "Count the combinations of a library",
		Long: `Load a library's pools and report pool sizes, rejected reagents, and the
number of steps its walk yields.

Random walks never exhaust, so they report only the permutation count.
Filtered walks report it too, unless --exact walks the filter over every
position.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Library, "library", "", "library name (defaults to the only library)")
	cmd.Flags().BoolVar(&opts.Exact, "exact", false, "walk a filtered library to count accepted positions")

	return cmd
}

func runCount(opts *CountOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	lib, spec, err := loadLibrary(cmd, specsDir, opts.Library)
	if err != nil {
		return formatter.FailLoad(err)
	}

	perms, err := lib.Sizes().Total()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	result := CountResult{
		Library:      spec.Name,
		Strategy:     lib.Spec().String(),
		Sizes:        lib.Sizes(),
		Rejected:     lib.Rejected(),
		Permutations: perms,
	}

	switch total, err := lib.Total(); {
	case err == nil:
		result.Total = &total
	case engine.IsUnsupported(err) && opts.Exact && lib.Spec().Kind == engine.KindFiltered:
		ctx := commandContext(cmd)
		walk := lib.Clone()
		var n uint64
		for !walk.Exhausted() {
			if err := ctx.Err(); err != nil {
				return WrapExitError(ExitCommandError, "count interrupted", err)
			}
			if err := walk.Skip(1); err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
			}
			n++
		}
		result.Total = &n
	case engine.IsUnsupported(err):
	default:
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "Library %s (%s)\n", result.Library, result.Strategy)
	for r := range result.Sizes {
		fmt.Fprintf(formatter.Writer, "  role %d: %d reagent(s), %d rejected\n", r, result.Sizes[r], result.Rejected[r])
	}
	fmt.Fprintf(formatter.Writer, "Permutations: %d\n", result.Permutations)
	switch {
	case result.Total != nil:
		fmt.Fprintf(formatter.Writer, "Steps: %d\n", *result.Total)
	case lib.Spec().Kind == engine.KindFiltered:
		fmt.Fprintf(formatter.Writer, "Steps: at most %d (--exact to count)\n", result.Permutations)
	default:
		fmt.Fprintln(formatter.Writer, "Steps: unbounded")
	}
	return nil
}
