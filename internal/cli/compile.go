package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/rxnenum/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Library string
	Output  string // output file path
}

// CompilationResult describes a compiled library blob.
type CompilationResult struct {
	Library  string   `json:"library"`
	Template string   `json:"template"`
	Strategy string   `json:"strategy"`
	Sizes    []int    `json:"sizes"`
	Rejected []int    `json:"rejected"`
	Digest   string   `json:"digest"`
	Bytes    int      `json:"bytes"`
	Output   string   `json:"output,omitempty"`
	Pools    []string `json:"pools"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile a library to a self-contained blob",
		Long: `Compile a library block, its template and its pools into one canonical
JSON blob.

The blob carries the template definition, the filtered pools, the params
and the cursor state, so it can be restored without the spec directory or
the pool files.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Library, "library", "", "library name (defaults to the only library)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	lib, spec, err := loadLibrary(cmd, specsDir, opts.Library)
	if err != nil {
		return formatter.FailLoad(err)
	}

	blob, err := lib.Serialize()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("serializing library: %v", err))
	}

	result := CompilationResult{
		Library:  spec.Name,
		Template: spec.Template,
		Strategy: lib.Spec().String(),
		Sizes:    lib.Sizes(),
		Rejected: lib.Rejected(),
		Digest:   ir.HashWithDomain(ir.DomainLibrary, blob),
		Bytes:    len(blob),
		Output:   opts.Output,
		Pools:    spec.Pools,
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, blob, 0644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled library %s (%s, %s)\n\n", result.Library, result.Template, result.Strategy)
	for r, path := range result.Pools {
		fmt.Fprintf(formatter.Writer, "  role %d: %s: %d reagent(s), %d rejected\n", r, path, result.Sizes[r], result.Rejected[r])
	}
	fmt.Fprintf(formatter.Writer, "\nDigest: %s (%d bytes)\n", result.Digest, result.Bytes)
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "Wrote library to %s\n", opts.Output)
	}
	return nil
}
