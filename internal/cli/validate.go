package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/rxnenum/internal/compiler"
	"github.com/roach88/rxnenum/internal/template"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Templates []TemplateSummary          `json:"templates,omitempty"`
	Libraries []LibrarySummary           `json:"libraries,omitempty"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
}

// TemplateSummary describes a template's roles.
type TemplateSummary struct {
	Name      string   `json:"name"`
	Reactants []string `json:"reactants"`
	Products  []string `json:"products"`
	Filter    bool     `json:"filter"`
}

// LibrarySummary describes a library block.
type LibrarySummary struct {
	Name     string   `json:"name"`
	Template string   `json:"template"`
	Pools    []string `json:"pools"`
	Strategy string   `json:"strategy"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate templates and libraries",
		Long: `Validate CUE templates and library blocks without reading pools.

Checks the CUE schema, type-checks every CEL expression, and resolves
library references against the declared templates. Prints each template's
reactant and product roles.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	slog.Debug("found CUE files", "count", loadResult.FileCount, "dir", specsDir)

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		validationErrors = append(validationErrors, loadToValidation(err))
	}
	validationErrors = append(validationErrors, validateAll(loadResult, formatter)...)

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}
	return outputValidateSuccess(formatter, summarize(loadResult))
}

// validateAll runs schema checks on every compiled template and library,
// type-checks template expressions, and resolves library references.
func validateAll(result *LoadResult, formatter *OutputFormatter) []compiler.ValidationError {
	var allErrors []compiler.ValidationError

	for _, def := range result.Templates {
		slog.Debug("validating template", "template", def.Name)
		errs := compiler.Validate(def)
		allErrors = append(allErrors, errs...)
		if len(errs) > 0 {
			continue
		}
		if _, err := template.Compile(*def); err != nil {
			allErrors = append(allErrors, loadToValidation(convertCompileError(err, "template."+def.Name)))
		}
	}

	templates := result.TemplateIndex()
	for _, lib := range result.Libraries {
		slog.Debug("validating library", "library", lib.Name)
		allErrors = append(allErrors, compiler.Validate(lib)...)
		allErrors = append(allErrors, compiler.ValidateReferences(lib, templates)...)
	}

	return allErrors
}

// loadToValidation converts a loader error to a validation error.
func loadToValidation(err error) compiler.ValidationError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return compiler.ValidationError{
			Field:   "load",
			Message: loadErr.Message,
			Code:    loadErr.Code,
			Line:    getLineFromCuePos(loadErr.Pos),
		}
	}
	return compiler.ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric}
}

// getLineFromCuePos extracts line number from a token.Pos.
func getLineFromCuePos(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

func summarize(result *LoadResult) ValidationResult {
	out := ValidationResult{Valid: true}
	for _, def := range result.Templates {
		s := TemplateSummary{Name: def.Name, Filter: def.Filter != ""}
		for _, r := range def.Reactants {
			s.Reactants = append(s.Reactants, r.Name)
		}
		for _, p := range def.Products {
			s.Products = append(s.Products, p.Name)
		}
		out.Templates = append(out.Templates, s)
	}
	for _, lib := range result.Libraries {
		out.Libraries = append(out.Libraries, LibrarySummary{
			Name:     lib.Name,
			Template: lib.Template,
			Pools:    lib.Pools,
			Strategy: lib.Strategy.String(),
		})
	}
	return out
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ All specs valid")
	if len(result.Templates) > 0 {
		fmt.Fprintln(formatter.Writer)
		fmt.Fprintln(formatter.Writer, "Templates:")
		for _, t := range result.Templates {
			fmt.Fprintf(formatter.Writer, "  %s: %d reactant(s) [%s] → %d product(s) [%s]\n",
				t.Name,
				len(t.Reactants), strings.Join(t.Reactants, ", "),
				len(t.Products), strings.Join(t.Products, ", "))
		}
	}
	if len(result.Libraries) > 0 {
		fmt.Fprintln(formatter.Writer)
		fmt.Fprintln(formatter.Writer, "Libraries:")
		for _, l := range result.Libraries {
			fmt.Fprintf(formatter.Writer, "  %s: %s over %d pool(s), %s\n",
				l.Name, l.Template, len(l.Pools), l.Strategy)
		}
	}
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.JSON() {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// ValidateSpecsDir validates all specs in a directory.
func ValidateSpecsDir(specsDir string) ([]compiler.ValidationError, error) {
	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	var errs []compiler.ValidationError
	for _, err := range loadErrors {
		errs = append(errs, loadToValidation(err))
	}
	silent := &OutputFormatter{Format: "text", Writer: io.Discard}
	return append(errs, validateAll(loadResult, silent)...), nil
}
