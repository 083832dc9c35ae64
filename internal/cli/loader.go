package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/roach88/rxnenum/internal/compiler"
	"github.com/roach88/rxnenum/internal/library"
	"github.com/roach88/rxnenum/internal/loader"
	"github.com/roach88/rxnenum/internal/pool"
	"github.com/roach88/rxnenum/internal/template"
)

// LoadMode controls how errors are handled during spec loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading specs from a directory.
type LoadResult struct {
	Dir       string
	Templates []*template.Definition
	Libraries []*compiler.LibrarySpec
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// TemplateIndex maps template names to definitions.
func (r *LoadResult) TemplateIndex() map[string]*template.Definition {
	return lo.SliceToMap(r.Templates, func(d *template.Definition) (string, *template.Definition) {
		return d.Name, d
	})
}

// Library returns the library named name. An empty name selects the only
// library in the specs.
func (r *LoadResult) Library(name string) (*compiler.LibrarySpec, error) {
	if name == "" {
		switch len(r.Libraries) {
		case 0:
			return nil, &LoadError{Code: ErrCodeNoLibrary, Message: "no libraries found in specs"}
		case 1:
			return r.Libraries[0], nil
		default:
			names := lo.Map(r.Libraries, func(l *compiler.LibrarySpec, _ int) string { return l.Name })
			return nil, &LoadError{Code: ErrCodeNoLibrary, Message: fmt.Sprintf("specs define %d libraries %v: pick one with --library", len(names), names)}
		}
	}
	lib, ok := lo.Find(r.Libraries, func(l *compiler.LibrarySpec) bool { return l.Name == name })
	if !ok {
		return nil, &LoadError{Code: ErrCodeNoLibrary, Message: fmt.Sprintf("library %q not found", name)}
	}
	return lib, nil
}

// LoadError represents an error that occurred during spec loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSpecs loads and compiles CUE specs from a directory.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadSpecs(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		Dir:       dir,
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	failFast := func(err error) bool {
		errs = append(errs, err)
		return mode == LoadModeFailFast
	}

	if err := eachField(value, "template", func(label string, v cue.Value) error {
		def, err := compiler.CompileTemplate(v)
		if err != nil {
			return convertCompileError(err, "template."+label)
		}
		result.Templates = append(result.Templates, def)
		return nil
	}, failFast); err != nil {
		return result, errs
	}

	if err := eachField(value, "library", func(label string, v cue.Value) error {
		spec, err := compiler.CompileLibrary(v)
		if err != nil {
			return convertCompileError(err, "library."+label)
		}
		result.Libraries = append(result.Libraries, spec)
		return nil
	}, failFast); err != nil {
		return result, errs
	}

	if len(result.Templates) == 0 && len(result.Libraries) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no templates or libraries found in specs"})
	}

	return result, errs
}

// errStop ends an eachField walk early in fail-fast mode.
var errStop = errors.New("stop")

// eachField compiles every field of the struct at path. Each compile error
// goes to record; record returns true to stop the walk.
func eachField(value cue.Value, path string, compile func(label string, v cue.Value) error, record func(error) bool) error {
	v := value.LookupPath(cue.ParsePath(path))
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		if record(&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating %s: %v", path, err)}) {
			return errStop
		}
		return nil
	}
	for iter.Next() {
		if err := compile(iter.Selector().Unquoted(), iter.Value()); err != nil {
			if record(err) {
				return errStop
			}
		}
	}
	return nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// BuildLibrary compiles the named library: its template is compiled to CEL
// programs, each pool file is read relative to the specs directory and
// filtered through the template's match expressions.
func BuildLibrary(ctx context.Context, result *LoadResult, name string) (*library.Library, *compiler.LibrarySpec, error) {
	spec, err := result.Library(name)
	if err != nil {
		return nil, nil, err
	}
	if verrs := compiler.ValidateReferences(spec, result.TemplateIndex()); len(verrs) > 0 {
		return nil, nil, &LoadError{Code: verrs[0].Code, Message: verrs[0].Message}
	}
	if verrs := compiler.Validate(spec); len(verrs) > 0 {
		return nil, nil, &LoadError{Code: verrs[0].Code, Message: verrs[0].Message}
	}

	def := result.TemplateIndex()[spec.Template]
	tmpl, err := template.Compile(*def)
	if err != nil {
		return nil, nil, convertCompileError(err, "template."+def.Name)
	}

	pools := make([]*pool.Pool, len(spec.Pools))
	for r, path := range spec.Pools {
		if !filepath.IsAbs(path) {
			path = filepath.Join(result.Dir, path)
		}
		raw, err := loader.Load(path)
		if err != nil {
			return nil, nil, &LoadError{Code: ErrCodePoolLoad, Message: err.Error()}
		}
		if pools[r], err = pool.New(ctx, r, raw, tmpl); err != nil {
			return nil, nil, &LoadError{Code: ErrCodePoolLoad, Message: fmt.Sprintf("pool %s: %v", spec.Pools[r], err)}
		}
	}

	lib, err := library.New(tmpl, pools, spec.Params, spec.Strategy)
	if err != nil {
		return nil, nil, err
	}
	return lib, spec, nil
}

// loadLibrary loads the specs in dir fail-fast and builds one library.
func loadLibrary(cmd *cobra.Command, dir, name string) (*library.Library, *compiler.LibrarySpec, error) {
	result, errs := LoadSpecs(dir, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, nil, errs[0]
	}
	return BuildLibrary(commandContext(cmd), result, name)
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute (tests call RunE directly).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	var exprErr *template.CompileError
	if errors.As(err, &exprErr) {
		return &LoadError{
			Code:    ErrCodeInvalidExpression,
			Message: fmt.Sprintf("%s: %s: %s", context, exprErr.Field, exprErr.Message),
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeScanError     = "E002" // Directory scan error
	ErrCodeNoFiles       = "E003" // No CUE files found
	ErrCodeLoadFailed    = "E004" // CUE load failed
	ErrCodeNotFound      = "E005" // Path not found
	ErrCodeBuildFailed   = "E006" // CUE build failed
	ErrCodeWriteFailed   = "E007" // File write error
	ErrCodeNoLibrary     = "E008" // Library selection failed
	ErrCodePoolLoad      = "E009" // Pool file unreadable or unmatched
	ErrCodeFailureBudget = "E010" // Run stopped by --max-failures
	ErrCodeRunNotFound   = "E011" // Unknown run ID

	// Template errors share the compiler's validation codes
	ErrCodeTemplateName      = compiler.ErrTemplateNameEmpty
	ErrCodeTemplateReactants = compiler.ErrTemplateNoReactant
	ErrCodeTemplateProducts  = compiler.ErrTemplateNoProduct
	ErrCodeInvalidExpression = "E107" // CEL expression does not compile

	// Library errors
	ErrCodeLibraryTemplate = compiler.ErrLibraryNoTemplate
	ErrCodeLibraryPools    = compiler.ErrLibraryNoPools
	ErrCodeInvalidParams   = compiler.ErrNegativeMatchCount
	ErrCodeInvalidStrategy = compiler.ErrUnknownStrategy
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "name":
		return ErrCodeTemplateName
	case strings.HasPrefix(field, "reactants"):
		return ErrCodeTemplateReactants
	case strings.HasPrefix(field, "products"):
		return ErrCodeTemplateProducts
	case field == "filter":
		return ErrCodeInvalidExpression
	case field == "template":
		return ErrCodeLibraryTemplate
	case strings.HasPrefix(field, "pools"):
		return ErrCodeLibraryPools
	case strings.HasPrefix(field, "params"):
		return ErrCodeInvalidParams
	case strings.HasPrefix(field, "strategy"):
		return ErrCodeInvalidStrategy
	default:
		return ErrCodeGeneric
	}
}
