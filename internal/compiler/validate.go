package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/rxnenum/internal/engine"
	"github.com/roach88/rxnenum/internal/template"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedType = "E100" // unsupported type for validation

	// Template errors (E101-E109)
	ErrTemplateNameEmpty  = "E101" // template name is required
	ErrTemplateNoReactant = "E102" // at least one reactant role required
	ErrTemplateNoProduct  = "E103" // at least one product role required
	ErrInvalidRoleName    = "E104" // role name is not an identifier
	ErrDuplicateName      = "E105" // duplicate role name
	ErrEmptyExpression    = "E106" // product expression is required

	// Library errors (E110-E119)
	ErrLibraryNoTemplate  = "E110" // template reference is required
	ErrLibraryNoPools     = "E111" // at least one pool required
	ErrEmptyPoolPath      = "E112" // pool path is empty
	ErrNegativeMatchCount = "E113" // reagent_max_match_count < 0
	ErrUnknownTemplate    = "E114" // template reference does not resolve
	ErrPoolCountMismatch  = "E115" // pools do not match reactant roles
	ErrFilterRequired     = "E116" // filtered strategy needs a template filter
	ErrUnknownStrategy    = "E117" // strategy kind not in the closed set
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates compiled definitions against schema rules.
// Returns all errors found (does not fail-fast).
// Supports template Definitions and LibrarySpecs.
func Validate(v any) []ValidationError {
	switch def := v.(type) {
	case *template.Definition:
		return validateTemplate(def)
	case template.Definition:
		return validateTemplate(&def)
	case *LibrarySpec:
		return validateLibrary(def)
	case LibrarySpec:
		return validateLibrary(&def)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

// ValidateReferences checks a library against the templates it can refer
// to: the template must exist, every reactant role needs exactly one pool,
// and a filtered walk needs a template filter.
func ValidateReferences(lib *LibrarySpec, templates map[string]*template.Definition) []ValidationError {
	def, ok := templates[lib.Template]
	if !ok {
		return []ValidationError{{
			Field:   "template",
			Message: fmt.Sprintf("library %q refers to unknown template %q", lib.Name, lib.Template),
			Code:    ErrUnknownTemplate,
		}}
	}

	var errs []ValidationError
	if len(lib.Pools) != len(def.Reactants) {
		errs = append(errs, ValidationError{
			Field:   "pools",
			Message: fmt.Sprintf("template %q declares %d reactant roles, library %q lists %d pools", def.Name, len(def.Reactants), lib.Name, len(lib.Pools)),
			Code:    ErrPoolCountMismatch,
		})
	}
	if lib.Strategy.Kind == engine.KindFiltered && strings.TrimSpace(def.Filter) == "" {
		errs = append(errs, ValidationError{
			Field:   "strategy.kind",
			Message: fmt.Sprintf("filtered strategy requires template %q to declare a filter", def.Name),
			Code:    ErrFilterRequired,
		})
	}
	return errs
}

// validateTemplate validates a template definition. Expressions are
// type-checked by template.Compile, not here.
func validateTemplate(def *template.Definition) []ValidationError {
	var errs []ValidationError

	// E101: name is required
	if strings.TrimSpace(def.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "template name is required and must be non-empty",
			Code:    ErrTemplateNameEmpty,
		})
	}

	// E102: at least one reactant role
	if len(def.Reactants) == 0 {
		errs = append(errs, ValidationError{
			Field:   "reactants",
			Message: "at least one reactant role is required",
			Code:    ErrTemplateNoReactant,
		})
	}

	// E103: at least one product role
	if len(def.Products) == 0 {
		errs = append(errs, ValidationError{
			Field:   "products",
			Message: "at least one product role is required",
			Code:    ErrTemplateNoProduct,
		})
	}

	names := make(map[string]bool)
	checkName := func(field, name string) {
		if !isValidRoleName(name) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid role name %q, expected an identifier", name),
				Code:    ErrInvalidRoleName,
			})
		}
		if names[name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate role name: %q", name),
				Code:    ErrDuplicateName,
			})
		}
		names[name] = true
	}

	for i, r := range def.Reactants {
		checkName(fmt.Sprintf("reactants[%d].name", i), r.Name)
	}
	for i, p := range def.Products {
		checkName(fmt.Sprintf("products[%d].name", i), p.Name)

		// E106: product expression is required
		if strings.TrimSpace(p.Expr) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("products[%d].expr", i),
				Message: fmt.Sprintf("product %q has no expression", p.Name),
				Code:    ErrEmptyExpression,
			})
		}
	}

	return errs
}

// validateLibrary validates a library spec on its own.
func validateLibrary(lib *LibrarySpec) []ValidationError {
	var errs []ValidationError

	// E110: template reference is required
	if strings.TrimSpace(lib.Template) == "" {
		errs = append(errs, ValidationError{
			Field:   "template",
			Message: "template reference is required",
			Code:    ErrLibraryNoTemplate,
		})
	}

	// E111: at least one pool
	if len(lib.Pools) == 0 {
		errs = append(errs, ValidationError{
			Field:   "pools",
			Message: "at least one pool is required",
			Code:    ErrLibraryNoPools,
		})
	}

	// E112: pool paths are non-empty
	for i, path := range lib.Pools {
		if strings.TrimSpace(path) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("pools[%d]", i),
				Message: "pool path is empty",
				Code:    ErrEmptyPoolPath,
			})
		}
	}

	// E113: match count is a cap, not a negative number
	if lib.Params.ReagentMaxMatchCount < 0 {
		errs = append(errs, ValidationError{
			Field:   "params.reagent_max_match_count",
			Message: fmt.Sprintf("reagent_max_match_count must be >= 0, got %d", lib.Params.ReagentMaxMatchCount),
			Code:    ErrNegativeMatchCount,
		})
	}

	// E117: strategy kind
	if lib.Strategy.Kind != "" {
		if _, err := engine.ParseKind(string(lib.Strategy.Kind)); err != nil {
			errs = append(errs, ValidationError{
				Field:   "strategy.kind",
				Message: err.Error(),
				Code:    ErrUnknownStrategy,
			})
		}
	}

	return errs
}

// roleNamePattern matches identifiers usable as role labels.
var roleNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func isValidRoleName(name string) bool {
	return roleNamePattern.MatchString(name)
}
