package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/rxnenum/internal/template"
)

// CompileTemplate parses a CUE value into a template Definition.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the template struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`template: amide: { ... }`)
//	def, err := CompileTemplate(v.LookupPath(cue.ParsePath("template.amide")))
//
// Expressions are carried as source text; template.Compile type-checks
// them.
func CompileTemplate(v cue.Value) (*template.Definition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &template.Definition{}

	// Template name from struct label
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	reactantsVal := v.LookupPath(cue.ParsePath("reactants"))
	if !reactantsVal.Exists() {
		return nil, &CompileError{
			Field:   "reactants",
			Message: "reactants are required",
			Pos:     v.Pos(),
		}
	}
	iter, err := reactantsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		rv := iter.Value()
		r := template.Reactant{}
		if r.Name, err = requiredString(rv, "name", fmt.Sprintf("reactants[%d].name", i)); err != nil {
			return nil, err
		}
		if r.Match, err = optionalString(rv, "match"); err != nil {
			return nil, err
		}
		if r.Sites, err = optionalString(rv, "sites"); err != nil {
			return nil, err
		}
		def.Reactants = append(def.Reactants, r)
	}
	if len(def.Reactants) == 0 {
		return nil, &CompileError{
			Field:   "reactants",
			Message: "at least one reactant role is required",
			Pos:     reactantsVal.Pos(),
		}
	}

	productsVal := v.LookupPath(cue.ParsePath("products"))
	if !productsVal.Exists() {
		return nil, &CompileError{
			Field:   "products",
			Message: "products are required",
			Pos:     v.Pos(),
		}
	}
	iter, err = productsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		pv := iter.Value()
		p := template.Product{}
		if p.Name, err = requiredString(pv, "name", fmt.Sprintf("products[%d].name", i)); err != nil {
			return nil, err
		}
		if p.Expr, err = requiredString(pv, "expr", fmt.Sprintf("products[%d].expr", i)); err != nil {
			return nil, err
		}
		def.Products = append(def.Products, p)
	}
	if len(def.Products) == 0 {
		return nil, &CompileError{
			Field:   "products",
			Message: "at least one product role is required",
			Pos:     productsVal.Pos(),
		}
	}

	if def.Filter, err = optionalString(v, "filter"); err != nil {
		return nil, err
	}

	return def, nil
}

func requiredString(v cue.Value, path, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, path string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}
