// Package template implements reaction templates as CEL programs.
//
// A template declares reactant roles and product roles:
//
//   - each reactant role has a match expression over c, the candidate as a
//     map {id, structure, props}, returning bool; and an optional sites
//     expression over c returning the number of places the candidate can
//     react (default 1)
//   - each product role has an expression over r, the list of candidate
//     maps in role order, and site, the list of chosen site indices,
//     returning the product structure as a string ("" means no product)
//   - an optional filter expression over r decides whether a tuple is worth
//     applying at all; it backs the filtered enumeration strategy
//
// Apply expands every combination of reactant sites, so a reagent that
// matches twice yields two products per product role. The number of sites
// per reagent is capped by Params.ReagentMaxMatchCount.
//
// Templates are pure: expressions see only the tuple.
package template

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/roach88/rxnenum/internal/engine"
	"github.com/roach88/rxnenum/internal/ir"
	"github.com/roach88/rxnenum/internal/library"
)

// ErrNoMatch is the library's non-match signal.
var ErrNoMatch = library.ErrNoMatch

// Definition is the source form of a template.
type Definition struct {
	Name      string
	Reactants []Reactant
	Products  []Product
	Filter    string
}

// Reactant declares one reactant role.
type Reactant struct {
	Name  string
	Match string
	Sites string
}

// Product declares one product role.
type Product struct {
	Name string
	Expr string
}

// Template is a compiled Definition. Safe for concurrent use.
type Template struct {
	def      Definition
	match    []cel.Program
	sites    []cel.Program
	products []cel.Program
	filter   cel.Program
}

var (
	_ library.Template       = (*Template)(nil)
	_ library.PositionFilter = (*Template)(nil)
	_ library.Definer        = (*Template)(nil)
)

// Compile type-checks every expression and builds the programs.
func Compile(def Definition) (*Template, error) {
	if def.Name == "" {
		return nil, &CompileError{Field: "name", Message: "template name is required"}
	}
	if len(def.Reactants) == 0 {
		return nil, &CompileError{Field: "reactants", Message: "at least one reactant role is required"}
	}
	if len(def.Products) == 0 {
		return nil, &CompileError{Field: "products", Message: "at least one product role is required"}
	}

	envs, err := newEnvs()
	if err != nil {
		return nil, err
	}

	t := &Template{
		def:      def,
		match:    make([]cel.Program, len(def.Reactants)),
		sites:    make([]cel.Program, len(def.Reactants)),
		products: make([]cel.Program, len(def.Products)),
	}
	for i, r := range def.Reactants {
		field := fmt.Sprintf("reactants[%d]", i)
		if r.Match != "" {
			if t.match[i], err = compileExpr(envs.candidate, r.Match, cel.BoolType, field+".match"); err != nil {
				return nil, err
			}
		}
		if r.Sites != "" {
			if t.sites[i], err = compileExpr(envs.candidate, r.Sites, cel.IntType, field+".sites"); err != nil {
				return nil, err
			}
		}
	}
	for i, p := range def.Products {
		field := fmt.Sprintf("products[%d].expr", i)
		if p.Expr == "" {
			return nil, &CompileError{Field: field, Message: "product expression is required"}
		}
		if t.products[i], err = compileExpr(envs.product, p.Expr, cel.StringType, field); err != nil {
			return nil, err
		}
	}
	if def.Filter != "" {
		if t.filter, err = compileExpr(envs.tuple, def.Filter, cel.BoolType, "filter"); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Name implements library.Template.
func (t *Template) Name() string { return t.def.Name }

// ReactantCount implements library.Template.
func (t *Template) ReactantCount() int { return len(t.def.Reactants) }

// ProductCount implements library.Template.
func (t *Template) ProductCount() int { return len(t.def.Products) }

// ReactantNames returns the reactant role labels in role order.
func (t *Template) ReactantNames() []string {
	out := make([]string, len(t.def.Reactants))
	for i, r := range t.def.Reactants {
		out[i] = r.Name
	}
	return out
}

// ProductNames returns the product role labels in role order.
func (t *Template) ProductNames() []string {
	out := make([]string, len(t.def.Products))
	for i, p := range t.def.Products {
		out[i] = p.Name
	}
	return out
}

// HasFilter reports whether the template declares a tuple filter.
func (t *Template) HasFilter() bool { return t.filter != nil }

// Matches reports whether c can fill reactant role. It implements
// pool.Matcher.
func (t *Template) Matches(ctx context.Context, role int, c ir.Candidate) (bool, error) {
	if role < 0 || role >= len(t.match) {
		return false, engine.NewIndexOutOfRange("match", role, len(t.match))
	}
	if t.match[role] == nil {
		return true, nil
	}
	return evalBool(ctx, t.match[role], map[string]any{"c": candidateValue(c)})
}

// Accept evaluates the tuple filter. Without a filter every tuple passes.
func (t *Template) Accept(ctx context.Context, tuple []ir.Candidate) (bool, error) {
	if t.filter == nil {
		return true, nil
	}
	return evalBool(ctx, t.filter, map[string]any{"r": tupleValue(tuple)})
}

// Apply builds the products for tuple. A tuple member that fails its role's
// match, or has zero sites, makes the whole tuple a non-match.
func (t *Template) Apply(ctx context.Context, tuple []ir.Candidate, params library.Params) ([][]ir.Product, error) {
	if len(tuple) != len(t.def.Reactants) {
		return nil, fmt.Errorf("template %s: got %d reactants, want %d", t.def.Name, len(tuple), len(t.def.Reactants))
	}

	siteCounts := make(engine.Sizes, len(tuple))
	for r, c := range tuple {
		ok, err := t.Matches(ctx, r, c)
		if err != nil {
			return nil, fmt.Errorf("%s match: %w", t.def.Reactants[r].Name, err)
		}
		if !ok {
			return nil, ErrNoMatch
		}
		n, err := t.siteCount(ctx, r, c)
		if err != nil {
			return nil, fmt.Errorf("%s sites: %w", t.def.Reactants[r].Name, err)
		}
		n = params.MatchCap(n)
		if n == 0 {
			return nil, ErrNoMatch
		}
		siteCounts[r] = n
	}

	// Sites combine like positions: reuse the cartesian walk over them.
	combos := engine.CartesianProduct{}
	total, err := combos.Total(siteCounts)
	if err != nil {
		return nil, err
	}

	r := tupleValue(tuple)
	sources := make([]string, len(tuple))
	for i, c := range tuple {
		sources[i] = c.ID
	}

	groups := make([][]ir.Product, len(t.products))
	produced := 0
	for n := uint64(0); n < total; n++ {
		site, err := combos.PositionAt(siteCounts, n)
		if err != nil {
			return nil, err
		}
		siteVal := make([]int64, len(site))
		for i, s := range site {
			siteVal[i] = int64(s)
		}
		vars := map[string]any{"r": r, "site": siteVal}
		for p, prg := range t.products {
			structure, err := evalString(ctx, prg, vars)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", t.def.Products[p].Name, err)
			}
			if structure == "" {
				continue
			}
			groups[p] = append(groups[p], ir.Product{
				Structure: structure,
				Sources:   append([]string(nil), sources...),
			})
			produced++
		}
	}
	if produced == 0 {
		return nil, ErrNoMatch
	}
	return groups, nil
}

func (t *Template) siteCount(ctx context.Context, role int, c ir.Candidate) (int, error) {
	if t.sites[role] == nil {
		return 1, nil
	}
	n, err := evalInt(ctx, t.sites[role], map[string]any{"c": candidateValue(c)})
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative site count %d", n)
	}
	return int(n), nil
}

func candidateValue(c ir.Candidate) map[string]any {
	props := map[string]any{}
	if c.Props != nil {
		props = ir.ToAny(c.Props).(map[string]any)
	}
	return map[string]any{
		"id":        c.ID,
		"structure": c.Structure,
		"props":     props,
	}
}

func tupleValue(tuple []ir.Candidate) []any {
	out := make([]any, len(tuple))
	for i, c := range tuple {
		out[i] = candidateValue(c)
	}
	return out
}
