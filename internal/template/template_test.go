package template

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxnenum/internal/engine"
	"github.com/roach88/rxnenum/internal/ir"
	"github.com/roach88/rxnenum/internal/library"
	"github.com/roach88/rxnenum/internal/pool"
)

func amideDefinition() Definition {
	return Definition{
		Name: "amide_coupling",
		Reactants: []Reactant{
			{Name: "acid", Match: `c.structure.endsWith("C(=O)O")`},
			{Name: "amine", Match: `c.structure.startsWith("N")`, Sites: `"sites" in c.props ? c.props.sites : 1`},
		},
		Products: []Product{
			{Name: "amide", Expr: `r[0].structure.replace("C(=O)O", "C(=O)") + r[1].structure + (site[1] > 0 ? "@" + string(site[1]) : "")`},
		},
		Filter: `r[0].id != "blocked"`,
	}
}

func mustCompile(t *testing.T, def Definition) *Template {
	t.Helper()
	tmpl, err := Compile(def)
	require.NoError(t, err)
	return tmpl
}

func TestCompile_Shape(t *testing.T) {
	tmpl := mustCompile(t, amideDefinition())

	assert.Equal(t, "amide_coupling", tmpl.Name())
	assert.Equal(t, 2, tmpl.ReactantCount())
	assert.Equal(t, 1, tmpl.ProductCount())
	assert.Equal(t, []string{"acid", "amine"}, tmpl.ReactantNames())
	assert.Equal(t, []string{"amide"}, tmpl.ProductNames())
	assert.True(t, tmpl.HasFilter())
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Definition)
		field string
	}{
		{"missing name", func(d *Definition) { d.Name = "" }, "name"},
		{"no reactants", func(d *Definition) { d.Reactants = nil }, "reactants"},
		{"no products", func(d *Definition) { d.Products = nil }, "products"},
		{"syntax", func(d *Definition) { d.Reactants[0].Match = "c.structure ==" }, "reactants[0].match"},
		{"match not bool", func(d *Definition) { d.Reactants[1].Match = `"yes"` }, "reactants[1].match"},
		{"sites not int", func(d *Definition) { d.Reactants[1].Sites = `true` }, "reactants[1].sites"},
		{"empty product", func(d *Definition) { d.Products[0].Expr = "" }, "products[0].expr"},
		{"product not string", func(d *Definition) { d.Products[0].Expr = "1 + 2" }, "products[0].expr"},
		{"unknown variable", func(d *Definition) { d.Filter = "x > 1" }, "filter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := amideDefinition()
			tt.edit(&def)

			_, err := Compile(def)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestApply_SingleProduct(t *testing.T) {
	tmpl := mustCompile(t, amideDefinition())
	tuple := []ir.Candidate{
		{ID: "acetic", Structure: "CC(=O)O"},
		{ID: "methylamine", Structure: "NC"},
	}

	groups, err := tmpl.Apply(context.Background(), tuple, library.Params{})
	require.NoError(t, err)
	assert.Equal(t, [][]ir.Product{{
		{Structure: "CC(=O)NC", Sources: []string{"acetic", "methylamine"}},
	}}, groups)
}

func TestApply_NoMatch(t *testing.T) {
	tmpl := mustCompile(t, amideDefinition())
	tuple := []ir.Candidate{
		{ID: "ethanol", Structure: "CCO"},
		{ID: "methylamine", Structure: "NC"},
	}

	_, err := tmpl.Apply(context.Background(), tuple, library.Params{})
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.ErrorIs(t, err, library.ErrNoMatch)
}

func TestApply_SitesExpandAndCap(t *testing.T) {
	tmpl := mustCompile(t, amideDefinition())
	tuple := []ir.Candidate{
		{ID: "acetic", Structure: "CC(=O)O"},
		{ID: "diamine", Structure: "NCCN", Props: ir.IRObject{"sites": ir.IRInt(2)}},
	}

	groups, err := tmpl.Apply(context.Background(), tuple, library.Params{})
	require.NoError(t, err)
	require.Len(t, groups[0], 2)
	assert.Equal(t, "CC(=O)NCCN", groups[0][0].Structure)
	assert.Equal(t, "CC(=O)NCCN@1", groups[0][1].Structure)

	groups, err = tmpl.Apply(context.Background(), tuple, library.Params{ReagentMaxMatchCount: 1})
	require.NoError(t, err)
	assert.Len(t, groups[0], 1, "reagent_max_match_count caps expansion")
}

func TestApply_ZeroSitesIsNoMatch(t *testing.T) {
	tmpl := mustCompile(t, amideDefinition())
	tuple := []ir.Candidate{
		{ID: "acetic", Structure: "CC(=O)O"},
		{ID: "hindered", Structure: "N(C)(C)C", Props: ir.IRObject{"sites": ir.IRInt(0)}},
	}

	_, err := tmpl.Apply(context.Background(), tuple, library.Params{})
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestApply_RuntimeError(t *testing.T) {
	def := amideDefinition()
	def.Products[0].Expr = `r[0].props.vendor + r[1].structure`
	tmpl := mustCompile(t, def)
	tuple := []ir.Candidate{
		{ID: "acetic", Structure: "CC(=O)O"},
		{ID: "methylamine", Structure: "NC"},
	}

	_, err := tmpl.Apply(context.Background(), tuple, library.Params{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoMatch)
	assert.Contains(t, err.Error(), "amide")
}

func TestApply_Cancelled(t *testing.T) {
	tmpl := mustCompile(t, amideDefinition())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tmpl.Apply(ctx, []ir.Candidate{{ID: "a", Structure: "CC(=O)O"}, {ID: "b", Structure: "N"}}, library.Params{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestApply_WrongArity(t *testing.T) {
	tmpl := mustCompile(t, amideDefinition())

	_, err := tmpl.Apply(context.Background(), []ir.Candidate{{ID: "a", Structure: "C"}}, library.Params{})
	assert.ErrorContains(t, err, "got 1 reactants, want 2")
}

func TestMatches_FiltersPool(t *testing.T) {
	tmpl := mustCompile(t, amideDefinition())
	raw := []ir.Candidate{
		{ID: "acetic", Structure: "CC(=O)O"},
		{ID: "ethanol", Structure: "CCO"},
		{ID: "benzoic", Structure: "c1ccccc1C(=O)O"},
	}

	p, err := pool.New(context.Background(), 0, raw, tmpl)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Size())
	assert.Equal(t, 1, p.Rejected())

	_, err = tmpl.Matches(context.Background(), 5, raw[0])
	assert.True(t, engine.IsIndexOutOfRange(err))
}

func TestAccept(t *testing.T) {
	tmpl := mustCompile(t, amideDefinition())

	ok, err := tmpl.Accept(context.Background(), []ir.Candidate{{ID: "blocked"}, {ID: "x"}})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = tmpl.Accept(context.Background(), []ir.Candidate{{ID: "fine"}, {ID: "x"}})
	require.NoError(t, err)
	assert.True(t, ok)

	def := amideDefinition()
	def.Filter = ""
	ok, err = mustCompile(t, def).Accept(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAccept_Cancelled(t *testing.T) {
	tmpl := mustCompile(t, amideDefinition())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tmpl.Accept(ctx, []ir.Candidate{{ID: "fine"}, {ID: "x"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefinition_RoundTrip(t *testing.T) {
	tmpl := mustCompile(t, amideDefinition())

	obj, err := tmpl.Definition()
	require.NoError(t, err)
	_, hasSites := obj["reactants"].(ir.IRArray)[0].(ir.IRObject)["sites"]
	assert.False(t, hasSites, "empty optional expressions are omitted")

	decoded, err := Decode(obj)
	require.NoError(t, err)
	assert.Equal(t, tmpl.def, decoded.(*Template).def)
}

func TestDecode_RejectsMalformed(t *testing.T) {
	_, err := Decode(ir.IRObject{"name": ir.IRString("x")})
	assert.ErrorContains(t, err, "template definition")
}

func TestTemplate_DrivesLibrary(t *testing.T) {
	ctx := context.Background()
	tmpl := mustCompile(t, amideDefinition())
	acids, err := pool.New(ctx, 0, []ir.Candidate{
		{ID: "acetic", Structure: "CC(=O)O"},
		{ID: "blocked", Structure: "OC(=O)O"},
	}, tmpl)
	require.NoError(t, err)
	amines, err := pool.New(ctx, 1, []ir.Candidate{
		{ID: "methylamine", Structure: "NC"},
		{ID: "water", Structure: "O"},
		{ID: "ethylamine", Structure: "NCC"},
	}, tmpl)
	require.NoError(t, err)

	lib, err := library.New(tmpl, []*pool.Pool{acids, amines}, library.Params{}, engine.Spec{Kind: engine.KindFiltered})
	require.NoError(t, err)

	var structures []string
	for res, err := range lib.All(ctx) {
		require.NoError(t, err)
		for _, p := range res.Products() {
			structures = append(structures, p.Structure)
		}
	}
	assert.Equal(t, []string{"CC(=O)NC", "CC(=O)NCC"}, structures)

	blob, err := lib.Serialize()
	require.NoError(t, err)
	restored, err := library.Restore(blob, Decode)
	require.NoError(t, err)
	assert.True(t, restored.Exhausted())
}
