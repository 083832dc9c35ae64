package template

import (
	"fmt"

	"github.com/roach88/rxnenum/internal/ir"
	"github.com/roach88/rxnenum/internal/library"
)

// Definition returns the source form of the template for library blobs.
// Empty optional expressions are omitted.
func (t *Template) Definition() (ir.IRObject, error) {
	return t.def.ToIR(), nil
}

// ToIR converts the definition to its canonical object form.
func (d Definition) ToIR() ir.IRObject {
	reactants := make(ir.IRArray, len(d.Reactants))
	for i, r := range d.Reactants {
		obj := ir.IRObject{"name": ir.IRString(r.Name)}
		if r.Match != "" {
			obj["match"] = ir.IRString(r.Match)
		}
		if r.Sites != "" {
			obj["sites"] = ir.IRString(r.Sites)
		}
		reactants[i] = obj
	}
	products := make(ir.IRArray, len(d.Products))
	for i, p := range d.Products {
		products[i] = ir.IRObject{"name": ir.IRString(p.Name), "expr": ir.IRString(p.Expr)}
	}

	obj := ir.IRObject{
		"name":      ir.IRString(d.Name),
		"reactants": reactants,
		"products":  products,
	}
	if d.Filter != "" {
		obj["filter"] = ir.IRString(d.Filter)
	}
	return obj
}

// DefinitionFromIR is the inverse of Definition.ToIR.
func DefinitionFromIR(obj ir.IRObject) (Definition, error) {
	var d Definition
	var err error
	if d.Name, err = obj.String("name"); err != nil {
		return d, err
	}
	if d.Filter, err = optString(obj, "filter"); err != nil {
		return d, err
	}

	reactants, err := obj.Array("reactants")
	if err != nil {
		return d, err
	}
	for i, v := range reactants {
		ro, ok := v.(ir.IRObject)
		if !ok {
			return d, fmt.Errorf("reactants[%d]: expected object, got %T", i, v)
		}
		var r Reactant
		if r.Name, err = ro.String("name"); err != nil {
			return d, fmt.Errorf("reactants[%d]: %w", i, err)
		}
		if r.Match, err = optString(ro, "match"); err != nil {
			return d, fmt.Errorf("reactants[%d]: %w", i, err)
		}
		if r.Sites, err = optString(ro, "sites"); err != nil {
			return d, fmt.Errorf("reactants[%d]: %w", i, err)
		}
		d.Reactants = append(d.Reactants, r)
	}

	products, err := obj.Array("products")
	if err != nil {
		return d, err
	}
	for i, v := range products {
		po, ok := v.(ir.IRObject)
		if !ok {
			return d, fmt.Errorf("products[%d]: expected object, got %T", i, v)
		}
		var p Product
		if p.Name, err = po.String("name"); err != nil {
			return d, fmt.Errorf("products[%d]: %w", i, err)
		}
		if p.Expr, err = po.String("expr"); err != nil {
			return d, fmt.Errorf("products[%d]: %w", i, err)
		}
		d.Products = append(d.Products, p)
	}
	return d, nil
}

// Decode rebuilds a compiled template from its definition. It is the
// library.TemplateDecoder for CEL templates.
func Decode(obj ir.IRObject) (library.Template, error) {
	def, err := DefinitionFromIR(obj)
	if err != nil {
		return nil, fmt.Errorf("template definition: %w", err)
	}
	t, err := Compile(def)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func optString(obj ir.IRObject, key string) (string, error) {
	if _, ok := obj[key]; !ok {
		return "", nil
	}
	return obj.String(key)
}
