package ir

import "fmt"

// Candidate is one entry of a reagent pool.
//
// Structure is opaque to the engine (for chemistry it is usually a SMILES
// string). Props carries whatever the loader found alongside it and is
// visible to template expressions.
type Candidate struct {
	ID        string   `json:"id"`
	Structure string   `json:"structure"`
	Props     IRObject `json:"props,omitempty"`
}

// ToIR converts the candidate to its canonical object form.
func (c Candidate) ToIR() IRObject {
	obj := IRObject{
		"id":        IRString(c.ID),
		"structure": IRString(c.Structure),
	}
	if len(c.Props) > 0 {
		obj["props"] = c.Props
	}
	return obj
}

// CandidateFromIR is the inverse of Candidate.ToIR.
func CandidateFromIR(v IRValue) (Candidate, error) {
	obj, ok := v.(IRObject)
	if !ok {
		return Candidate{}, fmt.Errorf("candidate: expected object, got %T", v)
	}
	var c Candidate
	var err error
	if c.ID, err = obj.String("id"); err != nil {
		return Candidate{}, fmt.Errorf("candidate: %w", err)
	}
	if c.Structure, err = obj.String("structure"); err != nil {
		return Candidate{}, fmt.Errorf("candidate: %w", err)
	}
	if _, ok := obj["props"]; ok {
		if c.Props, err = obj.Object("props"); err != nil {
			return Candidate{}, fmt.Errorf("candidate: %w", err)
		}
	}
	return c, nil
}

// Product is one output structure produced by a template for one product
// role. Sources lists the IDs of the candidates it was built from.
type Product struct {
	Structure string   `json:"structure"`
	Sources   []string `json:"sources,omitempty"`
}

// ToIR converts the product to its canonical object form.
func (p Product) ToIR() IRObject {
	obj := IRObject{"structure": IRString(p.Structure)}
	if len(p.Sources) > 0 {
		src := make(IRArray, len(p.Sources))
		for i, s := range p.Sources {
			src[i] = IRString(s)
		}
		obj["sources"] = src
	}
	return obj
}

// Result is the outcome of one enumeration step.
//
// Groups holds one product set per product role of the template, in role
// order; each set may hold several products when a reagent matched the
// template more than once. Matched is false when the template did not apply
// to the tuple at Position: the step is still consumed.
type Result struct {
	Step     uint64      `json:"step"`
	Position []int       `json:"position"`
	Groups   [][]Product `json:"groups"`
	Matched  bool        `json:"matched"`
}

// Products flattens all product sets in role order.
func (r *Result) Products() []Product {
	var out []Product
	for _, g := range r.Groups {
		out = append(out, g...)
	}
	return out
}

// Count returns the total number of products across all sets.
func (r *Result) Count() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g)
	}
	return n
}

// ToIR converts the result to its canonical object form.
func (r *Result) ToIR() IRObject {
	groups := make(IRArray, len(r.Groups))
	for i, g := range r.Groups {
		set := make(IRArray, len(g))
		for j, p := range g {
			set[j] = p.ToIR()
		}
		groups[i] = set
	}
	return IRObject{
		"step":     IRInt(int64(r.Step)),
		"position": IntArray(r.Position),
		"groups":   groups,
		"matched":  IRBool(r.Matched),
	}
}
