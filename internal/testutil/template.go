package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/roach88/rxnenum/internal/ir"
	"github.com/roach88/rxnenum/internal/library"
)

// JoinTemplate joins the structures of its tuple with ".".
//
// Tuples containing an ID in Skip do not match. Tuples containing an ID in
// Fail make Apply return an error. The filtered strategy drops tuples whose
// first member is in Reject. OnApply, when set, runs before each
// application.
type JoinTemplate struct {
	Reactants int
	Skip      map[string]bool
	Fail      map[string]bool
	Reject    map[string]bool
	OnApply   func(tuple []ir.Candidate)

	calls atomic.Int64
}

var (
	_ library.Template       = (*JoinTemplate)(nil)
	_ library.PositionFilter = (*JoinTemplate)(nil)
	_ library.Definer        = (*JoinTemplate)(nil)
)

// NewJoinTemplate returns a JoinTemplate with n reactant roles.
func NewJoinTemplate(n int) *JoinTemplate {
	return &JoinTemplate{Reactants: n}
}

func (j *JoinTemplate) Name() string       { return "join" }
func (j *JoinTemplate) ReactantCount() int { return j.Reactants }
func (j *JoinTemplate) ProductCount() int  { return 1 }

// Calls returns the number of Apply calls so far.
func (j *JoinTemplate) Calls() int { return int(j.calls.Load()) }

func (j *JoinTemplate) Apply(ctx context.Context, tuple []ir.Candidate, _ library.Params) ([][]ir.Product, error) {
	j.calls.Add(1)
	if j.OnApply != nil {
		j.OnApply(tuple)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parts := make([]string, 0, len(tuple))
	ids := make([]string, 0, len(tuple))
	for _, c := range tuple {
		if j.Fail[c.ID] {
			return nil, fmt.Errorf("cannot apply to %s", c.ID)
		}
		if j.Skip[c.ID] {
			return nil, library.ErrNoMatch
		}
		parts = append(parts, c.Structure)
		ids = append(ids, c.ID)
	}
	return [][]ir.Product{{{Structure: strings.Join(parts, "."), Sources: ids}}}, nil
}

func (j *JoinTemplate) Accept(ctx context.Context, tuple []ir.Candidate) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return !j.Reject[tuple[0].ID], nil
}

// Definition records the arity and the ID sets; OnApply is not serialized.
func (j *JoinTemplate) Definition() (ir.IRObject, error) {
	return ir.IRObject{
		"name":      ir.IRString("join"),
		"reactants": ir.IRInt(j.Reactants),
		"skip":      idSet(j.Skip),
		"fail":      idSet(j.Fail),
		"reject":    idSet(j.Reject),
	}, nil
}

// DecodeJoin is the library.TemplateDecoder for JoinTemplate definitions.
func DecodeJoin(def ir.IRObject) (library.Template, error) {
	name, err := def.String("name")
	if err != nil {
		return nil, err
	}
	if name != "join" {
		return nil, fmt.Errorf("unknown template %q", name)
	}
	n, err := def.Int("reactants")
	if err != nil {
		return nil, err
	}
	j := NewJoinTemplate(int(n))
	if j.Skip, err = idSetFrom(def, "skip"); err != nil {
		return nil, err
	}
	if j.Fail, err = idSetFrom(def, "fail"); err != nil {
		return nil, err
	}
	if j.Reject, err = idSetFrom(def, "reject"); err != nil {
		return nil, err
	}
	return j, nil
}

// Set builds an ID set.
func Set(ids ...string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func idSet(m map[string]bool) ir.IRObject {
	obj := ir.IRObject{}
	for id, ok := range m {
		if ok {
			obj[id] = ir.IRBool(true)
		}
	}
	return obj
}

func idSetFrom(def ir.IRObject, key string) (map[string]bool, error) {
	if _, ok := def[key]; !ok {
		return nil, nil
	}
	obj, err := def.Object(key)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(obj))
	for id := range obj {
		out[id] = true
	}
	return out, nil
}
