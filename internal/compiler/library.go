package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/rxnenum/internal/engine"
	"github.com/roach88/rxnenum/internal/library"
)

// LibrarySpec is the compiled form of a library block. Pool paths are as
// written in the source; the caller resolves them against the spec
// directory.
type LibrarySpec struct {
	Name     string
	Template string
	Pools    []string
	Params   library.Params
	Strategy engine.Spec
}

// CompileLibrary parses a CUE value into a LibrarySpec.
//
// The CUE value should be the library struct itself:
//
//	library: amides: {
//	    template: "amide"
//	    pools: ["acids.smi", "amines.yaml"]
//	    params: reagent_max_match_count: 2
//	    strategy: {kind: "random", seed: 7}
//	}
//
// Omitted params and strategy fields take their zero values: unlimited
// matches and a cartesian walk with the last role fastest.
func CompileLibrary(v cue.Value) (*LibrarySpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &LibrarySpec{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	var err error
	if spec.Template, err = requiredString(v, "template", "template"); err != nil {
		return nil, err
	}

	poolsVal := v.LookupPath(cue.ParsePath("pools"))
	if !poolsVal.Exists() {
		return nil, &CompileError{
			Field:   "pools",
			Message: "pools are required",
			Pos:     v.Pos(),
		}
	}
	iter, err := poolsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		path, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("pools[%d]", i),
				Message: "pool must be a file path string",
				Pos:     iter.Value().Pos(),
			}
		}
		spec.Pools = append(spec.Pools, path)
	}

	maxVal := v.LookupPath(cue.ParsePath("params.reagent_max_match_count"))
	if maxVal.Exists() {
		n, err := intField(maxVal, "params.reagent_max_match_count")
		if err != nil {
			return nil, err
		}
		spec.Params.ReagentMaxMatchCount = int(n)
	}

	strategyVal := v.LookupPath(cue.ParsePath("strategy"))
	if strategyVal.Exists() {
		if spec.Strategy, err = compileStrategy(strategyVal); err != nil {
			return nil, err
		}
	} else {
		spec.Strategy.Kind = engine.KindCartesian
	}

	return spec, nil
}

func compileStrategy(v cue.Value) (engine.Spec, error) {
	var spec engine.Spec

	kind, err := optionalString(v, "kind")
	if err != nil {
		return spec, err
	}
	if kind == "" {
		kind = string(engine.KindCartesian)
	}
	if spec.Kind, err = engine.ParseKind(kind); err != nil {
		return spec, &CompileError{Field: "strategy.kind", Message: err.Error(), Pos: v.Pos()}
	}

	order, err := optionalString(v, "order")
	if err != nil {
		return spec, err
	}
	if spec.Order, err = engine.ParseOrder(order); err != nil {
		return spec, &CompileError{Field: "strategy.order", Message: err.Error(), Pos: v.Pos()}
	}

	seedVal := v.LookupPath(cue.ParsePath("seed"))
	if seedVal.Exists() {
		if err := rejectFloat(seedVal, "strategy.seed"); err != nil {
			return spec, err
		}
		seed, err := seedVal.Uint64()
		if err != nil {
			return spec, &CompileError{Field: "strategy.seed", Message: "seed must be a non-negative integer", Pos: seedVal.Pos()}
		}
		spec.Seed = seed
	}
	return spec, nil
}

func intField(v cue.Value, field string) (int64, error) {
	if err := rejectFloat(v, field); err != nil {
		return 0, err
	}
	n, err := v.Int64()
	if err != nil {
		return 0, &CompileError{Field: field, Message: "must be an integer", Pos: v.Pos()}
	}
	return n, nil
}

// rejectFloat refuses float literals; counts and seeds are integers.
func rejectFloat(v cue.Value, field string) error {
	if v.IncompleteKind() == cue.FloatKind {
		return &CompileError{
			Field:   field,
			Message: "float values are not allowed; use an integer",
			Pos:     v.Pos(),
		}
	}
	return nil
}
