package library

import (
	"github.com/roach88/rxnenum/internal/engine"
	"github.com/roach88/rxnenum/internal/ir"
)

// Params configures how a template is applied. Immutable once the library is
// built.
type Params struct {
	// ReagentMaxMatchCount caps how many matches per reagent are expanded
	// into separate products. Zero means unlimited.
	ReagentMaxMatchCount int
}

// Validate rejects negative caps.
func (p Params) Validate() error {
	if p.ReagentMaxMatchCount < 0 {
		return engine.NewInvalidConfiguration("params",
			"reagent_max_match_count must be >= 0, got %d", p.ReagentMaxMatchCount)
	}
	return nil
}

// MatchCap applies ReagentMaxMatchCount to n matches.
func (p Params) MatchCap(n int) int {
	if p.ReagentMaxMatchCount > 0 && n > p.ReagentMaxMatchCount {
		return p.ReagentMaxMatchCount
	}
	return n
}

// ToIR converts the params to their canonical object form.
func (p Params) ToIR() ir.IRObject {
	return ir.IRObject{
		"reagent_max_match_count": ir.IRInt(p.ReagentMaxMatchCount),
	}
}

// ParamsFromIR is the inverse of Params.ToIR.
func ParamsFromIR(obj ir.IRObject) (Params, error) {
	n, err := obj.Int("reagent_max_match_count")
	if err != nil {
		return Params{}, err
	}
	p := Params{ReagentMaxMatchCount: int(n)}
	return p, p.Validate()
}
