package harness

import (
	"github.com/roach88/rxnenum/internal/engine"
	"github.com/roach88/rxnenum/internal/ir"
)

// TraceEvent records one operation, or one produced position of an
// advance.
type TraceEvent struct {
	Op        string          `json:"op"`
	On        string          `json:"on,omitempty"`
	Slot      string          `json:"slot,omitempty"`
	Position  engine.Position `json:"position,omitempty"`
	Step      uint64          `json:"step"`
	Exhausted bool            `json:"exhausted"`
	Error     string          `json:"error,omitempty"`
}

// toIR converts the event to its canonical object form.
func (e TraceEvent) toIR() ir.IRObject {
	obj := ir.IRObject{
		"op":        ir.IRString(e.Op),
		"step":      ir.IRInt(int64(e.Step)),
		"exhausted": ir.IRBool(e.Exhausted),
	}
	if e.On != "" && e.On != MainCursor {
		obj["on"] = ir.IRString(e.On)
	}
	if e.Slot != "" {
		obj["slot"] = ir.IRString(e.Slot)
	}
	if e.Position != nil {
		obj["position"] = ir.IntArray(e.Position)
	}
	if e.Error != "" {
		obj["error"] = ir.IRString(e.Error)
	}
	return obj
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every operation in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Emitted holds the positions each cursor produced, keyed by cursor
	// name.
	Emitted map[string][]engine.Position `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Emitted: make(map[string][]engine.Position),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addEvent(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}
