package library

import (
	"fmt"
	"strconv"

	"github.com/roach88/rxnenum/internal/engine"
	"github.com/roach88/rxnenum/internal/ir"
	"github.com/roach88/rxnenum/internal/pool"
)

// LibraryFormat names the library blob envelope.
const LibraryFormat = "rxnenum/library"

// State freezes only the cursor. The blob restores into any library built
// from the same template, pools and strategy.
func (l *Library) State() ([]byte, error) {
	return l.cursor.MarshalState()
}

// RestoreState applies a cursor blob produced by State. Fails with
// CorruptState when the blob does not fit this library; the library is left
// unchanged.
func (l *Library) RestoreState(blob []byte) error {
	return l.cursor.RestoreState(blob)
}

// Serialize freezes the whole library: template definition, filtered pool
// contents, params, strategy and cursor. The template must implement
// Definer.
//
// Payload layout:
//
//	template  Definer output
//	pools     [[candidate...] per role]
//	rejected  [count per role]
//	params    {reagent_max_match_count}
//	strategy  {kind, order, seed}
//	cursor    cursor state payload
func (l *Library) Serialize() ([]byte, error) {
	d, ok := l.tmpl.(Definer)
	if !ok {
		return nil, fmt.Errorf("serialize: template %s has no definition", l.tmpl.Name())
	}
	def, err := d.Definition()
	if err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}

	pools := make(ir.IRArray, len(l.pools))
	for r, p := range l.pools {
		cands := p.Candidates()
		arr := make(ir.IRArray, len(cands))
		for i, c := range cands {
			arr[i] = c.ToIR()
		}
		pools[r] = arr
	}

	payload := ir.IRObject{
		"template": def,
		"pools":    pools,
		"rejected": ir.IntArray(l.Rejected()),
		"params":   l.params.ToIR(),
		"strategy": specToIR(l.cursor.Spec()),
		"cursor":   l.cursor.StatePayload(),
	}
	env, err := engine.SealEnvelope(LibraryFormat, ir.DomainLibrary, payload)
	if err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	return ir.MarshalCanonical(env)
}

// Restore rebuilds a library from a Serialize blob. decode turns the stored
// template definition back into a Template. The result shares nothing with
// the library that produced the blob.
//
// Every failure, including a definition decode can no longer accept, is a
// CorruptState error.
func Restore(blob []byte, decode TemplateDecoder) (*Library, error) {
	payload, err := engine.OpenEnvelope(blob, LibraryFormat, ir.DomainLibrary)
	if err != nil {
		return nil, err
	}
	corrupt := func(what string, err error) error {
		return &engine.Error{Code: engine.CodeCorruptState, Op: "restore", Message: what, Err: err}
	}

	def, err := payload.Object("template")
	if err != nil {
		return nil, corrupt("template", err)
	}
	tmpl, err := decode(def)
	if err != nil {
		return nil, corrupt("template definition", err)
	}

	rawPools, err := payload.Array("pools")
	if err != nil {
		return nil, corrupt("pools", err)
	}
	rejected, err := ir.Ints(payload["rejected"])
	if err != nil || len(rejected) != len(rawPools) {
		return nil, corrupt("rejected counts", err)
	}
	pools := make([]*pool.Pool, len(rawPools))
	for r, v := range rawPools {
		arr, ok := v.(ir.IRArray)
		if !ok {
			return nil, corrupt(fmt.Sprintf("pool %d", r), fmt.Errorf("expected array, got %T", v))
		}
		cands := make([]ir.Candidate, len(arr))
		for i, cv := range arr {
			if cands[i], err = ir.CandidateFromIR(cv); err != nil {
				return nil, corrupt(fmt.Sprintf("pool %d candidate %d", r, i), err)
			}
		}
		pools[r] = pool.FromCandidates(r, cands, rejected[r])
	}

	paramsObj, err := payload.Object("params")
	if err != nil {
		return nil, corrupt("params", err)
	}
	params, err := ParamsFromIR(paramsObj)
	if err != nil {
		return nil, corrupt("params", err)
	}

	specObj, err := payload.Object("strategy")
	if err != nil {
		return nil, corrupt("strategy", err)
	}
	spec, err := specFromIR(specObj)
	if err != nil {
		return nil, corrupt("strategy", err)
	}

	l, err := New(tmpl, pools, params, spec)
	if err != nil {
		return nil, corrupt("rebuild", err)
	}

	cursor, err := payload.Object("cursor")
	if err != nil {
		return nil, corrupt("cursor", err)
	}
	if err := l.cursor.RestorePayload(cursor); err != nil {
		return nil, err
	}
	return l, nil
}

func specToIR(s engine.Spec) ir.IRObject {
	kind := s.Kind
	if kind == "" {
		kind = engine.KindCartesian
	}
	return ir.IRObject{
		"kind":  ir.IRString(kind),
		"order": ir.IRString(s.Order.String()),
		"seed":  ir.IRString(strconv.FormatUint(s.Seed, 10)),
	}
}

func specFromIR(obj ir.IRObject) (engine.Spec, error) {
	var s engine.Spec
	kind, err := obj.String("kind")
	if err != nil {
		return s, err
	}
	if s.Kind, err = engine.ParseKind(kind); err != nil {
		return s, err
	}
	order, err := obj.String("order")
	if err != nil {
		return s, err
	}
	if s.Order, err = engine.ParseOrder(order); err != nil {
		return s, err
	}
	seed, err := obj.String("seed")
	if err != nil {
		return s, err
	}
	if s.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return s, fmt.Errorf("seed: %w", err)
	}
	return s, nil
}
