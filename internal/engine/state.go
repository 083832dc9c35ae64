package engine

import (
	"fmt"
	"math"
	"strconv"

	"github.com/roach88/rxnenum/internal/ir"
)

// CursorStateFormat names the cursor blob envelope.
const CursorStateFormat = "rxnenum/cursor"

// MarshalState freezes the cursor into an opaque, versioned blob.
//
// The blob is RFC 8785 canonical JSON:
//
//	{"checksum":"<hex>","format":"rxnenum/cursor","payload":{...},"version":1}
//
// payload records the strategy configuration, the sizes the cursor was built
// against, the position, the step and the exhaustion flag. checksum is
// SHA-256 over the canonical payload under ir.DomainCursorState. Equal
// cursors always produce identical bytes.
func (c *Cursor) MarshalState() ([]byte, error) {
	env, err := SealEnvelope(CursorStateFormat, ir.DomainCursorState, c.StatePayload())
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return ir.MarshalCanonical(env)
}

// RestoreState replaces the cursor's progress with the one frozen in blob.
//
// Fails with CorruptState if the blob is malformed, fails its checksum, has
// another format version, was produced by a different strategy
// configuration, or was built against different pool sizes. A failed restore
// leaves the cursor untouched.
func (c *Cursor) RestoreState(blob []byte) error {
	payload, err := OpenEnvelope(blob, CursorStateFormat, ir.DomainCursorState)
	if err != nil {
		return err
	}
	return c.RestorePayload(payload)
}

// StatePayload returns the unsealed state object. Library blobs embed it.
func (c *Cursor) StatePayload() ir.IRObject {
	spec := c.strategy.Spec()
	return ir.IRObject{
		"kind":      ir.IRString(spec.Kind),
		"order":     ir.IRString(spec.Order.String()),
		"seed":      ir.IRString(strconv.FormatUint(spec.Seed, 10)),
		"sizes":     ir.IntArray(c.sizes),
		"position":  ir.IntArray(c.pos),
		"step":      ir.IRString(strconv.FormatUint(c.step, 10)),
		"exhausted": ir.IRBool(c.exhausted),
	}
}

// RestorePayload applies an unsealed state object after validating it
// against this cursor's strategy and sizes.
func (c *Cursor) RestorePayload(payload ir.IRObject) error {
	st, err := decodePayload(payload)
	if err != nil {
		return err
	}

	spec := c.strategy.Spec()
	if st.spec.Kind != spec.Kind {
		return NewCorruptState("restore", "state was frozen by %s strategy, cursor uses %s", st.spec.Kind, spec.Kind)
	}
	if st.spec.Order != spec.Order {
		return NewCorruptState("restore", "state order %s does not match cursor order %s", st.spec.Order, spec.Order)
	}
	if st.spec.Seed != spec.Seed {
		return NewCorruptState("restore", "state seed %d does not match cursor seed %d", st.spec.Seed, spec.Seed)
	}
	if !st.sizes.Equal(c.sizes) {
		return NewCorruptState("restore", "state sizes %v do not match pool sizes %v", []int(st.sizes), []int(c.sizes))
	}
	if !c.sizes.Contains(st.pos) {
		return NewCorruptState("restore", "position %v outside sizes %v", st.pos, []int(c.sizes))
	}
	if err := c.checkConsistent(st); err != nil {
		return err
	}

	c.pos = st.pos
	c.step = st.step
	c.exhausted = st.exhausted
	return nil
}

// checkConsistent verifies that step and position describe the same point
// of the walk.
func (c *Cursor) checkConsistent(st frozenState) error {
	switch s := c.strategy.(type) {
	case Ranker:
		total, err := s.Total(c.sizes)
		if err != nil {
			return err
		}
		if st.exhausted {
			if st.step != total {
				return NewCorruptState("restore", "exhausted state at step %d, walk has %d positions", st.step, total)
			}
			last, err := s.PositionAt(c.sizes, total-1)
			if err != nil {
				return err
			}
			if !last.Equal(st.pos) {
				return NewCorruptState("restore", "exhausted state at %v, last position is %v", st.pos, last)
			}
			return nil
		}
		off, err := s.OffsetOf(c.sizes, st.pos)
		if err != nil {
			return err
		}
		if off != st.step {
			return NewCorruptState("restore", "position %v is offset %d, state says step %d", st.pos, off, st.step)
		}
	case Seeker:
		// A seeker walk only ends on its last draw, where step saturates.
		if st.exhausted && st.step != math.MaxUint64 {
			return NewCorruptState("restore", "%s walk exhausted at step %d", s.Spec().Kind, st.step)
		}
		want, err := s.PositionAt(c.sizes, st.step)
		if err != nil {
			return err
		}
		if !want.Equal(st.pos) {
			return NewCorruptState("restore", "position %v is not draw %d", st.pos, st.step)
		}
	case Filtered:
		if st.exhausted {
			return nil
		}
		ok, err := s.Accept(st.pos)
		if err != nil {
			return &Error{Code: CodeCorruptState, Op: "restore", Message: "filter failed on restored position", Err: err}
		}
		if !ok {
			return NewCorruptState("restore", "filter rejects restored position %v", st.pos)
		}
	}
	return nil
}

type frozenState struct {
	spec      Spec
	sizes     Sizes
	pos       Position
	step      uint64
	exhausted bool
}

func decodePayload(p ir.IRObject) (frozenState, error) {
	var st frozenState
	corrupt := func(err error) error {
		return &Error{Code: CodeCorruptState, Op: "restore", Message: "malformed payload", Err: err}
	}

	kind, err := p.String("kind")
	if err != nil {
		return st, corrupt(err)
	}
	if st.spec.Kind, err = ParseKind(kind); err != nil {
		return st, corrupt(err)
	}
	order, err := p.String("order")
	if err != nil {
		return st, corrupt(err)
	}
	if st.spec.Order, err = ParseOrder(order); err != nil {
		return st, corrupt(err)
	}
	if st.spec.Seed, err = uintField(p, "seed"); err != nil {
		return st, corrupt(err)
	}
	if st.step, err = uintField(p, "step"); err != nil {
		return st, corrupt(err)
	}
	if st.exhausted, err = p.Bool("exhausted"); err != nil {
		return st, corrupt(err)
	}
	sizes, err := ir.Ints(p["sizes"])
	if err != nil {
		return st, corrupt(fmt.Errorf("sizes: %w", err))
	}
	st.sizes = sizes
	pos, err := ir.Ints(p["position"])
	if err != nil {
		return st, corrupt(fmt.Errorf("position: %w", err))
	}
	st.pos = pos
	return st, nil
}

func uintField(p ir.IRObject, key string) (uint64, error) {
	s, err := p.String(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", key, err)
	}
	return n, nil
}

// SealEnvelope wraps payload in the versioned, checksummed envelope shared
// by cursor and library blobs.
func SealEnvelope(format, domain string, payload ir.IRObject) (ir.IRObject, error) {
	sum, err := ir.Digest(domain, payload)
	if err != nil {
		return nil, err
	}
	return ir.IRObject{
		"format":   ir.IRString(format),
		"version":  ir.IRInt(ir.StateFormatVersion),
		"payload":  payload,
		"checksum": ir.IRString(sum),
	}, nil
}

// OpenEnvelope parses blob, checks format, version and checksum, and returns
// the payload. Every failure is a CorruptState error.
func OpenEnvelope(blob []byte, format, domain string) (ir.IRObject, error) {
	if len(blob) == 0 {
		return nil, NewCorruptState("restore", "empty state blob")
	}
	v, err := ir.UnmarshalIRValue(blob)
	if err != nil {
		return nil, &Error{Code: CodeCorruptState, Op: "restore", Message: "state blob is not valid JSON", Err: err}
	}
	env, ok := v.(ir.IRObject)
	if !ok {
		return nil, NewCorruptState("restore", "state blob is not an object")
	}

	gotFormat, err := env.String("format")
	if err != nil || gotFormat != format {
		return nil, NewCorruptState("restore", "expected %s blob, got %q", format, gotFormat)
	}
	version, err := env.Int("version")
	if err != nil {
		return nil, NewCorruptState("restore", "missing version")
	}
	if version != ir.StateFormatVersion {
		return nil, NewCorruptState("restore", "unsupported %s version %d (want %d)", format, version, ir.StateFormatVersion)
	}
	payload, err := env.Object("payload")
	if err != nil {
		return nil, NewCorruptState("restore", "missing payload")
	}
	want, err := env.String("checksum")
	if err != nil {
		return nil, NewCorruptState("restore", "missing checksum")
	}
	got, err := ir.Digest(domain, payload)
	if err != nil {
		return nil, &Error{Code: CodeCorruptState, Op: "restore", Message: "payload is not canonical", Err: err}
	}
	if got != want {
		return nil, NewCorruptState("restore", "checksum mismatch")
	}
	return payload, nil
}
