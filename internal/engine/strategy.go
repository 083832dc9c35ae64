package engine

import "fmt"

// Kind names one strategy of the closed set.
type Kind string

const (
	// KindCartesian walks every combination in mixed-radix order.
	KindCartesian Kind = "cartesian"

	// KindRandom draws positions uniformly from a seeded generator.
	KindRandom Kind = "random"

	// KindFiltered walks cartesian order, keeping positions a predicate accepts.
	KindFiltered Kind = "filtered"
)

// Kinds lists the supported strategy kinds.
var Kinds = []Kind{KindCartesian, KindRandom, KindFiltered}

// ParseKind converts a configuration string to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", NewInvalidConfiguration("strategy", "unknown strategy kind %q: must be one of %v", s, Kinds)
}

// Order selects which role is the fastest-varying digit of a walk.
type Order int

const (
	// LastFastest increments the last role first: [0,0] -> [0,1].
	LastFastest Order = iota

	// FirstFastest increments the first role first: [0,0] -> [1,0].
	FirstFastest
)

// String returns the configuration name of the order.
func (o Order) String() string {
	switch o {
	case LastFastest:
		return "last_fastest"
	case FirstFastest:
		return "first_fastest"
	default:
		return fmt.Sprintf("order(%d)", int(o))
	}
}

// ParseOrder converts a configuration string to an Order.
// The empty string selects LastFastest.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "last_fastest":
		return LastFastest, nil
	case "first_fastest":
		return FirstFastest, nil
	default:
		return 0, NewInvalidConfiguration("strategy", "unknown order %q: must be last_fastest or first_fastest", s)
	}
}

// role maps digit i (0 = fastest) to a role index for n roles.
func (o Order) role(i, n int) int {
	if o == FirstFastest {
		return i
	}
	return n - 1 - i
}

// Spec is the serializable configuration of a strategy.
type Spec struct {
	Kind  Kind
	Order Order
	Seed  uint64
}

// String renders the spec for logs.
func (s Spec) String() string {
	if s.Kind == KindRandom {
		return fmt.Sprintf("%s(seed=%d)", s.Kind, s.Seed)
	}
	return fmt.Sprintf("%s(%s)", s.Kind, s.Order)
}

// Strategy defines the order of a walk. Implementations are immutable and
// deterministic: the same sizes, step and position always give the same
// successor.
type Strategy interface {
	// Spec returns the serializable configuration of the strategy.
	Spec() Spec

	// Initial returns the first position of the walk. ErrExhausted means
	// the walk is empty.
	Initial(sizes Sizes) (Position, error)

	// Successor returns the position following pos, where step is the index
	// of pos in the walk. ErrExhausted means pos was the last position.
	Successor(sizes Sizes, step uint64, pos Position) (Position, error)
}

// Seeker is a Strategy with random access by step.
type Seeker interface {
	Strategy

	// PositionAt returns the position at step n.
	PositionAt(sizes Sizes, n uint64) (Position, error)
}

// Ranker is a Seeker whose walk is a bijection between offsets and positions.
type Ranker interface {
	Seeker

	// OffsetOf is the inverse of PositionAt.
	OffsetOf(sizes Sizes, pos Position) (uint64, error)

	// Total returns the number of positions in the walk.
	Total(sizes Sizes) (uint64, error)
}

// PositionPredicate decides whether a Filtered walk keeps a position.
type PositionPredicate func(Position) (bool, error)

// Build constructs the strategy described by the spec. accept is required
// for KindFiltered and ignored otherwise.
func (s Spec) Build(accept PositionPredicate) (Strategy, error) {
	switch s.Kind {
	case KindCartesian, "":
		return CartesianProduct{Order: s.Order}, nil
	case KindRandom:
		return RandomSample{Seed: s.Seed}, nil
	case KindFiltered:
		if accept == nil {
			return nil, NewInvalidConfiguration("strategy", "filtered strategy requires a position predicate")
		}
		return Filtered{Base: CartesianProduct{Order: s.Order}, Accept: accept}, nil
	default:
		return nil, NewInvalidConfiguration("strategy", "unknown strategy kind %q", s.Kind)
	}
}
