package engine

// CartesianProduct enumerates every combination of one candidate per role.
//
// The walk is a mixed-radix counter over the sizes. With the default
// LastFastest order the last role is the least significant digit:
//
//	offset = ((p[0]*s[1] + p[1])*s[2] + p[2]) ...
//
// PositionAt and OffsetOf are exact inverses over [0, Total).
type CartesianProduct struct {
	Order Order
}

var _ Ranker = CartesianProduct{}

// Spec implements Strategy.
func (c CartesianProduct) Spec() Spec {
	return Spec{Kind: KindCartesian, Order: c.Order}
}

// Initial returns the all-zero position.
func (c CartesianProduct) Initial(sizes Sizes) (Position, error) {
	if err := sizes.Validate(); err != nil {
		return nil, err
	}
	return make(Position, len(sizes)), nil
}

// Successor increments the fastest digit and carries into slower ones.
// ErrExhausted is returned when the carry leaves the slowest role.
func (c CartesianProduct) Successor(sizes Sizes, _ uint64, pos Position) (Position, error) {
	if err := sizes.checkPosition("successor", pos); err != nil {
		return nil, err
	}
	next := pos.Clone()
	n := len(sizes)
	for i := 0; i < n; i++ {
		r := c.Order.role(i, n)
		next[r]++
		if next[r] < sizes[r] {
			return next, nil
		}
		next[r] = 0
	}
	return nil, ErrExhausted
}

// PositionAt decodes offset n by mixed-radix decomposition.
func (c CartesianProduct) PositionAt(sizes Sizes, n uint64) (Position, error) {
	total, err := sizes.Total()
	if err != nil {
		return nil, err
	}
	if n >= total {
		return nil, NewOutOfRange("position_at", n, total)
	}
	pos := make(Position, len(sizes))
	for i := 0; i < len(sizes); i++ {
		r := c.Order.role(i, len(sizes))
		radix := uint64(sizes[r])
		pos[r] = int(n % radix)
		n /= radix
	}
	return pos, nil
}

// OffsetOf encodes pos as a flat offset.
func (c CartesianProduct) OffsetOf(sizes Sizes, pos Position) (uint64, error) {
	if _, err := sizes.Total(); err != nil {
		return 0, err
	}
	if err := sizes.checkPosition("offset_of", pos); err != nil {
		return 0, err
	}
	var off uint64
	for i := len(sizes) - 1; i >= 0; i-- {
		r := c.Order.role(i, len(sizes))
		off = off*uint64(sizes[r]) + uint64(pos[r])
	}
	return off, nil
}

// Total returns the product of the sizes.
func (c CartesianProduct) Total(sizes Sizes) (uint64, error) {
	return sizes.Total()
}
