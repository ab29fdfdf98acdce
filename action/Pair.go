package action

// Pair is a composite action formed from two sub-actions
type Pair[A, B any] struct {
	First  A
	Second B
}

// PairSpace implements a Space over the cartesian product of two
// sub-spaces. Ids are assigned in mixed radix with the first sub-space
// varying fastest:
//
//	id = firstID + K_first * secondID
//
// so the composite id is a bijection onto [0, K_first * K_second).
type PairSpace[A, B any] struct {
	first  Space[A]
	second Space[B]
}

// NewPairSpace returns the product Space of two sub-spaces
func NewPairSpace[A, B any](first Space[A], second Space[B]) PairSpace[A, B] {
	return PairSpace[A, B]{first: first, second: second}
}

// NumActions returns the cardinality of the product space
func (p PairSpace[A, B]) NumActions() int64 {
	return p.first.NumActions() * p.second.NumActions()
}

// ToID converts a composite action to its mixed-radix id
func (p PairSpace[A, B]) ToID(a Pair[A, B]) int64 {
	return p.first.ToID(a.First) + p.first.NumActions()*p.second.ToID(a.Second)
}

// FromID converts a mixed-radix id back to a composite action
func (p PairSpace[A, B]) FromID(id int64) Pair[A, B] {
	k := p.first.NumActions()
	return Pair[A, B]{
		First:  p.first.FromID(id % k),
		Second: p.second.FromID(id / k),
	}
}

// AtariAction is a movement direction paired with a button state
type AtariAction = Pair[NineDirections, Button]

// AtariActionSpace returns the 18-action Space of direction-button
// combinations
func AtariActionSpace() PairSpace[NineDirections, Button] {
	return NewPairSpace[NineDirections, Button](NineDirectionsSpace(),
		ButtonSpace())
}
