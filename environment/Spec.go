package environment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an action or an observation.
type SpecType int

const (
	Action SpecType = iota
	Observation
)

// Spec describes the layout of an action or observation: its shape and
// the inclusive integer bounds of each element. Environments served by
// this module are finite and discrete, so every element ranges over
// the integers in [LowerBound[i], UpperBound[i]].
type Spec struct {
	Shape      mat.Vector
	Type       SpecType
	LowerBound mat.Vector
	UpperBound mat.Vector
}

// NewSpec constructs a new environment specification. The bounds must
// have one entry per element of the shape, and no element's lower
// bound may exceed its upper bound.
func NewSpec(shape mat.Vector, t SpecType, lowerBound,
	upperBound mat.Vector) Spec {
	if shape.Len() != lowerBound.Len() || shape.Len() != upperBound.Len() {
		panic(fmt.Sprintf("newspec: shape length %v must match bound "+
			"lengths %v and %v", shape.Len(), lowerBound.Len(),
			upperBound.Len()))
	}
	for i := 0; i < shape.Len(); i++ {
		if lowerBound.AtVec(i) > upperBound.AtVec(i) {
			panic(fmt.Sprintf("newspec: lower bound %v exceeds upper "+
				"bound %v at element %d", lowerBound.AtVec(i),
				upperBound.AtVec(i), i))
		}
	}
	return Spec{shape, t, lowerBound, upperBound}
}
