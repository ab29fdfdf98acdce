package agent

import "fmt"

// Loss is the training-loss value reported by an Agent. Losses combine
// by exponential moving average and print in operator logs.
type Loss interface {
	fmt.Stringer

	// EMA returns decay*l + (1-decay)*next
	EMA(next Loss, decay float64) Loss

	// Zero returns the zero loss of this type, the starting value of a
	// running average
	Zero() Loss
}

// A3CLoss is an actor-critic loss split into its value, policy, and
// entropy components. The zero value is the starting value of a
// running average.
type A3CLoss struct {
	V       float64
	Pi      float64
	Entropy float64
}

// EMA combines two A3CLoss values componentwise
func (l A3CLoss) EMA(next Loss, decay float64) Loss {
	n, ok := next.(A3CLoss)
	if !ok {
		panic(fmt.Sprintf("ema: cannot combine A3CLoss with %T", next))
	}
	return A3CLoss{
		V:       decay*l.V + (1.0-decay)*n.V,
		Pi:      decay*l.Pi + (1.0-decay)*n.Pi,
		Entropy: decay*l.Entropy + (1.0-decay)*n.Entropy,
	}
}

// Zero returns the zero loss
func (l A3CLoss) Zero() Loss {
	return A3CLoss{}
}

func (l A3CLoss) String() string {
	return fmt.Sprintf("%v %v %v", l.V, l.Pi, l.Entropy)
}
