package agent

import (
	"math"
	"testing"
)

func TestA3CLossEMA(t *testing.T) {
	avg := A3CLoss{}
	next := A3CLoss{V: 1.0, Pi: 2.0, Entropy: -0.5}

	got := avg.EMA(next, 0.9).(A3CLoss)
	want := A3CLoss{V: 0.1, Pi: 0.2, Entropy: -0.05}

	const tol = 1e-12
	if math.Abs(got.V-want.V) > tol || math.Abs(got.Pi-want.Pi) > tol ||
		math.Abs(got.Entropy-want.Entropy) > tol {
		t.Errorf("ema: got %+v, want %+v", got, want)
	}
}

func TestA3CLossEMAIdentity(t *testing.T) {
	// With decay 1 the average is unchanged regardless of the new loss
	avg := A3CLoss{V: 3.0, Pi: 4.0, Entropy: 5.0}
	got := avg.EMA(A3CLoss{V: 100}, 1.0).(A3CLoss)
	if got != avg {
		t.Errorf("ema with decay 1: got %+v, want %+v", got, avg)
	}
}

func TestA3CLossString(t *testing.T) {
	l := A3CLoss{V: 0.5, Pi: 1.5, Entropy: -2}
	if got := l.String(); got != "0.5 1.5 -2" {
		t.Errorf("string: got %q", got)
	}
}
