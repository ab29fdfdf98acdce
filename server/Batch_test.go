package server

import (
	"testing"

	"github.com/nusmiz/2048-impala/agent"
)

// obsID is a minimal observation carrying only an identity
type obsID struct {
	id int
}

func (o obsID) Clone() obsID {
	return o
}

func fragment(terminalID int, steps ...StepRecord[obsID]) TrajectoryFragment[obsID] {
	return TrajectoryFragment[obsID]{
		Steps:    steps,
		Terminal: obsID{id: terminalID},
	}
}

func TestBuildScalarsTimeMajor(t *testing.T) {
	const tMax = 3
	const discount = 0.9

	frags := []TrajectoryFragment[obsID]{
		fragment(103,
			StepRecord[obsID]{Observation: obsID{100}, Action: 0, Reward: 1, Policy: 0.5},
			StepRecord[obsID]{Observation: obsID{101}, Action: 1, Reward: 2, Policy: 0.25},
			StepRecord[obsID]{Observation: obsID{102}, Action: 2, Reward: 3, Policy: 0.125, NextTerminal: true},
		),
		fragment(203,
			StepRecord[obsID]{Observation: obsID{200}, Action: 3, Reward: -1, Policy: 1},
			StepRecord[obsID]{Observation: obsID{201}, Action: 0, Reward: 0, Policy: 1, NextTerminal: true, Padding: false},
			StepRecord[obsID]{Observation: obsID{202}, Action: 0, Reward: 0, Policy: 1, NextTerminal: true, Padding: true},
		),
	}

	var s agent.TrainingScalars
	var obs []*obsID
	obs = buildScalars(frags, tMax, discount, &s, obs)

	// T+1 observation columns, time major: for each t the t-th step of
	// every fragment, then the terminal observations
	wantObs := []int{100, 200, 101, 201, 102, 202, 103, 203}
	if len(obs) != len(wantObs) {
		t.Fatalf("observations: got %d, want %d", len(obs), len(wantObs))
	}
	for i, o := range obs {
		if o.id != wantObs[i] {
			t.Errorf("observation %d: got id %d, want %d", i, o.id, wantObs[i])
		}
	}

	// Scalar columns in (t, b) row-major order
	wantActions := []int64{0, 3, 1, 0, 2, 0}
	wantRewards := []float64{1, -1, 2, 0, 3, 0}
	wantDiscounts := []float64{discount, discount, discount, 0, 0, 0}
	wantCoefs := []float64{1, 1, 1, 1, 1, 0}
	wantSizes := []int64{2, 2, 1}

	for i := range wantActions {
		if s.Actions[i] != wantActions[i] {
			t.Errorf("action %d: got %d, want %d", i, s.Actions[i],
				wantActions[i])
		}
		if s.Rewards[i] != wantRewards[i] {
			t.Errorf("reward %d: got %v, want %v", i, s.Rewards[i],
				wantRewards[i])
		}
		if s.Discounts[i] != wantDiscounts[i] {
			t.Errorf("discount %d: got %v, want %v", i, s.Discounts[i],
				wantDiscounts[i])
		}
		if s.LossCoefs[i] != wantCoefs[i] {
			t.Errorf("loss coef %d: got %v, want %v", i, s.LossCoefs[i],
				wantCoefs[i])
		}
	}
	for i := range wantSizes {
		if s.DataSizes[i] != wantSizes[i] {
			t.Errorf("data size %d: got %d, want %d", i, s.DataSizes[i],
				wantSizes[i])
		}
	}
}

func TestBuildScalarsPaddingNeverCounts(t *testing.T) {
	// A padding sample must have loss coefficient zero and must not
	// contribute to its column's data size, regardless of flags
	const tMax = 2
	frags := []TrajectoryFragment[obsID]{
		fragment(3,
			StepRecord[obsID]{Observation: obsID{1}, Reward: 5},
			StepRecord[obsID]{Observation: obsID{2}, Policy: 1, NextTerminal: true, Padding: true},
		),
	}

	var s agent.TrainingScalars
	obs := buildScalars(frags, tMax, 0.99, &s, nil)

	if len(obs) != 3 {
		t.Fatalf("observations: got %d, want 3", len(obs))
	}
	if s.LossCoefs[0] != 1 || s.LossCoefs[1] != 0 {
		t.Errorf("loss coefs: got %v", s.LossCoefs)
	}
	if s.DataSizes[0] != 1 || s.DataSizes[1] != 0 {
		t.Errorf("data sizes: got %v", s.DataSizes)
	}
	if s.Discounts[1] != 0 {
		t.Errorf("padding discount: got %v, want 0", s.Discounts[1])
	}
}

func TestBuildScalarsReusesBuffers(t *testing.T) {
	const tMax = 2
	frags := []TrajectoryFragment[obsID]{
		fragment(3,
			StepRecord[obsID]{Observation: obsID{1}},
			StepRecord[obsID]{Observation: obsID{2}},
		),
	}

	var s agent.TrainingScalars
	obs := buildScalars(frags, tMax, 0.99, &s, nil)
	first := &s.Actions[0]

	obs = obs[:0]
	buildScalars(frags, tMax, 0.99, &s, obs)
	if first != &s.Actions[0] {
		t.Error("buildscalars: scalar buffers should be reused")
	}
}
