package server

import (
	"github.com/nusmiz/2048-impala/agent"
	"github.com/nusmiz/2048-impala/environment"
)

// StepRecord is one environment transition as recorded by an actor.
// Policy is the behaviour-policy probability of the chosen action at
// the time it was sampled. A padding record exists only to round a
// fragment up to TMax after an episode is truncated; its loss
// coefficient is zero and it never counts toward data sizes.
type StepRecord[O environment.Cloner[O]] struct {
	Observation  O
	Action       int64
	Reward       float64
	Policy       float64
	NextTerminal bool
	Padding      bool
}

// TrajectoryFragment is a fixed-length slice of one actor's episode,
// always exactly TMax steps when submitted, plus the observation
// following the last step.
type TrajectoryFragment[O environment.Cloner[O]] struct {
	Steps    []StepRecord[O]
	Terminal O
}

// buildScalars fills the scalar columns of a training batch from a set
// of fragments and appends the fragments' observations, time major, to
// obs: for t = 0..tMax-1 the t-th observation of every fragment in
// order, then every fragment's terminal observation as the final
// column. All slices in s are resized in place, retaining capacity.
func buildScalars[O environment.Cloner[O]](frags []TrajectoryFragment[O],
	tMax int, discount float64, s *agent.TrainingScalars,
	obs []*O) []*O {

	b := len(frags)
	n := tMax * b
	s.Actions = resize(s.Actions, n)
	s.Rewards = resize(s.Rewards, n)
	s.Policies = resize(s.Policies, n)
	s.Discounts = resize(s.Discounts, n)
	s.LossCoefs = resize(s.LossCoefs, n)
	s.DataSizes = resize(s.DataSizes, tMax)

	for t := 0; t < tMax; t++ {
		s.DataSizes[t] = 0
		for i := range frags {
			step := &frags[i].Steps[t]
			j := t*b + i

			obs = append(obs, &step.Observation)
			s.Actions[j] = step.Action
			s.Rewards[j] = step.Reward
			s.Policies[j] = step.Policy
			if step.NextTerminal {
				s.Discounts[j] = 0
			} else {
				s.Discounts[j] = discount
			}
			if step.Padding {
				s.LossCoefs[j] = 0
			} else {
				s.LossCoefs[j] = 1
				s.DataSizes[t]++
			}
		}
	}
	for i := range frags {
		obs = append(obs, &frags[i].Terminal)
	}
	return obs
}

func resize[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	return s[:n]
}
