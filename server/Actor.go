package server

import (
	"fmt"
	"math"
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/nusmiz/2048-impala/environment"
	"github.com/nusmiz/2048-impala/experiment/tracker"
)

// actor drives one environment episode at a time. It publishes its
// current observation to the observation queue, blocks until a
// predictor delivers a policy, samples an action, and steps its
// environment, accumulating step records into trajectory fragments.
type actor[O environment.Cloner[O], B, A any] struct {
	server *Server[O, B, A]
	index  int
	env    environment.Environment[O, A]

	mu         sync.Mutex
	cond       *sync.Cond
	policy     []float64
	predicting bool
	quit       bool

	src     rand.Source
	weights []float64
}

func newActor[O environment.Cloner[O], B, A any](s *Server[O, B, A], index int,
	env environment.Environment[O, A]) *actor[O, B, A] {

	k := int(s.space.NumActions())
	a := &actor[O, B, A]{
		server:  s,
		index:   index,
		env:     env,
		policy:  make([]float64, k),
		weights: make([]float64, k),
		src:     rand.NewSource(s.cfg.Seed + uint64(index)),
	}
	a.cond = sync.NewCond(&a.mu)
	return a
}

func (a *actor[O, B, A]) run() {
	defer a.server.actorWg.Done()

	s := a.server
	pending := make([]StepRecord[O], 0, s.cfg.TMax)

	for {
		sumReward := 0.0
		t := 0
		pending = pending[:0]
		observation := a.env.Reset()

		for {
			if !a.awaitPolicy(&observation) {
				return
			}

			id, prob := a.sampleAction()
			act := s.space.FromID(id)

			if a.isMainActor() {
				a.env.Render()
			}

			next, reward, status := a.env.Step(act)
			t++
			sumReward += reward

			pending = append(pending, StepRecord[O]{
				Observation:  observation,
				Action:       id,
				Reward:       reward,
				Policy:       prob,
				NextTerminal: status == environment.Finished,
			})
			if len(pending) == s.cfg.TMax {
				pending = a.submitFragment(pending, next)
			}

			if status == environment.Finished {
				break
			}
			if limit := s.cfg.MaxEpisodeLength; limit > 0 && t >= limit {
				if len(pending) > 0 {
					pending = append(pending, StepRecord[O]{
						Observation:  next.Clone(),
						Policy:       1.0,
						NextTerminal: true,
						Padding:      true,
					})
					if len(pending) == s.cfg.TMax {
						pending = a.submitFragment(pending, next)
					}
				}
				break
			}
			observation = next
		}

		if a.isMainActor() {
			fmt.Printf("finish episode : %d %.5g\n", t, sumReward)
			s.trackEpisode(tracker.Episode{Steps: t, Return: sumReward})
		}
	}
}

// awaitPolicy publishes the actor's current observation and blocks
// until a predictor delivers the policy for it. It returns false if
// the actor is shutting down. The observation pointer stays valid for
// the whole wait because the actor does not touch it until the policy
// arrives.
func (a *actor[O, B, A]) awaitPolicy(observation *O) bool {
	s := a.server

	a.mu.Lock()
	if a.quit {
		a.mu.Unlock()
		return false
	}
	a.predicting = true
	a.mu.Unlock()

	s.predMu.Lock()
	s.predQueue.PushBack(predictionRequest[O, B, A]{
		observation: observation,
		actor:       a,
	})
	enough := s.predQueue.Len() >= s.cfg.MinPredictionBatchSize
	s.predMu.Unlock()
	if enough {
		s.predCond.Signal()
	}

	a.mu.Lock()
	for a.predicting && !a.quit {
		a.cond.Wait()
	}
	quit := a.quit
	a.mu.Unlock()
	return !quit
}

// sampleAction draws an action id from the delivered policy, redrawing
// until the environment accepts it. The returned probability is the
// policy value at the finally accepted action, not renormalised over
// the valid subset. If the valid actions carry no probability mass the
// redraw could never terminate, so the actor fails fast instead.
func (a *actor[O, B, A]) sampleAction() (int64, float64) {
	s := a.server

	validMass := 0.0
	for i := range a.policy {
		a.weights[i] = math.Max(a.policy[i], 0)
		if a.env.IsValidAction(s.space.FromID(int64(i))) {
			validMass += a.weights[i]
		}
	}
	if validMass <= 0 {
		panic(fmt.Sprintf("sampleaction: actor %d: no probability mass on "+
			"valid actions", a.index))
	}

	dist := distuv.NewCategorical(a.weights, a.src)
	for {
		id := int64(dist.Rand())
		if a.env.IsValidAction(s.space.FromID(id)) {
			return id, a.policy[id]
		}
	}
}

// submitFragment moves the pending steps into the trajectory queue and
// returns a fresh pending buffer. With no trainers configured the
// steps are simply dropped.
func (a *actor[O, B, A]) submitFragment(pending []StepRecord[O],
	next O) []StepRecord[O] {

	s := a.server
	if s.cfg.NumTrainers == 0 {
		return pending[:0]
	}

	frag := TrajectoryFragment[O]{Steps: pending, Terminal: next.Clone()}
	s.trainMu.Lock()
	s.trainQueue.PushBack(frag)
	enough := s.trainQueue.Len() >= s.cfg.MinTrainingBatchSize
	s.trainMu.Unlock()
	if enough {
		s.trainCond.Signal()
	}

	return make([]StepRecord[O], 0, s.cfg.TMax)
}

// deliverPolicy copies one policy row into the actor's buffer and
// wakes it. Called by predictors.
func (a *actor[O, B, A]) deliverPolicy(policy []float64) {
	a.mu.Lock()
	copy(a.policy, policy)
	a.predicting = false
	a.mu.Unlock()
	a.cond.Signal()
}

// isMainActor reports whether this actor renders and logs episode
// summaries
func (a *actor[O, B, A]) isMainActor() bool {
	return a.index == 0
}
