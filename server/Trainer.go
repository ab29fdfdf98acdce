package server

import (
	"sync"

	"github.com/nusmiz/2048-impala/agent"
	"github.com/nusmiz/2048-impala/environment"
)

// trainer drains the trajectory queue into a batch of fragments,
// builds the time-major training batch, publishes itself to the
// coordinator, and idles until the agent has consumed the batch.
type trainer[O environment.Cloner[O], B, A any] struct {
	server *Server[O, B, A]

	mu         sync.Mutex
	cond       *sync.Cond
	processing bool
	quit       bool

	// Batch buffers, reused across iterations
	states    B
	scalars   agent.TrainingScalars
	fragments []TrajectoryFragment[O]
	obs       []*O
}

func newTrainer[O environment.Cloner[O], B, A any](
	s *Server[O, B, A]) *trainer[O, B, A] {

	n := s.cfg.MaxTrainingBatchSize * s.cfg.TMax
	t := &trainer[O, B, A]{
		server: s,
		scalars: agent.TrainingScalars{
			Actions:   make([]int64, 0, n),
			Rewards:   make([]float64, 0, n),
			Policies:  make([]float64, 0, n),
			Discounts: make([]float64, 0, n),
			LossCoefs: make([]float64, 0, n),
			DataSizes: make([]int64, 0, s.cfg.TMax),
		},
		fragments: make([]TrajectoryFragment[O], 0, s.cfg.MaxTrainingBatchSize),
		obs:       make([]*O, 0, s.cfg.MaxTrainingBatchSize*(s.cfg.TMax+1)),
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

func (t *trainer[O, B, A]) run() {
	defer t.server.trainWg.Done()

	s := t.server

	for {
		t.fragments = t.fragments[:0]
		t.obs = t.obs[:0]

		s.trainMu.Lock()
		for s.trainQueue.Len() < s.cfg.MinTrainingBatchSize && !s.trainQuit {
			s.trainCond.Wait()
		}
		if s.trainQuit {
			s.trainMu.Unlock()
			return
		}
		for s.trainQueue.Len() > 0 &&
			len(t.fragments) < s.cfg.MaxTrainingBatchSize {
			t.fragments = append(t.fragments, s.trainQueue.PopFront())
		}
		remain := s.trainQueue.Len() >= s.cfg.MinTrainingBatchSize
		s.trainMu.Unlock()
		if remain {
			s.trainCond.Signal()
		}

		t.obs = buildScalars(t.fragments, s.cfg.TMax, s.cfg.Discount,
			&t.scalars, t.obs)
		s.batcher.MakeBatch(t.obs, &t.states)

		t.mu.Lock()
		t.processing = true
		t.mu.Unlock()

		s.readyMu.Lock()
		s.readyTrainers = append(s.readyTrainers, t)
		s.readyMu.Unlock()
		s.readyCond.Signal()

		t.mu.Lock()
		for t.processing && !t.quit {
			t.cond.Wait()
		}
		if t.quit {
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()
	}
}

// processFinished signals that the agent has consumed this trainer's
// batch
func (t *trainer[O, B, A]) processFinished() {
	t.mu.Lock()
	t.processing = false
	t.mu.Unlock()
	t.cond.Signal()
}
