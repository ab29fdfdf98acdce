package server

import (
	"sync"

	"github.com/nusmiz/2048-impala/environment"
)

// predictor drains the observation queue into a batch, packs the batch
// tensor, publishes itself to the coordinator, and once the agent has
// filled its policy buffer hands each policy row back to the actor
// that submitted the matching observation.
type predictor[O environment.Cloner[O], B, A any] struct {
	server *Server[O, B, A]

	mu         sync.Mutex
	cond       *sync.Cond
	processing bool
	quit       bool

	// Batch buffers, reused across iterations
	states       B
	policies     []float64
	observations []*O
	actors       []*actor[O, B, A]
}

func newPredictor[O environment.Cloner[O], B, A any](
	s *Server[O, B, A]) *predictor[O, B, A] {

	k := int(s.space.NumActions())
	p := &predictor[O, B, A]{
		server:       s,
		policies:     make([]float64, 0, s.cfg.MaxPredictionBatchSize*k),
		observations: make([]*O, 0, s.cfg.MaxPredictionBatchSize),
		actors:       make([]*actor[O, B, A], 0, s.cfg.MaxPredictionBatchSize),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *predictor[O, B, A]) run() {
	defer p.server.predWg.Done()

	s := p.server
	k := int(s.space.NumActions())

	for {
		p.observations = p.observations[:0]
		p.actors = p.actors[:0]

		s.predMu.Lock()
		for s.predQueue.Len() < s.cfg.MinPredictionBatchSize && !s.predQuit {
			s.predCond.Wait()
		}
		if s.predQuit {
			s.predMu.Unlock()
			return
		}
		for s.predQueue.Len() > 0 &&
			len(p.observations) < s.cfg.MaxPredictionBatchSize {
			req := s.predQueue.PopFront()
			p.observations = append(p.observations, req.observation)
			p.actors = append(p.actors, req.actor)
		}
		remain := s.predQueue.Len() >= s.cfg.MinPredictionBatchSize
		s.predMu.Unlock()
		if remain {
			s.predCond.Signal()
		}

		p.policies = resize(p.policies, len(p.actors)*k)
		s.batcher.MakeBatch(p.observations, &p.states)

		// Processing must be marked before publication: the agent may
		// complete before this goroutine reaches the wait below.
		p.mu.Lock()
		p.processing = true
		p.mu.Unlock()

		s.readyMu.Lock()
		s.readyPredictors = append(s.readyPredictors, p)
		s.readyMu.Unlock()
		s.readyCond.Signal()

		p.mu.Lock()
		for p.processing && !p.quit {
			p.cond.Wait()
		}
		if p.quit {
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		for i, a := range p.actors {
			a.deliverPolicy(p.policies[i*k : (i+1)*k])
		}
	}
}

// processFinished signals that the agent has filled the policy buffer.
// Invoked as the agent's completion callback, on whatever goroutine
// the agent fires it from.
func (p *predictor[O, B, A]) processFinished() {
	p.mu.Lock()
	p.processing = false
	p.mu.Unlock()
	p.cond.Signal()
}
