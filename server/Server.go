package server

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nusmiz/2048-impala/action"
	"github.com/nusmiz/2048-impala/agent"
	"github.com/nusmiz/2048-impala/environment"
	"github.com/nusmiz/2048-impala/experiment/tracker"
	"github.com/nusmiz/2048-impala/utils/deque"
	"github.com/nusmiz/2048-impala/utils/progressbar"
)

// predictionRequest is one pending inference request. The observation
// is borrowed from the submitting actor, which stays blocked on its
// awaiting-policy condition for the request's whole lifetime, so the
// borrow is safe.
type predictionRequest[O environment.Cloner[O], B, A any] struct {
	observation *O
	actor       *actor[O, B, A]
}

// Server owns the observation and trajectory queues, the worker pools,
// and the agent. It is generic over the environment's observation,
// packed batch, and action types; the agent is a dynamic interface
// since it is called once per batch, not per element.
type Server[O environment.Cloner[O], B, A any] struct {
	cfg     Config
	agent   agent.Agent[B]
	space   action.Space[A]
	batcher environment.Batcher[O, B]

	// Observation queue: actors produce, predictors drain
	predQueue deque.Deque[predictionRequest[O, B, A]]
	predMu    sync.Mutex
	predCond  *sync.Cond
	predQuit  bool

	// Trajectory queue: actors produce, trainers drain
	trainQueue deque.Deque[TrajectoryFragment[O]]
	trainMu    sync.Mutex
	trainCond  *sync.Cond
	trainQuit  bool

	// Published-work lists, taken atomically by the coordinator
	readyMu         sync.Mutex
	readyCond       *sync.Cond
	readyPredictors []*predictor[O, B, A]
	readyTrainers   []*trainer[O, B, A]
	readyQuit       bool

	actors     []*actor[O, B, A]
	predictors []*predictor[O, B, A]
	trainers   []*trainer[O, B, A]
	actorWg    sync.WaitGroup
	predWg     sync.WaitGroup
	trainWg    sync.WaitGroup

	trackers []tracker.Tracker

	// Training progress, shared with agent callbacks which may fire
	// on any goroutine
	progressMu   sync.Mutex
	trainedSteps int64
	avgLoss      agent.Loss

	closeOnce sync.Once
}

// New constructs a Server and starts every worker goroutine. Actors
// begin driving episodes immediately; batches accumulate until Train
// is called. newEnv is called once per actor with the actor's index.
// Completed episodes of the main actor (index 0) are reported to the
// given trackers.
func New[O environment.Cloner[O], B, A any](cfg Config, ag agent.Agent[B],
	space action.Space[A], batcher environment.Batcher[O, B],
	newEnv func(i int) environment.Environment[O, A],
	trackers ...tracker.Tracker) (*Server[O, B, A], error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server[O, B, A]{
		cfg:      cfg,
		agent:    ag,
		space:    space,
		batcher:  batcher,
		trackers: trackers,
	}
	s.predCond = sync.NewCond(&s.predMu)
	s.trainCond = sync.NewCond(&s.trainMu)
	s.readyCond = sync.NewCond(&s.readyMu)

	for i := 0; i < cfg.NumPredictors; i++ {
		s.predictors = append(s.predictors, newPredictor(s))
	}
	for i := 0; i < cfg.NumTrainers; i++ {
		s.trainers = append(s.trainers, newTrainer(s))
	}
	for i := 0; i < cfg.NumActors; i++ {
		s.actors = append(s.actors, newActor(s, i, newEnv(i)))
	}

	s.predWg.Add(len(s.predictors))
	for _, p := range s.predictors {
		go p.run()
	}
	s.trainWg.Add(len(s.trainers))
	for _, t := range s.trainers {
		go t.run()
	}
	s.actorWg.Add(len(s.actors))
	for _, a := range s.actors {
		go a.run()
	}

	return s, nil
}

// Train runs the coordinator loop on the calling goroutine until
// trainingSteps environment steps have been trained on. It serially
// invokes the agent on every published batch, tracks the running loss
// average, logs and checkpoints on interval boundaries, and drains
// outstanding callbacks through agent.Sync before returning.
func (s *Server[O, B, A]) Train(trainingSteps int64) {
	var bar *progressbar.ProgressBar
	if s.cfg.ShowProgress {
		bar = progressbar.New(40, trainingSteps, time.Second)
		defer bar.Close()
	}

	var trainers []*trainer[O, B, A]
	var predictors []*predictor[O, B, A]

	for {
		trainers = trainers[:0]
		predictors = predictors[:0]

		s.readyMu.Lock()
		for len(s.readyTrainers) == 0 && len(s.readyPredictors) == 0 &&
			!s.readyQuit {
			s.readyCond.Wait()
		}
		if s.readyQuit {
			s.readyMu.Unlock()
			s.agent.Sync()
			return
		}
		trainers = append(trainers, s.readyTrainers...)
		predictors = append(predictors, s.readyPredictors...)
		s.readyTrainers = s.readyTrainers[:0]
		s.readyPredictors = s.readyPredictors[:0]
		s.readyMu.Unlock()

		for _, tr := range trainers {
			tr := tr
			var numData int64
			for _, n := range tr.scalars.DataSizes {
				numData += n
			}
			err := s.agent.Train(&tr.states, &tr.scalars,
				func(loss agent.Loss) {
					tr.processFinished()
					s.recordTraining(loss, numData, bar)
				})
			if err != nil {
				log.Fatalf("train: agent train failed: %v", err)
			}
		}
		for _, pr := range predictors {
			pr := pr
			err := s.agent.Predict(&pr.states, pr.policies,
				pr.processFinished)
			if err != nil {
				log.Fatalf("train: agent predict failed: %v", err)
			}
		}

		if s.trained() >= trainingSteps {
			s.agent.Sync()
			fmt.Println("training finished")
			return
		}
	}
}

// recordTraining folds one completed training call into the running
// totals. It may be called from any goroutine the agent fires its
// callback on.
func (s *Server[O, B, A]) recordTraining(loss agent.Loss, numData int64,
	bar *progressbar.ProgressBar) {

	s.progressMu.Lock()
	prev := s.trainedSteps
	s.trainedSteps += numData
	if s.avgLoss == nil {
		s.avgLoss = loss.Zero()
	}
	s.avgLoss = s.avgLoss.EMA(loss, s.cfg.AverageLossDecay)

	logLine := ""
	saveAt := int64(-1)
	if n := s.cfg.LogIntervalSteps; n > 0 && s.trainedSteps/n != prev/n {
		logLine = fmt.Sprintf("steps %d , loss %v", s.trainedSteps, s.avgLoss)
	}
	if n := s.cfg.SaveIntervalSteps; n > 0 && s.trainedSteps/n != prev/n {
		saveAt = s.trainedSteps
	}
	s.progressMu.Unlock()

	if bar != nil {
		bar.Add(numData)
	}
	if logLine != "" {
		fmt.Println(logLine)
	}
	if saveAt >= 0 {
		if err := s.agent.Save(saveAt); err != nil {
			log.Fatalf("train: agent save failed: %v", err)
		}
	}
}

// trained returns the number of steps trained on so far
func (s *Server[O, B, A]) trained() int64 {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	return s.trainedSteps
}

// trackEpisode reports one completed main-actor episode to every
// registered tracker
func (s *Server[O, B, A]) trackEpisode(e tracker.Episode) {
	for _, t := range s.trackers {
		t.Track(e)
	}
}

// Close stops every worker: predictors first, then trainers, then
// actors, each tier joined before the next is signalled. Queued
// requests and fragments are discarded. Close is idempotent and must
// be called once training is done; it also unblocks a
// concurrent Train call.
func (s *Server[O, B, A]) Close() {
	s.closeOnce.Do(func() {
		s.predMu.Lock()
		s.predQuit = true
		s.predMu.Unlock()
		s.predCond.Broadcast()
		for _, p := range s.predictors {
			p.mu.Lock()
			p.quit = true
			p.mu.Unlock()
			p.cond.Broadcast()
		}
		s.predWg.Wait()

		s.trainMu.Lock()
		s.trainQuit = true
		s.trainMu.Unlock()
		s.trainCond.Broadcast()
		for _, t := range s.trainers {
			t.mu.Lock()
			t.quit = true
			t.mu.Unlock()
			t.cond.Broadcast()
		}
		s.trainWg.Wait()

		for _, a := range s.actors {
			a.mu.Lock()
			a.quit = true
			a.mu.Unlock()
			a.cond.Broadcast()
		}
		s.actorWg.Wait()

		s.readyMu.Lock()
		s.readyQuit = true
		s.readyMu.Unlock()
		s.readyCond.Broadcast()

		s.predMu.Lock()
		s.predQueue.Clear()
		s.predMu.Unlock()
		s.trainMu.Lock()
		s.trainQueue.Clear()
		s.trainMu.Unlock()
	})
}
