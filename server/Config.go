// Package server implements the batching coordinator that connects a
// pool of environment actors, the predictor workers that assemble
// inference batches, and the trainer workers that assemble fixed-length
// trajectory batches for gradient updates. A single coordinating
// goroutine owns the agent and serialises every call to it.
package server

import "fmt"

// Default configuration values.
const (
	DefaultNumActors     = 2048
	DefaultNumPredictors = 2
	DefaultNumTrainers   = 2

	DefaultMinPredictionBatchSize = 512
	DefaultMaxPredictionBatchSize = 1024
	DefaultMinTrainingBatchSize   = 512
	DefaultMaxTrainingBatchSize   = 1024

	DefaultTMax             = 5
	DefaultDiscount         = 0.99
	DefaultAverageLossDecay = 0.99

	DefaultLogIntervalSteps  = 10000
	DefaultSaveIntervalSteps = 1000000
)

// Config holds the server's tuning knobs. The zero value is not
// usable; start from NewConfig and override fields as needed.
type Config struct {
	// Worker pool sizes. One goroutine is started per actor, per
	// predictor, and per trainer.
	NumActors     int
	NumPredictors int
	NumTrainers   int

	// A predictor only wakes once the observation queue holds at
	// least Min entries, and drains at most Max per batch. Min == Max
	// gives exact batches.
	MinPredictionBatchSize int
	MaxPredictionBatchSize int

	// Trainer batch bounds, in trajectory fragments
	MinTrainingBatchSize int
	MaxTrainingBatchSize int

	// TMax is the exact length of every trajectory fragment
	TMax int

	// MaxEpisodeLength truncates episodes after this many steps,
	// padding the open fragment. Zero means unlimited.
	MaxEpisodeLength int

	// Discount is the per-step reward discount γ
	Discount float64

	// AverageLossDecay is the decay of the running loss average
	AverageLossDecay float64

	// LogIntervalSteps and SaveIntervalSteps control how often, in
	// trained steps, a progress line is printed and the agent is
	// checkpointed. Zero disables either.
	LogIntervalSteps  int64
	SaveIntervalSteps int64

	// Seed seeds the per-actor action-sampling RNGs
	Seed uint64

	// ShowProgress draws a terminal progress bar toward the training
	// target
	ShowProgress bool
}

// NewConfig returns a Config populated with the default values
func NewConfig() Config {
	return Config{
		NumActors:              DefaultNumActors,
		NumPredictors:          DefaultNumPredictors,
		NumTrainers:            DefaultNumTrainers,
		MinPredictionBatchSize: DefaultMinPredictionBatchSize,
		MaxPredictionBatchSize: DefaultMaxPredictionBatchSize,
		MinTrainingBatchSize:   DefaultMinTrainingBatchSize,
		MaxTrainingBatchSize:   DefaultMaxTrainingBatchSize,
		TMax:                   DefaultTMax,
		Discount:               DefaultDiscount,
		AverageLossDecay:       DefaultAverageLossDecay,
		LogIntervalSteps:       DefaultLogIntervalSteps,
		SaveIntervalSteps:      DefaultSaveIntervalSteps,
	}
}

// Validate checks the configuration for consistency
func (c Config) Validate() error {
	if c.NumActors <= 0 {
		return fmt.Errorf("config: NumActors must be > 0, got %d", c.NumActors)
	}
	if c.NumPredictors <= 0 {
		return fmt.Errorf("config: NumPredictors must be > 0, got %d",
			c.NumPredictors)
	}
	if c.NumTrainers < 0 {
		return fmt.Errorf("config: NumTrainers must be >= 0, got %d",
			c.NumTrainers)
	}
	if c.MinPredictionBatchSize <= 0 {
		return fmt.Errorf("config: MinPredictionBatchSize must be > 0, got %d",
			c.MinPredictionBatchSize)
	}
	if c.MaxPredictionBatchSize < c.MinPredictionBatchSize {
		return fmt.Errorf("config: MaxPredictionBatchSize (%d) must be >= "+
			"MinPredictionBatchSize (%d)", c.MaxPredictionBatchSize,
			c.MinPredictionBatchSize)
	}
	if c.MinTrainingBatchSize <= 0 {
		return fmt.Errorf("config: MinTrainingBatchSize must be > 0, got %d",
			c.MinTrainingBatchSize)
	}
	if c.MaxTrainingBatchSize < c.MinTrainingBatchSize {
		return fmt.Errorf("config: MaxTrainingBatchSize (%d) must be >= "+
			"MinTrainingBatchSize (%d)", c.MaxTrainingBatchSize,
			c.MinTrainingBatchSize)
	}
	if c.TMax <= 0 {
		return fmt.Errorf("config: TMax must be > 0, got %d", c.TMax)
	}
	if c.MaxEpisodeLength < 0 {
		return fmt.Errorf("config: MaxEpisodeLength must be >= 0, got %d",
			c.MaxEpisodeLength)
	}
	if c.Discount <= 0 || c.Discount > 1 {
		return fmt.Errorf("config: Discount must be in (0, 1], got %v",
			c.Discount)
	}
	if c.AverageLossDecay < 0 || c.AverageLossDecay >= 1 {
		return fmt.Errorf("config: AverageLossDecay must be in [0, 1), got %v",
			c.AverageLossDecay)
	}
	if c.LogIntervalSteps < 0 {
		return fmt.Errorf("config: LogIntervalSteps must be >= 0, got %d",
			c.LogIntervalSteps)
	}
	if c.SaveIntervalSteps < 0 {
		return fmt.Errorf("config: SaveIntervalSteps must be >= 0, got %d",
			c.SaveIntervalSteps)
	}
	return nil
}
