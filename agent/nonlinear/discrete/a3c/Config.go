package a3c

import (
	"fmt"

	G "gorgonia.org/gorgonia"

	"github.com/nusmiz/2048-impala/network"
)

// Config implements a specific configuration of an A3C agent
type Config struct {
	// Hidden layer sizes and their activations
	HiddenSizes []int
	Activations []network.Activation

	// RMSProp hyperparameters
	LearningRate float64
	RMSDecay     float64
	RMSEpsilon   float64

	// Loss mixing coefficients: the total loss is
	// policy + 0.5*ValueCoef*value - EntropyCoef*entropy
	ValueCoef   float64
	EntropyCoef float64

	// InitWFn determines the weight initialization scheme
	InitWFn G.InitWFn

	// ModelDir is the directory checkpoints are saved in
	ModelDir string
}

// NewConfig returns a Config populated with the default values
func NewConfig() Config {
	return Config{
		HiddenSizes:  []int{256},
		Activations:  []network.Activation{network.ReLU()},
		LearningRate: 0.01,
		RMSDecay:     0.95,
		RMSEpsilon:   0.1,
		ValueCoef:    0.5,
		EntropyCoef:  0.01,
		InitWFn:      G.GlorotU(1.0),
		ModelDir:     ".",
	}
}

// Validate checks the configuration for consistency
func (c Config) Validate() error {
	if len(c.HiddenSizes) != len(c.Activations) {
		return fmt.Errorf("config: invalid number of activations"+
			"\n\twant(%d)\n\thave(%d)", len(c.HiddenSizes),
			len(c.Activations))
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("config: LearningRate must be > 0, got %v",
			c.LearningRate)
	}
	if c.RMSDecay < 0 || c.RMSDecay >= 1 {
		return fmt.Errorf("config: RMSDecay must be in [0, 1), got %v",
			c.RMSDecay)
	}
	if c.RMSEpsilon <= 0 {
		return fmt.Errorf("config: RMSEpsilon must be > 0, got %v",
			c.RMSEpsilon)
	}
	if c.ValueCoef < 0 {
		return fmt.Errorf("config: ValueCoef must be >= 0, got %v",
			c.ValueCoef)
	}
	if c.EntropyCoef < 0 {
		return fmt.Errorf("config: EntropyCoef must be >= 0, got %v",
			c.EntropyCoef)
	}
	if c.InitWFn == nil {
		return fmt.Errorf("config: InitWFn must not be nil")
	}
	return nil
}
