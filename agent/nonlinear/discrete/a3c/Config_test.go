package a3c

import (
	"testing"

	"github.com/nusmiz/2048-impala/network"
)

func TestConfigValidate(t *testing.T) {
	if err := NewConfig().Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"mismatched activations", func(c *Config) {
			c.Activations = append(c.Activations, network.ReLU())
		}},
		{"zero learning rate", func(c *Config) { c.LearningRate = 0 }},
		{"rms decay of one", func(c *Config) { c.RMSDecay = 1 }},
		{"zero rms epsilon", func(c *Config) { c.RMSEpsilon = 0 }},
		{"negative value coef", func(c *Config) { c.ValueCoef = -1 }},
		{"negative entropy coef", func(c *Config) { c.EntropyCoef = -1 }},
		{"nil init", func(c *Config) { c.InitWFn = nil }},
	}
	for _, test := range tests {
		cfg := NewConfig()
		test.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%v: expected validation error", test.name)
		}
	}
}

func TestNewRejectsBadDimensions(t *testing.T) {
	featurize := func(*struct{}) []float64 { return nil }

	if _, err := New[struct{}](featurize, 0, 4, NewConfig()); err == nil {
		t.Error("new: expected error for zero features")
	}
	if _, err := New[struct{}](featurize, 16, 0, NewConfig()); err == nil {
		t.Error("new: expected error for zero actions")
	}
}
