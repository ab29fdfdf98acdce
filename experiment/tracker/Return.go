package tracker

import (
	"encoding/gob"
	"fmt"
	"os"
	"sync"
)

// Return tracks the cumulative reward of every completed episode and
// saves the returns to disk as a gob-encoded []float64. Track may be
// called concurrently with itself and with Save.
type Return struct {
	mu       sync.Mutex
	returns  []float64
	filename string
}

// NewReturn returns a Return tracker that will save to filename
func NewReturn(filename string) *Return {
	return &Return{filename: filename}
}

// Track records one completed episode
func (r *Return) Track(e Episode) {
	r.mu.Lock()
	r.returns = append(r.returns, e.Return)
	r.mu.Unlock()
}

// Save writes all tracked returns to the tracker's file
func (r *Return) Save() error {
	r.mu.Lock()
	data := make([]float64, len(r.returns))
	copy(data, r.returns)
	r.mu.Unlock()

	file, err := os.Create(r.filename)
	if err != nil {
		return fmt.Errorf("save: could not create data file: %v", err)
	}
	defer file.Close()

	enc := gob.NewEncoder(file)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("save: could not encode data: %v", err)
	}
	return nil
}
