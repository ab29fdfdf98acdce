// Package tracker implements Trackers, which record and save data
// generated while training
package tracker

import (
	"encoding/gob"
	"log"
	"os"
)

// Episode summarises one completed episode
type Episode struct {
	Steps  int
	Return float64
}

// Interface Tracker keeps track of training data and saves the data
// after training has finished
type Tracker interface {
	Track(e Episode)
	Save() error
}

// LoadData loads and returns the data saved by a Tracker
func LoadData(filename string) []float64 {
	file, err := os.Open(filename)
	if err != nil {
		log.Fatalf("could not open data file: %v", err)
	}
	defer file.Close()

	dec := gob.NewDecoder(file)
	var data []float64

	err = dec.Decode(&data)
	if err != nil {
		log.Fatalf("could not decode data: %v", err)
	}

	return data
}
