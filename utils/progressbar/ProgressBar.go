// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// ProgressBar implements a concurrent progress bar. Progress updates
// arrive from worker goroutines through Add; a single drawing goroutine
// repaints the bar on a fixed cadence so that callers never block on
// terminal IO.
type ProgressBar struct {
	width int
	max   int64

	mu      sync.Mutex
	current int64
	closed  bool

	closeEvent chan struct{}
	done       chan struct{}
}

// New returns a new progress bar that is width characters wide and
// reaches 100% when Add has accumulated max progress. The bar repaints
// every updateEvery until Close is called.
func New(width int, max int64, updateEvery time.Duration) *ProgressBar {
	p := &ProgressBar{
		width:      width,
		max:        max,
		closeEvent: make(chan struct{}),
		done:       make(chan struct{}),
	}
	go p.draw(updateEvery)
	return p
}

// Add advances the bar by n units of progress
func (p *ProgressBar) Add(n int64) {
	p.mu.Lock()
	p.current += n
	if p.current > p.max {
		p.current = p.max
	}
	p.mu.Unlock()
}

// Close stops the drawing goroutine and moves the cursor past the bar.
// Close is idempotent.
func (p *ProgressBar) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.closeEvent)
	<-p.done
	fmt.Println()
}

func (p *ProgressBar) draw(updateEvery time.Duration) {
	tick := time.NewTicker(updateEvery)
	defer tick.Stop()
	defer close(p.done)

	start := time.Now()
	var bar strings.Builder

	for {
		select {
		case <-p.closeEvent:
			p.paint(&bar, start)
			return
		case <-tick.C:
			p.paint(&bar, start)
		}
	}
}

func (p *ProgressBar) paint(bar *strings.Builder, start time.Time) {
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()

	fraction := float64(current) / float64(p.max)

	bar.Reset()
	bar.WriteString("|")
	filled := int(fraction * float64(p.width))
	for i := 0; i < p.width; i++ {
		if i < filled {
			bar.WriteString("█")
		} else {
			bar.WriteString(" ")
		}
	}
	fmt.Fprintf(bar, "| [%.2f%% | elapsed: %v]", fraction*100,
		time.Since(start).Round(time.Second))

	fmt.Printf("\r\033[K%v", bar.String())
}
