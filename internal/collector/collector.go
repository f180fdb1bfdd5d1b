// Package collector aggregates batch outcomes of a simulation run.
package collector

import (
	"sync"
	"time"

	"dispatchdesk/internal/core"
)

// BatchOutcome is the result of submitting one batch.
type BatchOutcome struct {
	RunID     string        `json:"runId"`
	Index     int           `json:"index"` // 1-based
	Submitted int           `json:"submitted"`
	Processed int           `json:"processed"`
	Duration  time.Duration `json:"duration"`
	Err       string        `json:"error,omitempty"`
}

// Failed reports whether the batch request failed.
func (o BatchOutcome) Failed() bool {
	return o.Err != ""
}

// Collector gathers outcomes reported by a simulator and produces a summary.
type Collector struct {
	outcomes  []BatchOutcome
	ch        chan BatchOutcome
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	clock     core.Clock
	startTime time.Time
	endTime   time.Time
}

// NewCollector creates a Collector and starts its collection goroutine.
// A nil clock uses the real clock.
func NewCollector(clock core.Clock) *Collector {
	if clock == nil {
		clock = core.RealClock{}
	}
	c := &Collector{
		outcomes:  make([]BatchOutcome, 0),
		ch:        make(chan BatchOutcome, 1000),
		done:      make(chan struct{}),
		clock:     clock,
		startTime: clock.Now(),
	}
	go c.collect()
	return c
}

func (c *Collector) collect() {
	for o := range c.ch {
		c.mu.Lock()
		c.outcomes = append(c.outcomes, o)
		c.mu.Unlock()
	}
	close(c.done)
}

// Report records an outcome. It never blocks; outcomes beyond the buffer are
// dropped. Thread-safe.
func (c *Collector) Report(o BatchOutcome) {
	select {
	case c.ch <- o:
	default:
	}
}

// Close stops accepting outcomes and waits for buffered ones to be recorded.
// Close is idempotent.
func (c *Collector) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.endTime = c.clock.Now()
		c.mu.Unlock()
		close(c.ch)
	})
	<-c.done
}

// Outcomes returns a copy of the recorded outcomes.
func (c *Collector) Outcomes() []BatchOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]BatchOutcome, len(c.outcomes))
	copy(result, c.outcomes)
	return result
}

// Duration returns the time from creation to Close, or to now if still open.
func (c *Collector) Duration() time.Duration {
	c.mu.Lock()
	end := c.endTime
	c.mu.Unlock()
	if !end.IsZero() {
		return end.Sub(c.startTime)
	}
	return c.clock.Since(c.startTime)
}

// Compute summarizes the outcomes recorded so far.
func (c *Collector) Compute() *Summary {
	return ComputeSummary(c.Outcomes(), c.Duration())
}
