package simulate

import (
	"errors"
	"fmt"
	"sync"
)

// Status is the lifecycle state of a Run.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusStopped   Status = "stopped"
	StatusCompleted Status = "completed"
)

// ErrRunActive is returned by Reset while the run is still running.
var ErrRunActive = errors.New("simulation is running")

// Progress is emitted after each batch response.
type Progress struct {
	RunID        string
	Batch        int // 1-based index of the batch just completed
	TotalBatches int
	// Fraction is Batch / TotalBatches.
	Fraction  float64
	Processed int
	Target    int
}

// BatchError reports the batch that ended a run and how many calls the
// backend had processed before it.
type BatchError struct {
	Index     int // 1-based
	Processed int
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d failed after %d calls processed: %v", e.Index, e.Processed, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// StopToken requests a running simulation to stop. Stop may be called any
// number of times from any goroutine.
type StopToken struct {
	once sync.Once
	ch   chan struct{}
}

func NewStopToken() *StopToken {
	return &StopToken{ch: make(chan struct{})}
}

func (t *StopToken) Stop() {
	t.once.Do(func() { close(t.ch) })
}

// Done is closed once Stop has been called.
func (t *StopToken) Done() <-chan struct{} {
	return t.ch
}

func (t *StopToken) Stopped() bool {
	select {
	case <-t.ch:
		return true
	default:
		return false
	}
}

// Run is one simulation execution. Its counters are owned by the goroutine
// driving it; accessors return consistent copies.
type Run struct {
	ID           string
	Target       int
	BatchSize    int
	TotalBatches int

	mu        sync.Mutex
	status    Status
	processed int
	completed int
	err       error
	done      chan struct{}
}

func newRun(id string, target, batchSize int) *Run {
	return &Run{
		ID:           id,
		Target:       target,
		BatchSize:    batchSize,
		TotalBatches: (target + batchSize - 1) / batchSize,
		status:       StatusIdle,
		done:         make(chan struct{}),
	}
}

func (r *Run) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Processed is the sum of backend-reported processed counts so far.
func (r *Run) Processed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processed
}

// BatchesCompleted is the number of batches whose response was received.
func (r *Run) BatchesCompleted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

// Err is the failure that ended the run, if any. A stopped run with a nil Err
// was stopped by request.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Done is closed when the run reaches stopped or completed.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run finishes and returns Err.
func (r *Run) Wait() error {
	<-r.done
	return r.Err()
}

// Reset zeroes the counters of a finished run and returns it to idle.
func (r *Run) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == StatusRunning {
		return ErrRunActive
	}
	r.status = StatusIdle
	r.processed = 0
	r.completed = 0
	r.err = nil
	return nil
}

func (r *Run) start() {
	r.mu.Lock()
	r.status = StatusRunning
	r.processed = 0
	r.completed = 0
	r.mu.Unlock()
}

// record adds a batch result and returns the progress event for it.
func (r *Run) record(processed int) Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	if processed > 0 {
		r.processed += processed
	}
	r.completed++
	return Progress{
		RunID:        r.ID,
		Batch:        r.completed,
		TotalBatches: r.TotalBatches,
		Fraction:     float64(r.completed) / float64(r.TotalBatches),
		Processed:    r.processed,
		Target:       r.Target,
	}
}

func (r *Run) finish(status Status, err error) {
	r.mu.Lock()
	r.status = status
	r.err = err
	r.mu.Unlock()
	close(r.done)
}
