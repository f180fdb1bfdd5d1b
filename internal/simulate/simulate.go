// Package simulate generates synthetic emergency calls and submits them to the
// gateway in sequential, paced batches.
package simulate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"dispatchdesk/internal/call"
	"dispatchdesk/internal/collector"
	"dispatchdesk/internal/core"
	"dispatchdesk/internal/data"
	"dispatchdesk/internal/gateway"
)

const (
	MinTarget        = 1
	MaxTarget        = 1000
	DefaultBatchSize = 10
	DefaultPacing    = 500 * time.Millisecond
)

// Submitter sends one batch to the backend.
type Submitter interface {
	SubmitBatch(ctx context.Context, batch []call.Submission) (gateway.BatchResult, error)
}

// Options configures a Simulator. Zero values get defaults except Pacing,
// where zero means no pause between batches.
type Options struct {
	BatchSize int
	Pacing    time.Duration
	// BatchTimeout bounds each batch request. A timed-out batch fails the
	// run. Zero leaves the request to the transport's own timeout.
	BatchTimeout time.Duration
	Pool         *data.Pool
	Clock        core.Clock
	Collector    *collector.Collector
	Notifier     core.Notifier
	Logger       *log.Logger
}

// Simulator drives simulation runs.
type Simulator struct {
	client Submitter
	opts   Options
}

// New creates a Simulator that submits through client.
func New(client Submitter, opts Options) *Simulator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Pool == nil {
		opts.Pool = data.NewPool(nil, 0)
	}
	if opts.Clock == nil {
		opts.Clock = core.RealClock{}
	}
	if opts.Notifier == nil {
		opts.Notifier = core.NullNotifier
	}
	return &Simulator{client: client, opts: opts}
}

// ValidateTarget checks a requested call count.
func ValidateTarget(target int) error {
	if target < MinTarget || target > MaxTarget {
		return fmt.Errorf("target count must be between %d and %d, got %d", MinTarget, MaxTarget, target)
	}
	return nil
}

// Run starts a simulation of target calls in the background. Progress events
// are delivered on the returned channel, which is closed when the run ends.
// stop may be nil. The returned Run reports the outcome once Done is closed.
func (s *Simulator) Run(ctx context.Context, target int, stop *StopToken) (<-chan Progress, *Run, error) {
	if err := ValidateTarget(target); err != nil {
		return nil, nil, err
	}
	if stop == nil {
		stop = NewStopToken()
	}

	run := newRun(uuid.NewString(), target, s.opts.BatchSize)
	batches := partition(s.opts.Pool.Submissions(target), s.opts.BatchSize)
	// Buffered for every batch so a slow reader never stalls submission.
	progress := make(chan Progress, len(batches))

	run.start()
	s.logf("simulation %s: %d calls in %d batches", run.ID, target, len(batches))

	go func() {
		defer close(progress)
		status, err := s.execute(ctx, run, batches, stop, progress)
		s.report(run, status, err)
		run.finish(status, err)
	}()

	return progress, run, nil
}

func (s *Simulator) execute(ctx context.Context, run *Run, batches [][]call.Submission, stop *StopToken, progress chan<- Progress) (Status, error) {
	for i, batch := range batches {
		if i > 0 && s.opts.Pacing > 0 {
			select {
			case <-s.opts.Clock.After(s.opts.Pacing):
			case <-stop.Done():
			case <-ctx.Done():
			}
		}
		if stop.Stopped() || ctx.Err() != nil {
			return StatusStopped, nil
		}

		res, dur, err := s.submit(ctx, batch)
		outcome := collector.BatchOutcome{
			RunID:     run.ID,
			Index:     i + 1,
			Submitted: len(batch),
			Processed: res.Processed,
			Duration:  dur,
		}
		if err != nil {
			outcome.Processed = 0
			outcome.Err = err.Error()
			s.collect(outcome)
			return StatusStopped, &BatchError{Index: i + 1, Processed: run.Processed(), Err: err}
		}
		s.collect(outcome)

		p := run.record(res.Processed)
		progress <- p
		s.logf("simulation %s: batch %d/%d processed %d/%d", run.ID, p.Batch, p.TotalBatches, res.Processed, len(batch))
	}
	return StatusCompleted, nil
}

func (s *Simulator) submit(ctx context.Context, batch []call.Submission) (gateway.BatchResult, time.Duration, error) {
	if s.opts.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.BatchTimeout)
		defer cancel()
	}
	start := s.opts.Clock.Now()
	res, err := s.client.SubmitBatch(ctx, batch)
	return res, s.opts.Clock.Since(start), err
}

func (s *Simulator) collect(o collector.BatchOutcome) {
	if s.opts.Collector != nil {
		s.opts.Collector.Report(o)
	}
}

func (s *Simulator) report(run *Run, status Status, err error) {
	n := core.Notification{Timestamp: s.opts.Clock.Now()}
	processed := run.Processed()
	switch {
	case err != nil:
		n.Kind = core.KindError
		n.Title = "Simulation Error"
		n.Message = err.Error()
	case status == StatusStopped:
		n.Kind = core.KindInfo
		n.Title = "Simulation Stopped"
		n.Message = fmt.Sprintf("Processed %d calls before stopping.", processed)
	default:
		n.Kind = core.KindSuccess
		n.Title = "Simulation Complete"
		n.Message = fmt.Sprintf("Successfully processed %d of %d calls.", processed, run.Target)
	}
	s.logf("simulation %s: %s (%d processed)", run.ID, status, processed)
	s.opts.Notifier.Notify(n)
}

func (s *Simulator) logf(format string, args ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Printf(format, args...)
	}
}

// partition splits subs into consecutive batches of size n; the last may be
// shorter.
func partition(subs []call.Submission, n int) [][]call.Submission {
	batches := make([][]call.Submission, 0, (len(subs)+n-1)/n)
	for start := 0; start < len(subs); start += n {
		end := min(start+n, len(subs))
		batches = append(batches, subs[start:end])
	}
	return batches
}
