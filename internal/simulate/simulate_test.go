package simulate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatchdesk/internal/call"
	"dispatchdesk/internal/collector"
	"dispatchdesk/internal/core"
	"dispatchdesk/internal/data"
	"dispatchdesk/internal/gateway"
)

// fakeSubmitter records batches and answers from a script.
type fakeSubmitter struct {
	mu        sync.Mutex
	sizes     []int
	batches   [][]call.Submission
	processed func(i, size int) int // i is 1-based
	failAt    int
	onSubmit  func(i int)
	inFlight  int
	overlap   bool
}

func (f *fakeSubmitter) SubmitBatch(ctx context.Context, batch []call.Submission) (gateway.BatchResult, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > 1 {
		f.overlap = true
	}
	f.sizes = append(f.sizes, len(batch))
	f.batches = append(f.batches, batch)
	i := len(f.sizes)
	hook := f.onSubmit
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if hook != nil {
		hook(i)
	}
	if i == f.failAt {
		return gateway.BatchResult{}, errors.New("status 500: backend down")
	}
	n := len(batch)
	if f.processed != nil {
		n = f.processed(i, len(batch))
	}
	return gateway.BatchResult{Processed: n}, nil
}

func (f *fakeSubmitter) Sizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.sizes...)
}

func drain(ch <-chan Progress) []Progress {
	var out []Progress
	for p := range ch {
		out = append(out, p)
	}
	return out
}

func TestRun_ValidatesTarget(t *testing.T) {
	s := New(&fakeSubmitter{}, Options{})
	for _, n := range []int{0, -1, 1001} {
		_, _, err := s.Run(context.Background(), n, nil)
		assert.Error(t, err, "target %d", n)
	}
}

func TestRun_TwentyFiveCallsThreeBatches(t *testing.T) {
	sub := &fakeSubmitter{
		// Under-report on the second batch.
		processed: func(i, size int) int {
			if i == 2 {
				return size - 3
			}
			return size
		},
	}
	s := New(sub, Options{})

	ch, run, err := s.Run(context.Background(), 25, nil)
	require.NoError(t, err)
	events := drain(ch)
	require.NoError(t, run.Wait())

	assert.Equal(t, []int{10, 10, 5}, sub.Sizes())
	assert.False(t, sub.overlap, "batches must not overlap")
	assert.Equal(t, StatusCompleted, run.Status())
	assert.Equal(t, 10+7+5, run.Processed())
	assert.Equal(t, 3, run.TotalBatches)

	require.Len(t, events, 3)
	assert.InDelta(t, 1.0/3, events[0].Fraction, 1e-9)
	assert.Equal(t, 17, events[1].Processed)
	assert.Equal(t, 3, events[2].Batch)
	assert.Equal(t, 1.0, events[2].Fraction)
	assert.Equal(t, 25, events[2].Target)
	assert.Equal(t, run.ID, events[0].RunID)
}

func TestRun_PayloadsComeFromPool(t *testing.T) {
	sub := &fakeSubmitter{}
	pool := data.NewPool([]data.Exemplar{{Transcription: "only exemplar"}}, 7)
	s := New(sub, Options{Pool: pool})

	ch, run, err := s.Run(context.Background(), 3, nil)
	require.NoError(t, err)
	drain(ch)
	require.NoError(t, run.Wait())

	require.Len(t, sub.batches, 1)
	for _, p := range sub.batches[0] {
		assert.Equal(t, "only exemplar", p.Transcription)
		assert.Regexp(t, `^\+91 \d{10}$`, p.PhoneNumber)
	}
}

func TestRun_StopAfterFirstBatch(t *testing.T) {
	stop := NewStopToken()
	sub := &fakeSubmitter{
		processed: func(i, size int) int { return size - 1 },
		onSubmit: func(i int) {
			if i == 1 {
				// The in-flight batch still completes and counts.
				stop.Stop()
				stop.Stop()
			}
		},
	}
	s := New(sub, Options{})

	ch, run, err := s.Run(context.Background(), 50, stop)
	require.NoError(t, err)
	events := drain(ch)
	require.NoError(t, run.Wait())

	assert.Equal(t, []int{10}, sub.Sizes())
	assert.Equal(t, StatusStopped, run.Status())
	assert.Nil(t, run.Err())
	assert.Equal(t, 9, run.Processed())
	assert.Len(t, events, 1)
}

func TestRun_StopDuringPacing(t *testing.T) {
	clock := core.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	sub := &fakeSubmitter{}
	stop := NewStopToken()
	s := New(sub, Options{Pacing: DefaultPacing, Clock: clock})

	ch, run, err := s.Run(context.Background(), 50, stop)
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, 1, first.Batch)
	require.True(t, clock.BlockUntil(1, time.Second))
	stop.Stop()

	drain(ch)
	require.NoError(t, run.Wait())
	assert.Equal(t, []int{10}, sub.Sizes())
	assert.Equal(t, StatusStopped, run.Status())
	assert.Equal(t, 10, run.Processed())
}

func TestRun_PacingBetweenBatchesOnly(t *testing.T) {
	clock := core.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	sub := &fakeSubmitter{}
	s := New(sub, Options{Pacing: 500 * time.Millisecond, Clock: clock})

	ch, run, err := s.Run(context.Background(), 20, nil)
	require.NoError(t, err)

	<-ch
	require.True(t, clock.BlockUntil(1, time.Second))
	assert.Equal(t, []int{10}, sub.Sizes(), "second batch must wait for pacing")

	clock.Advance(499 * time.Millisecond)
	assert.Equal(t, []int{10}, sub.Sizes())
	clock.Advance(time.Millisecond)

	<-ch
	select {
	case <-run.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish without a trailing pause")
	}
	assert.Equal(t, []int{10, 10}, sub.Sizes())
	assert.Equal(t, StatusCompleted, run.Status())
}

func TestRun_FailureStopsRun(t *testing.T) {
	sub := &fakeSubmitter{
		failAt:    3,
		processed: func(i, size int) int { return size - i },
	}
	coll := collector.NewCollector(nil)
	var notes []core.Notification
	s := New(sub, Options{
		Collector: coll,
		Notifier:  core.NotifierFunc(func(n core.Notification) { notes = append(notes, n) }),
	})

	ch, run, err := s.Run(context.Background(), 50, nil)
	require.NoError(t, err)
	events := drain(ch)
	runErr := run.Wait()
	coll.Close()

	require.Error(t, runErr)
	var be *BatchError
	require.ErrorAs(t, runErr, &be)
	assert.Equal(t, 3, be.Index)
	assert.Equal(t, 9+8, be.Processed)
	assert.Contains(t, runErr.Error(), "backend down")

	assert.Equal(t, []int{10, 10, 10}, sub.Sizes())
	assert.Equal(t, StatusStopped, run.Status())
	assert.Equal(t, 17, run.Processed())
	assert.Len(t, events, 2)

	outcomes := coll.Outcomes()
	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[2].Failed())

	require.Len(t, notes, 1)
	assert.Equal(t, core.KindError, notes[0].Kind)
}

func TestRun_BatchTimeoutIsFailure(t *testing.T) {
	blocking := &blockingSubmitter{}
	s := New(blocking, Options{BatchTimeout: 20 * time.Millisecond})

	ch, run, err := s.Run(context.Background(), 5, nil)
	require.NoError(t, err)
	drain(ch)

	runErr := run.Wait()
	require.Error(t, runErr)
	assert.ErrorIs(t, runErr, context.DeadlineExceeded)
	var be *BatchError
	require.ErrorAs(t, runErr, &be)
	assert.Equal(t, 1, be.Index)
	assert.Zero(t, be.Processed)
}

type blockingSubmitter struct{}

func (blockingSubmitter) SubmitBatch(ctx context.Context, _ []call.Submission) (gateway.BatchResult, error) {
	<-ctx.Done()
	return gateway.BatchResult{}, ctx.Err()
}

func TestRun_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &fakeSubmitter{onSubmit: func(i int) {
		if i == 2 {
			cancel()
		}
	}}
	s := New(sub, Options{})

	ch, run, err := s.Run(ctx, 40, nil)
	require.NoError(t, err)
	drain(ch)
	require.NoError(t, run.Wait())

	assert.Equal(t, []int{10, 10}, sub.Sizes())
	assert.Equal(t, StatusStopped, run.Status())
	assert.Equal(t, 20, run.Processed())
}

func TestRun_CompletionNotification(t *testing.T) {
	var notes []core.Notification
	var mu sync.Mutex
	s := New(&fakeSubmitter{}, Options{
		Notifier: core.NotifierFunc(func(n core.Notification) {
			mu.Lock()
			notes = append(notes, n)
			mu.Unlock()
		}),
	})

	ch, run, err := s.Run(context.Background(), 12, nil)
	require.NoError(t, err)
	drain(ch)
	require.NoError(t, run.Wait())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, notes, 1)
	assert.Equal(t, core.KindSuccess, notes[0].Kind)
	assert.Equal(t, "Simulation Complete", notes[0].Title)
	assert.Contains(t, notes[0].Message, "12 of 12")
}

func TestRun_Reset(t *testing.T) {
	s := New(&fakeSubmitter{}, Options{})
	ch, run, err := s.Run(context.Background(), 10, nil)
	require.NoError(t, err)
	drain(ch)
	require.NoError(t, run.Wait())
	require.Equal(t, 10, run.Processed())

	require.NoError(t, run.Reset())
	assert.Equal(t, StatusIdle, run.Status())
	assert.Zero(t, run.Processed())
	assert.Zero(t, run.BatchesCompleted())
}

func TestRun_ResetWhileRunning(t *testing.T) {
	release := make(chan struct{})
	sub := &fakeSubmitter{onSubmit: func(int) { <-release }}
	s := New(sub, Options{})

	ch, run, err := s.Run(context.Background(), 5, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, run.Reset(), ErrRunActive)

	close(release)
	drain(ch)
	require.NoError(t, run.Wait())
}

func TestPartition(t *testing.T) {
	subs := make([]call.Submission, 25)
	batches := partition(subs, 10)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 10)
	assert.Len(t, batches[1], 10)
	assert.Len(t, batches[2], 5)

	assert.Len(t, partition(make([]call.Submission, 10), 10), 1)
	assert.Len(t, partition(make([]call.Submission, 1), 10), 1)
}

func TestStopToken(t *testing.T) {
	tok := NewStopToken()
	assert.False(t, tok.Stopped())
	tok.Stop()
	tok.Stop()
	assert.True(t, tok.Stopped())
	select {
	case <-tok.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestBatchError(t *testing.T) {
	inner := errors.New("boom")
	err := &BatchError{Index: 2, Processed: 10, Err: inner}
	assert.Equal(t, "batch 2 failed after 10 calls processed: boom", err.Error())
	assert.ErrorIs(t, err, inner)
}
