// Package queue keeps the live, newest-first view of calls by polling the
// gateway.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"dispatchdesk/internal/call"
	"dispatchdesk/internal/core"
	"dispatchdesk/internal/gateway"
)

// DefaultInterval is the poll period used when Options.Interval is zero.
const DefaultInterval = 5 * time.Second

// ErrSyncInFlight is returned by Sync when another sync has not finished.
var ErrSyncInFlight = errors.New("sync already in flight")

// Backend is the part of the gateway the synchronizer needs.
type Backend interface {
	ListCalls(ctx context.Context, mode gateway.ListMode) ([]call.Call, error)
	ClearAll(ctx context.Context) error
}

// Options configures a Synchronizer.
type Options struct {
	Interval time.Duration
	Clock    core.Clock
	// Mode selects the backend list. Empty means gateway.ListAll.
	Mode gateway.ListMode
}

// Result is one completed sync delivered to a Start consumer.
type Result struct {
	Calls []call.Call
	Err   error
}

// Stats counts synchronizer activity.
type Stats struct {
	Syncs    int64
	Failures int64
	Skipped  int64
	LastSync time.Time
}

// Synchronizer owns the call snapshot. Readers get copies; only Sync and
// ClearAll replace it.
type Synchronizer struct {
	backend  Backend
	interval time.Duration
	clock    core.Clock
	mode     gateway.ListMode
	inFlight *semaphore.Weighted

	mu       sync.RWMutex
	snapshot []call.Call
	stats    Stats
	// gen changes on every ClearAll. A sync that started under an older
	// generation must not overwrite the cleared snapshot.
	gen uint64
}

// New creates a Synchronizer with an empty snapshot.
func New(backend Backend, opts Options) *Synchronizer {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = core.RealClock{}
	}
	if opts.Mode == "" {
		opts.Mode = gateway.ListAll
	}
	return &Synchronizer{
		backend:  backend,
		interval: opts.Interval,
		clock:    opts.Clock,
		mode:     opts.Mode,
		inFlight: semaphore.NewWeighted(1),
	}
}

// Sync fetches the full call list and replaces the snapshot with it, sorted
// newest first. On failure the previous snapshot is kept.
func (s *Synchronizer) Sync(ctx context.Context) ([]call.Call, error) {
	if !s.inFlight.TryAcquire(1) {
		return nil, ErrSyncInFlight
	}
	defer s.inFlight.Release(1)
	return s.sync(ctx)
}

func (s *Synchronizer) sync(ctx context.Context) ([]call.Call, error) {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	calls, err := s.backend.ListCalls(ctx, s.mode)
	if err != nil {
		s.mu.Lock()
		s.stats.Failures++
		s.mu.Unlock()
		return nil, fmt.Errorf("sync: %w", err)
	}

	next := order(calls)

	s.mu.Lock()
	if s.gen != gen {
		// Cleared while the list was in flight.
		current := clone(s.snapshot)
		s.mu.Unlock()
		return current, nil
	}
	s.snapshot = next
	s.stats.Syncs++
	s.stats.LastSync = s.clock.Now()
	s.mu.Unlock()

	return clone(next), nil
}

// order drops repeated call IDs, keeping the first one the backend sent, and
// sorts by timestamp descending. Equal timestamps keep backend order.
func order(calls []call.Call) []call.Call {
	seen := make(map[string]struct{}, len(calls))
	out := make([]call.Call, 0, len(calls))
	for _, c := range calls {
		if _, dup := seen[c.CallID]; dup {
			continue
		}
		seen[c.CallID] = struct{}{}
		out = append(out, c.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// ClearAll deletes every call on the backend and empties the snapshot.
// If the request fails the snapshot is unchanged. Syncs still in flight when
// the clear succeeds are dropped instead of restoring the old calls.
func (s *Synchronizer) ClearAll(ctx context.Context) error {
	if err := s.backend.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	s.mu.Lock()
	s.snapshot = []call.Call{}
	s.gen++
	s.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current snapshot.
func (s *Synchronizer) Snapshot() []call.Call {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.snapshot)
}

// Find returns the snapshot call with the given ID.
func (s *Synchronizer) Find(callID string) (call.Call, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.snapshot {
		if c.CallID == callID {
			return c.Clone(), true
		}
	}
	return call.Call{}, false
}

func (s *Synchronizer) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func clone(calls []call.Call) []call.Call {
	out := make([]call.Call, len(calls))
	for i, c := range calls {
		out[i] = c.Clone()
	}
	return out
}

// Handle controls a polling loop started by Start.
type Handle struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	stopped bool
}

// Stop ends the polling loop. A sync already in flight finishes, but its
// result is not delivered. Stop is idempotent.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.stopped = true
		h.mu.Unlock()
		h.cancel()
	})
}

// Done is closed once the loop and any in-flight sync have finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) isStopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

// Start syncs immediately and then once per interval until ctx is done or
// the handle is stopped. A tick that fires while a sync is still running is
// skipped. onResult may be nil.
func (s *Synchronizer) Start(ctx context.Context, onResult func(Result)) *Handle {
	loopCtx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	// In-flight requests outlive Stop; only their delivery is suppressed.
	reqCtx := context.WithoutCancel(ctx)

	go func() {
		var wg sync.WaitGroup
		defer close(h.done)
		defer wg.Wait()

		for {
			if s.inFlight.TryAcquire(1) {
				wg.Add(1)
				go func() {
					defer wg.Done()
					calls, err := s.sync(reqCtx)
					s.inFlight.Release(1)
					if h.isStopped() || loopCtx.Err() != nil || onResult == nil {
						return
					}
					onResult(Result{Calls: calls, Err: err})
				}()
			} else {
				s.mu.Lock()
				s.stats.Skipped++
				s.mu.Unlock()
			}

			select {
			case <-loopCtx.Done():
				return
			case <-s.clock.After(s.interval):
			}
		}
	}()
	return h
}
