// Package dispatch models the operator's dispatch confirmation for one call.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"dispatchdesk/internal/core"
)

// DefaultLatency is the simulated acknowledgment delay.
const DefaultLatency = 2 * time.Second

// Status is the state of an Action.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusDispatching Status = "dispatching"
	StatusConfirmed   Status = "confirmed"
	StatusCancelled   Status = "cancelled"
)

// ErrInvalidTransition is returned when an operation is not allowed from the
// action's current state.
var ErrInvalidTransition = errors.New("invalid dispatch transition")

// transitions lists every legal move. Confirmed is only reachable from
// dispatching and cancelled only from idle.
var transitions = map[Status][]Status{
	StatusIdle:        {StatusDispatching, StatusCancelled},
	StatusDispatching: {StatusConfirmed},
}

func allowed(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Options configures an Action.
type Options struct {
	Latency  time.Duration
	Clock    core.Clock
	Notifier core.Notifier
	// OnDismiss is called once the action is confirmed, to close the
	// confirmation surface.
	OnDismiss func()
}

// Action is one dispatch confirmation workflow. It refers to its call by ID
// only and is never persisted.
type Action struct {
	ID     string
	CallID string

	opts Options

	mu     sync.Mutex
	status Status
}

// New creates an idle action for callID. A zero Latency uses DefaultLatency;
// use a negative value for none.
func New(callID string, opts Options) *Action {
	if opts.Latency == 0 {
		opts.Latency = DefaultLatency
	}
	if opts.Clock == nil {
		opts.Clock = core.RealClock{}
	}
	if opts.Notifier == nil {
		opts.Notifier = core.NullNotifier
	}
	return &Action{
		ID:     uuid.NewString(),
		CallID: callID,
		opts:   opts,
		status: StatusIdle,
	}
}

func (a *Action) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// CanCancel reports whether Cancel would succeed. It is false while the
// dispatch is in progress.
func (a *Action) CanCancel() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return allowed(a.status, StatusCancelled)
}

// Confirm moves the action to dispatching, waits the acknowledgment latency
// and then moves it to confirmed, emitting a dispatched notification.
// If ctx ends during the wait Confirm returns ctx's error and the action
// stays dispatching.
func (a *Action) Confirm(ctx context.Context) error {
	if err := a.transition(StatusDispatching); err != nil {
		return err
	}

	if err := core.Sleep(ctx, a.opts.Clock, a.opts.Latency); err != nil {
		return fmt.Errorf("dispatch %s: %w", a.CallID, err)
	}

	if err := a.transition(StatusConfirmed); err != nil {
		return err
	}

	a.opts.Notifier.Notify(core.Notification{
		Kind:      core.KindDispatched,
		Title:     "Ambulance Dispatched",
		Message:   fmt.Sprintf("Ambulance has been successfully dispatched for call %s", a.CallID),
		CallID:    a.CallID,
		Timestamp: a.opts.Clock.Now(),
	})
	if a.opts.OnDismiss != nil {
		a.opts.OnDismiss()
	}
	return nil
}

// Cancel abandons an idle action.
func (a *Action) Cancel() error {
	return a.transition(StatusCancelled)
}

func (a *Action) transition(to Status) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !allowed(a.status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.status, to)
	}
	a.status = to
	return nil
}
