package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("RealClock.Now() returned %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	start := time.Now()
	time.Sleep(10 * time.Millisecond)
	elapsed := clock.Since(start)

	if elapsed < 10*time.Millisecond {
		t.Errorf("RealClock.Since() returned %v, expected >= 10ms", elapsed)
	}
}

func TestFakeClock_Advance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	clock.Advance(1 * time.Hour)
	expected := start.Add(1 * time.Hour)

	if !clock.Now().Equal(expected) {
		t.Errorf("after Advance(1h), Now() returned %v, expected %v", clock.Now(), expected)
	}
	if clock.Since(start) != time.Hour {
		t.Errorf("Since(start) = %v, expected 1h", clock.Since(start))
	}
}

func TestFakeClock_Set(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	newTime := time.Date(2025, 6, 15, 12, 30, 0, 0, time.UTC)
	clock.Set(newTime)

	if !clock.Now().Equal(newTime) {
		t.Errorf("after Set(), Now() returned %v, expected %v", clock.Now(), newTime)
	}
}

func TestFakeClock_AfterFiresOnAdvance(t *testing.T) {
	clock := NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ch := clock.After(2 * time.Second)

	clock.Advance(1 * time.Second)
	select {
	case <-ch:
		t.Fatal("After fired before its deadline")
	default:
	}
	if clock.Waiters() != 1 {
		t.Errorf("expected 1 waiter, got %d", clock.Waiters())
	}

	clock.Advance(1 * time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("After did not fire at its deadline")
	}
	if clock.Waiters() != 0 {
		t.Errorf("expected 0 waiters, got %d", clock.Waiters())
	}
}

func TestFakeClock_AfterZeroFiresImmediately(t *testing.T) {
	clock := NewFakeClock(time.Now())
	select {
	case <-clock.After(0):
	default:
		t.Fatal("After(0) should fire immediately")
	}
}

func TestSleep_FakeClock(t *testing.T) {
	clock := NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	var done atomic.Bool
	errCh := make(chan error, 1)
	go func() {
		errCh <- Sleep(context.Background(), clock, 500*time.Millisecond)
		done.Store(true)
	}()

	if !clock.BlockUntil(1, time.Second) {
		t.Fatal("sleeper never registered with the clock")
	}
	if done.Load() {
		t.Fatal("Sleep returned before the clock advanced")
	}
	clock.Advance(500 * time.Millisecond)
	if err := <-errCh; err != nil {
		t.Fatalf("Sleep returned %v", err)
	}
}

func TestSleep_ContextCancelled(t *testing.T) {
	clock := NewFakeClock(time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- Sleep(ctx, clock, time.Hour) }()

	clock.BlockUntil(1, time.Second)
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSleep_NonPositive(t *testing.T) {
	if err := Sleep(context.Background(), RealClock{}, 0); err != nil {
		t.Fatalf("Sleep(0) returned %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, RealClock{}, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep on done ctx returned %v", err)
	}
}
