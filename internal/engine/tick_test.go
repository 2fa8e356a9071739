package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAdvance_IncrementsTick(t *testing.T) {
	e := NewEngine()
	var seen []uint64
	e.OnTick = func(tick uint64) error {
		seen = append(seen, tick)
		return nil
	}

	for i := 0; i < 3; i++ {
		ok, err := e.Advance()
		if !ok || err != nil {
			t.Fatalf("Advance %d: ok=%v err=%v", i, ok, err)
		}
	}
	if e.Tick() != 3 {
		t.Errorf("expected tick 3, got %d", e.Tick())
	}
	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Errorf("unexpected ticks %v", seen)
	}
	if got := e.SimSeconds(); got < 0.59 || got > 0.61 {
		t.Errorf("expected 0.6 simulated seconds, got %v", got)
	}
}

func TestAdvance_PausedIsNoOp(t *testing.T) {
	e := NewEngine()
	calls := 0
	e.OnTick = func(uint64) error {
		calls++
		return nil
	}

	e.Advance()
	e.Pause()
	for i := 0; i < 10; i++ {
		ok, err := e.Advance()
		if ok || err != nil {
			t.Fatalf("Advance while paused: ok=%v err=%v", ok, err)
		}
	}
	if calls != 1 || e.Tick() != 1 {
		t.Errorf("expected 1 tick while paused, got calls=%d tick=%d", calls, e.Tick())
	}

	e.Resume()
	e.Advance()
	if e.Tick() != 2 {
		t.Errorf("expected tick 2 after resume, got %d", e.Tick())
	}
}

func TestAdvance_ErrorHalts(t *testing.T) {
	e := NewEngine()
	boom := errors.New("boom")
	e.OnTick = func(tick uint64) error {
		if tick == 2 {
			return boom
		}
		return nil
	}

	var notified error
	e.OnStateChange = func(_ bool, halted error) { notified = halted }

	e.Advance()
	_, err := e.Advance()
	if !errors.Is(err, ErrHalted) || !errors.Is(err, boom) {
		t.Fatalf("expected halt wrapping boom, got %v", err)
	}
	if e.Tick() != 1 {
		t.Errorf("failed tick must not count, got tick %d", e.Tick())
	}
	if ok, err := e.Advance(); ok || !errors.Is(err, boom) {
		t.Errorf("expected engine to stay halted, got ok=%v err=%v", ok, err)
	}
	if !errors.Is(notified, boom) {
		t.Errorf("expected state change notification, got %v", notified)
	}
}

func TestToggle(t *testing.T) {
	e := NewEngine()
	if !e.Toggle() || !e.Paused() {
		t.Error("expected paused after first toggle")
	}
	if e.Toggle() || e.Paused() {
		t.Error("expected running after second toggle")
	}
}

func TestSetSpeed(t *testing.T) {
	e := NewEngine()
	if err := e.SetSpeed(0); err == nil {
		t.Error("expected error for speed 0")
	}
	if err := e.SetSpeed(MaxSpeed + 1); err == nil {
		t.Error("expected error above max speed")
	}
	if err := e.SetSpeed(4); err != nil {
		t.Fatalf("SetSpeed failed: %v", err)
	}
	if e.interval() != DefaultInterval/4 {
		t.Errorf("expected interval %v, got %v", DefaultInterval/4, e.interval())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	e := NewEngine()
	e.Interval = time.Millisecond
	var ticks atomic.Int64
	e.OnTick = func(uint64) error {
		ticks.Add(1)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	waitFor(t, func() bool { return ticks.Load() >= 5 })
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRun_ReturnsTickError(t *testing.T) {
	e := NewEngine()
	e.Interval = time.Millisecond
	boom := errors.New("boom")
	e.OnTick = func(tick uint64) error {
		if tick == 3 {
			return boom
		}
		return nil
	}

	err := e.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if e.Tick() != 2 {
		t.Errorf("expected tick 2, got %d", e.Tick())
	}
}

func TestRun_PauseBlocksUntilResume(t *testing.T) {
	e := NewEngine()
	e.Interval = time.Millisecond
	var ticks atomic.Int64
	e.OnTick = func(uint64) error {
		ticks.Add(1)
		return nil
	}
	e.Pause()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	time.Sleep(30 * time.Millisecond)
	if n := ticks.Load(); n != 0 {
		t.Fatalf("expected no ticks while paused, got %d", n)
	}

	e.Resume()
	waitFor(t, func() bool { return ticks.Load() > 0 })
}

func TestAdvance_NeverInterleaves(t *testing.T) {
	e := NewEngine()
	var inside atomic.Int32
	var overlap atomic.Bool
	e.OnTick = func(uint64) error {
		if inside.Add(1) > 1 {
			overlap.Store(true)
		}
		time.Sleep(100 * time.Microsecond)
		inside.Add(-1)
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				e.Advance()
			}
		}()
	}
	wg.Wait()

	if overlap.Load() {
		t.Error("ticks overlapped")
	}
	if e.Tick() != 160 {
		t.Errorf("expected 160 ticks, got %d", e.Tick())
	}
}

func TestSimTime(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00.0"},
		{0.2, "00:00:00.2"},
		{61.5, "00:01:01.5"},
		{3723.4, "01:02:03.4"},
		{-5, "00:00:00.0"},
	}
	for _, tt := range tests {
		if got := SimTime(tt.in); got != tt.want {
			t.Errorf("SimTime(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}
