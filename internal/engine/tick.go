// Package engine drives the simulation: a single tick driver advancing simulated
// time in fixed quanta, and the Simulation that owns the occupant and its history.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Default cadence: each tick is 0.2 simulated seconds, taken every 100ms of wall time.
const (
	DefaultQuantum  = 0.2
	DefaultInterval = 100 * time.Millisecond
	MaxSpeed        = 1000.0
)

// ErrHalted is returned by Advance once a tick has failed.
var ErrHalted = errors.New("simulation halted")

// Engine drives the simulation forward. Ticks never overlap: Run and Advance
// share one step lock.
type Engine struct {
	Quantum  float64       // Simulated seconds per tick
	Interval time.Duration // Wall-clock time per tick at speed 1

	// OnTick runs one simulation step. A non-nil error halts the engine for good.
	OnTick func(tick uint64) error
	// OnStateChange, if set, is called after pause, resume and halt.
	OnStateChange func(paused bool, halted error)

	stepMu sync.Mutex

	mu     sync.Mutex
	tick   uint64 // Current tick counter (monotonic, never resets)
	speed  float64
	paused bool
	halted error
	wake   chan struct{}
}

// NewEngine creates an engine with the default cadence, running at speed 1.
func NewEngine() *Engine {
	return &Engine{
		Quantum:  DefaultQuantum,
		Interval: DefaultInterval,
		speed:    1,
		wake:     make(chan struct{}, 1),
	}
}

// Run ticks until ctx is cancelled or a tick fails. While paused it blocks
// without advancing the simulated clock.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("simulation engine started", "tick", e.Tick(), "speed", e.Speed(), "paused", e.Paused())
	err := e.loop(ctx)
	slog.Info("simulation engine stopped", "tick", e.Tick(), "sim_time", SimTime(e.SimSeconds()))
	return err
}

func (e *Engine) loop(ctx context.Context) error {
	for {
		if err := e.Halted(); err != nil {
			return err
		}

		if e.Paused() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-e.wake:
			}
			continue
		}

		start := time.Now()
		if _, err := e.Advance(); err != nil {
			return err
		}

		// Sleep for the remainder of the tick interval, adjusted for speed.
		wait := e.interval() - time.Since(start)
		if wait <= 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-e.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Advance performs exactly one tick. It reports false without touching the
// simulation while paused, and returns the halting error once halted.
func (e *Engine) Advance() (bool, error) {
	e.stepMu.Lock()
	defer e.stepMu.Unlock()

	e.mu.Lock()
	if e.halted != nil {
		err := e.halted
		e.mu.Unlock()
		return false, err
	}
	if e.paused {
		e.mu.Unlock()
		return false, nil
	}
	next := e.tick + 1
	e.mu.Unlock()

	if e.OnTick != nil {
		if err := e.OnTick(next); err != nil {
			halt := fmt.Errorf("%w at tick %d: %w", ErrHalted, next, err)
			e.mu.Lock()
			e.halted = halt
			e.mu.Unlock()
			slog.Error("simulation halted", "tick", next, "error", err)
			e.notify()
			return false, halt
		}
	}

	e.mu.Lock()
	e.tick = next
	e.mu.Unlock()
	return true, nil
}

// Pause stops tick advancement. Readers keep seeing the last snapshot.
func (e *Engine) Pause() {
	e.setPaused(true)
}

// Resume restarts tick advancement.
func (e *Engine) Resume() {
	e.setPaused(false)
}

// Toggle flips the pause state and returns the new value.
func (e *Engine) Toggle() bool {
	e.mu.Lock()
	p := !e.paused
	e.mu.Unlock()
	e.setPaused(p)
	return p
}

func (e *Engine) setPaused(p bool) {
	e.mu.Lock()
	changed := e.paused != p
	e.paused = p
	e.mu.Unlock()
	if !changed {
		return
	}
	if p {
		slog.Info("simulation paused", "tick", e.Tick())
	} else {
		slog.Info("simulation resumed", "tick", e.Tick())
	}
	e.signal()
	e.notify()
}

// Paused reports whether ticking is suspended.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Halted returns the error that stopped the engine, or nil.
func (e *Engine) Halted() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.halted
}

// Tick returns the number of completed ticks.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// SetTick sets the tick counter. Only meaningful before Run.
func (e *Engine) SetTick(t uint64) {
	e.mu.Lock()
	e.tick = t
	e.mu.Unlock()
}

// SimSeconds returns the simulated time elapsed.
func (e *Engine) SimSeconds() float64 {
	return float64(e.Tick()) * e.Quantum
}

// Speed returns the wall-clock multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the wall-clock multiplier. It never pauses; use Pause for that.
func (e *Engine) SetSpeed(v float64) error {
	if v <= 0 || v > MaxSpeed {
		return fmt.Errorf("speed must be in (0, %v], got %v", MaxSpeed, v)
	}
	e.mu.Lock()
	e.speed = v
	e.mu.Unlock()
	slog.Info("speed changed", "speed", v)
	e.signal()
	return nil
}

func (e *Engine) interval() time.Duration {
	return time.Duration(float64(e.Interval) / e.Speed())
}

// signal wakes Run without blocking.
func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) notify() {
	if e.OnStateChange == nil {
		return
	}
	e.mu.Lock()
	paused, halted := e.paused, e.halted
	e.mu.Unlock()
	e.OnStateChange(paused, halted)
}

// SimTime formats simulated seconds as HH:MM:SS.s.
func SimTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	tenths := int64(seconds*10 + 0.5)
	h := tenths / 36000
	m := (tenths / 600) % 60
	s := (tenths / 10) % 60
	return fmt.Sprintf("%02d:%02d:%02d.%d", h, m, s, tenths%10)
}
