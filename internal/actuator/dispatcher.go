package actuator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/talgya/homesim/internal/engine"
	"github.com/talgya/homesim/internal/telemetry"
)

// DefaultPublishTimeout bounds one publish to one sink.
const DefaultPublishTimeout = 5 * time.Second

// Dispatcher fans arrival events out to every sink on its own goroutine.
// Publish failures are logged and counted; they never stop the simulation.
type Dispatcher struct {
	sinks   []Sink
	metrics *telemetry.Metrics
	timeout time.Duration
	now     func() time.Time
}

func NewDispatcher(metrics *telemetry.Metrics, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		sinks:   sinks,
		metrics: metrics,
		timeout: DefaultPublishTimeout,
		now:     time.Now,
	}
}

// Sinks returns the names of the configured sinks.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}
	return names
}

// Run publishes every event from events until ctx is done or events is closed.
func (d *Dispatcher) Run(ctx context.Context, events <-chan engine.Event) {
	slog.Info("actuator dispatcher started", "sinks", d.Sinks())
	defer slog.Info("actuator dispatcher stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			d.Dispatch(ctx, ev)
		}
	}
}

// Dispatch publishes one event to every sink and returns the joined failures.
func (d *Dispatcher) Dispatch(ctx context.Context, ev engine.Event) error {
	cmd := NewCommand(ev, d.now())
	var errs []error
	for _, s := range d.sinks {
		pctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := s.Publish(pctx, cmd)
		cancel()

		d.metrics.Publish(s.Name(), err)
		if err != nil {
			slog.Warn("actuator publish failed", "sink", s.Name(), "room", cmd.Room, "id", cmd.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, s := range d.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
