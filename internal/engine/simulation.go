// Simulation ties the occupant to its history and serves consistent snapshots.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/talgya/homesim/internal/history"
	"github.com/talgya/homesim/internal/occupant"
)

// RecentArrivals is how many arrivals a Simulation keeps for catch-up.
const RecentArrivals = 50

// Event is an arrival stamped with the tick it happened on.
type Event struct {
	Tick    uint64  `json:"tick"`
	SimTime string  `json:"sim_time"`
	Seconds float64 `json:"sim_seconds"`
	occupant.Arrival
}

// Snapshot is a deep copy of everything the presentation layer reads.
type Snapshot struct {
	Tick     uint64         `json:"tick"`
	Seconds  float64        `json:"sim_seconds"`
	SimTime  string         `json:"sim_time"`
	State    occupant.State `json:"state"`
	Series   history.Series `json:"series"`
	Arrivals []Event        `json:"arrivals"`
}

// Simulation owns the occupant and its buffers. Tick is the single writer;
// Snapshot may be called from any goroutine.
type Simulation struct {
	mu       sync.RWMutex
	occ      *occupant.Occupant
	buffers  *history.Buffers
	arrivals *history.Ring[Event]
	lastTick uint64
	quantum  float64

	subMu     sync.Mutex
	subs      map[int]chan Event
	nextSub   int
	observers []func(Event)
}

// NewSimulation wraps occ. The initial position and settings are recorded so
// the trail starts at the starting room.
func NewSimulation(occ *occupant.Occupant, buffers *history.Buffers, quantum float64) *Simulation {
	s := &Simulation{
		occ:      occ,
		buffers:  buffers,
		arrivals: history.NewRing[Event](RecentArrivals),
		quantum:  quantum,
		subs:     make(map[int]chan Event),
	}
	st := occ.State()
	buffers.Record(st.Position, st.Internal)
	return s
}

// Tick advances the occupant one step and records the result. On error nothing
// is recorded and the previous snapshot stays current.
func (s *Simulation) Tick(tick uint64) error {
	s.mu.Lock()
	arrival, err := s.occ.Step()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("tick %d: %w", tick, err)
	}

	st := s.occ.State()
	s.buffers.Record(st.Position, st.Internal)
	s.lastTick = tick

	var ev *Event
	if arrival != nil {
		seconds := float64(tick) * s.quantum
		ev = &Event{Tick: tick, SimTime: SimTime(seconds), Seconds: seconds, Arrival: *arrival}
		s.arrivals.Push(*ev)
	}
	s.mu.Unlock()

	if ev != nil {
		slog.Debug("arrival",
			"tick", ev.Tick,
			"from", ev.From,
			"room", ev.Room,
			"next", ev.Next,
			"external", ev.External.String(),
			"temp", ev.Internal.Temperature,
			"light", ev.Internal.Lighting,
			"music", ev.Internal.Music.String(),
		)
		s.publish(*ev)
	}
	return nil
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTick
}

// State returns a copy of the occupant state.
func (s *Simulation) State() occupant.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.occ.State()
}

// Snapshot copies the state, the buffers and the recent arrivals under one lock.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seconds := float64(s.lastTick) * s.quantum
	return Snapshot{
		Tick:     s.lastTick,
		Seconds:  seconds,
		SimTime:  SimTime(seconds),
		State:    s.occ.State(),
		Series:   s.buffers.Snapshot(),
		Arrivals: s.arrivals.Items(),
	}
}

// OnArrival registers fn to run synchronously after each arrival is committed.
// fn must not block. Register before the engine starts.
func (s *Simulation) OnArrival(fn func(Event)) {
	s.subMu.Lock()
	s.observers = append(s.observers, fn)
	s.subMu.Unlock()
}

// Subscribe returns a channel receiving every future arrival. Slow subscribers
// miss events rather than stall the simulation.
func (s *Simulation) Subscribe() (int, <-chan Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, 16)
	s.subs[id] = ch
	return id, ch
}

// Unsubscribe closes and removes a subscription.
func (s *Simulation) Unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *Simulation) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, fn := range s.observers {
		fn(ev)
	}
	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("subscriber lagging, arrival dropped", "sub_id", id, "tick", ev.Tick)
		}
	}
}
