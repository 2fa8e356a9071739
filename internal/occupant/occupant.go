// Package occupant implements the occupant's movement state machine.
//
// The occupant alternates between two phases. While Moving it advances along the
// current leg by a fixed progress step per tick. When progress reaches 1 it snaps
// onto the target room, the environment is re-sampled for that room, the next
// target and leg are planned, and it rests for a fixed number of ticks before
// setting off again.
package occupant

import (
	"errors"
	"fmt"

	"github.com/talgya/homesim/internal/environment"
	"github.com/talgya/homesim/internal/home"
	"github.com/talgya/homesim/internal/route"
)

// Phase is the occupant's behavioural state.
type Phase uint8

const (
	Moving Phase = iota
	Resting
)

func (p Phase) String() string {
	switch p {
	case Moving:
		return "moving"
	case Resting:
		return "resting"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// MarshalText renders the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Rand is the random source for destination choice and leg planning.
// *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Sampler re-derives a room's environment on arrival.
type Sampler interface {
	Resample(room home.Room) (environment.Conditions, environment.Settings, error)
}

// Config tunes the state machine.
type Config struct {
	StartRoom    home.Room
	ProgressStep float64 // Progress added per moving tick
	DwellTicks   int     // Ticks spent resting after each arrival
	Jitter       float64 // Max control-point offset per axis
}

// DefaultConfig returns the stock tuning: start in the living room, cross a leg
// in 100 ticks, rest for 20.
func DefaultConfig() Config {
	return Config{
		StartRoom:    home.LivingRoom,
		ProgressStep: 0.01,
		DwellTicks:   20,
		Jitter:       route.DefaultJitter,
	}
}

// State is a point-in-time copy of the occupant.
type State struct {
	CurrentRoom home.Room              `json:"current_room"`
	TargetRoom  home.Room              `json:"target_room"`
	Position    home.Point             `json:"position"`
	Progress    float64                `json:"progress"`
	Phase       Phase                  `json:"phase"`
	Dwell       int                    `json:"dwell"` // Resting ticks left
	External    environment.Conditions `json:"external"`
	Internal    environment.Settings   `json:"internal"`
	Leg         route.Leg              `json:"leg"`
	Legs        uint64                 `json:"legs"`     // Completed legs
	Distance    float64                `json:"distance"` // Odometer along the curves
}

// Arrival describes one Moving → Resting transition.
type Arrival struct {
	From     home.Room              `json:"from"`
	Room     home.Room              `json:"room"`
	Next     home.Room              `json:"next"`
	External environment.Conditions `json:"external"`
	Internal environment.Settings   `json:"internal"`
}

// Occupant owns the mutable state. It is not safe for concurrent use.
type Occupant struct {
	layout  *home.Layout
	sampler Sampler
	rng     Rand
	cfg     Config
	state   State
}

// New places the occupant in cfg.StartRoom, samples its environment, and plans
// the first leg towards a random other room. The initial phase is Moving.
func New(layout *home.Layout, sampler Sampler, rng Rand, cfg Config) (*Occupant, error) {
	if cfg.ProgressStep <= 0 || cfg.ProgressStep > 1 {
		return nil, fmt.Errorf("progress step must be in (0, 1], got %v", cfg.ProgressStep)
	}
	if cfg.DwellTicks < 0 {
		return nil, fmt.Errorf("dwell ticks must be >= 0, got %d", cfg.DwellTicks)
	}
	if cfg.Jitter < 0 {
		return nil, errors.New("jitter must be >= 0")
	}

	start, err := layout.Position(cfg.StartRoom)
	if err != nil {
		return nil, err
	}

	o := &Occupant{layout: layout, sampler: sampler, rng: rng, cfg: cfg}

	ext, internal, err := sampler.Resample(cfg.StartRoom)
	if err != nil {
		return nil, fmt.Errorf("initial resample: %w", err)
	}

	target := o.pickTarget(cfg.StartRoom)
	dest, err := layout.Position(target)
	if err != nil {
		return nil, err
	}

	o.state = State{
		CurrentRoom: cfg.StartRoom,
		TargetRoom:  target,
		Position:    start,
		Phase:       Moving,
		External:    ext,
		Internal:    internal,
		Leg:         route.NewLeg(rng, start, dest, cfg.Jitter),
	}
	return o, nil
}

// State returns a copy of the current state.
func (o *Occupant) State() State {
	return o.state
}

// Step advances the occupant by one tick. It returns a non-nil Arrival on the
// tick the target room is reached. On error the state is left as it was before
// the call.
func (o *Occupant) Step() (*Arrival, error) {
	next := o.state
	var arrival *Arrival

	switch next.Phase {
	case Moving:
		prev := next.Position
		next.Progress += o.cfg.ProgressStep
		if next.Progress < 1 {
			next.Position = next.Leg.At(next.Progress)
			next.Distance += home.Distance(prev, next.Position)
			break
		}

		next.Progress = 1
		next.Position = next.Leg.End
		next.Distance += home.Distance(prev, next.Position)

		a, err := o.arrive(&next)
		if err != nil {
			return nil, err
		}
		arrival = a

	case Resting:
		if next.Dwell > 0 {
			next.Dwell--
		}
		if next.Dwell == 0 {
			next.Phase = Moving
			next.Progress = 0
		}
	}

	o.state = next
	return arrival, nil
}

// arrive applies the arrival transition to s.
func (o *Occupant) arrive(s *State) (*Arrival, error) {
	from := s.CurrentRoom
	room := s.TargetRoom

	ext, internal, err := o.sampler.Resample(room)
	if err != nil {
		return nil, fmt.Errorf("arrive at %s: %w", room, err)
	}

	target := o.pickTarget(room)
	dest, err := o.layout.Position(target)
	if err != nil {
		return nil, err
	}

	s.CurrentRoom = room
	s.TargetRoom = target
	s.External = ext
	s.Internal = internal
	s.Leg = route.NewLeg(o.rng, s.Position, dest, o.cfg.Jitter)
	s.Phase = Resting
	s.Dwell = o.cfg.DwellTicks
	s.Legs++

	return &Arrival{
		From:     from,
		Room:     room,
		Next:     target,
		External: ext,
		Internal: internal,
	}, nil
}

// pickTarget chooses uniformly among the rooms other than room.
func (o *Occupant) pickTarget(room home.Room) home.Room {
	others := o.layout.Others(room)
	return others[o.rng.Intn(len(others))]
}
