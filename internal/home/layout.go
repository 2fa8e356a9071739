package home

import "fmt"

// Rooms of the default floor plan.
const (
	LivingRoom  Room = "Living Room"
	Bedroom     Room = "Bedroom"
	Kitchen     Room = "Kitchen"
	Bathroom    Room = "Bathroom"
	WorkoutArea Room = "Workout Area"
)

// RoomSpec declares one room of a floor plan.
type RoomSpec struct {
	Name Room    `json:"name" yaml:"name"`
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
}

// ConfigurationError reports a room that the floor plan cannot resolve.
// It signals a static setup mistake and should surface at startup.
type ConfigurationError struct {
	Room   Room
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Room == "" {
		return "home configuration: " + e.Reason
	}
	return fmt.Sprintf("home configuration: room %q: %s", e.Room, e.Reason)
}

// Layout holds the rooms of the home and their coordinates.
// It is immutable once built.
type Layout struct {
	rooms  []Room
	coords map[Room]Point
}

// NewLayout builds a layout, keeping the declaration order of the rooms.
func NewLayout(specs []RoomSpec) (*Layout, error) {
	if len(specs) < 2 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("need at least 2 rooms, got %d", len(specs))}
	}

	l := &Layout{
		rooms:  make([]Room, 0, len(specs)),
		coords: make(map[Room]Point, len(specs)),
	}
	for _, s := range specs {
		if s.Name == "" {
			return nil, &ConfigurationError{Reason: "room with empty name"}
		}
		if _, dup := l.coords[s.Name]; dup {
			return nil, &ConfigurationError{Room: s.Name, Reason: "declared twice"}
		}
		l.rooms = append(l.rooms, s.Name)
		l.coords[s.Name] = Point{X: s.X, Y: s.Y}
	}
	return l, nil
}

// DefaultRooms returns the stock five-room floor plan.
func DefaultRooms() []RoomSpec {
	return []RoomSpec{
		{Name: LivingRoom, X: 1, Y: 1},
		{Name: Bedroom, X: 5, Y: 1},
		{Name: Kitchen, X: 1, Y: 5},
		{Name: Bathroom, X: 5, Y: 5},
		{Name: WorkoutArea, X: 3, Y: 3},
	}
}

// DefaultLayout returns the stock floor plan. It panics only if DefaultRooms is broken.
func DefaultLayout() *Layout {
	l, err := NewLayout(DefaultRooms())
	if err != nil {
		panic(err)
	}
	return l
}

// Rooms returns the rooms in declaration order.
func (l *Layout) Rooms() []Room {
	out := make([]Room, len(l.rooms))
	copy(out, l.rooms)
	return out
}

// Has reports whether the room is part of the layout.
func (l *Layout) Has(room Room) bool {
	_, ok := l.coords[room]
	return ok
}

// Position returns the coordinate of a room.
func (l *Layout) Position(room Room) (Point, error) {
	p, ok := l.coords[room]
	if !ok {
		return Point{}, &ConfigurationError{Room: room, Reason: "not in floor plan"}
	}
	return p, nil
}

// Others returns every room except the given one, in declaration order.
func (l *Layout) Others(room Room) []Room {
	out := make([]Room, 0, len(l.rooms))
	for _, r := range l.rooms {
		if r != room {
			out = append(out, r)
		}
	}
	return out
}

// Bounds returns the bounding box of all room coordinates, padded by margin.
func (l *Layout) Bounds(margin float64) (min, max Point) {
	first := true
	for _, p := range l.coords {
		if first {
			min, max = p, p
			first = false
			continue
		}
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
	}
	return Point{X: min.X - margin, Y: min.Y - margin}, Point{X: max.X + margin, Y: max.Y + margin}
}

// Len returns the number of rooms.
func (l *Layout) Len() int {
	return len(l.rooms)
}

func (l *Layout) String() string {
	return fmt.Sprintf("Layout(rooms=%d)", len(l.rooms))
}
