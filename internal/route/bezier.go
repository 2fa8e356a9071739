// Package route plans the occupant's path between rooms.
// A leg is a single quadratic Bézier curve whose control point is the midpoint of
// the endpoints nudged by a random offset drawn once when the leg is planned.
package route

import "github.com/talgya/homesim/internal/home"

// DefaultJitter is the maximum control-point offset per axis.
const DefaultJitter = 1.0

// Rand is the random source a planner draws from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Leg is one movement segment from Start to End.
type Leg struct {
	Start   home.Point `json:"start"`
	Control home.Point `json:"control"`
	End     home.Point `json:"end"`
}

// NewLeg plans a leg from start to end. Each axis of the control point is
// offset independently by a uniform draw in [-jitter, jitter).
func NewLeg(rng Rand, start, end home.Point, jitter float64) Leg {
	mid := home.Midpoint(start, end)
	offset := home.Point{
		X: (rng.Float64()*2 - 1) * jitter,
		Y: (rng.Float64()*2 - 1) * jitter,
	}
	return Leg{Start: start, Control: mid.Add(offset), End: end}
}

// At evaluates the curve at progress t, clamped to [0, 1].
// The endpoints are returned exactly.
func (l Leg) At(t float64) home.Point {
	switch {
	case t <= 0:
		return l.Start
	case t >= 1:
		return l.End
	}
	u := 1 - t
	return l.Start.Scale(u * u).
		Add(l.Control.Scale(2 * u * t)).
		Add(l.End.Scale(t * t))
}

// Length approximates the arc length with the given number of chords.
func (l Leg) Length(samples int) float64 {
	if samples < 1 {
		samples = 1
	}
	total := 0.0
	prev := l.Start
	for i := 1; i <= samples; i++ {
		p := l.At(float64(i) / float64(samples))
		total += home.Distance(prev, p)
		prev = p
	}
	return total
}
