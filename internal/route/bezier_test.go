package route

import (
	"math"
	"math/rand"
	"testing"

	"github.com/talgya/homesim/internal/home"
)

type fixedRand struct {
	vals []float64
	i    int
}

func (f *fixedRand) Float64() float64 {
	v := f.vals[f.i%len(f.vals)]
	f.i++
	return v
}

func TestNewLeg_ControlPointWithinJitter(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	start := home.Point{X: 1, Y: 1}
	end := home.Point{X: 5, Y: 5}
	mid := home.Midpoint(start, end)

	for i := 0; i < 1000; i++ {
		leg := NewLeg(rng, start, end, DefaultJitter)
		if math.Abs(leg.Control.X-mid.X) > DefaultJitter || math.Abs(leg.Control.Y-mid.Y) > DefaultJitter {
			t.Fatalf("control point %v outside ±%v of midpoint %v", leg.Control, DefaultJitter, mid)
		}
	}
}

func TestNewLeg_OffsetsEachAxisIndependently(t *testing.T) {
	rng := &fixedRand{vals: []float64{0, 0.75}}

	leg := NewLeg(rng, home.Point{X: 0, Y: 0}, home.Point{X: 4, Y: 2}, 1)

	// X draws 0 -> -1, Y draws 0.75 -> +0.5.
	want := home.Point{X: 1, Y: 1.5}
	if leg.Control != want {
		t.Errorf("expected control %v, got %v", want, leg.Control)
	}
}

func TestAt_EndpointsExact(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	start := home.Point{X: 1, Y: 1}
	end := home.Point{X: 1, Y: 5}

	for i := 0; i < 100; i++ {
		leg := NewLeg(rng, start, end, DefaultJitter)
		if got := leg.At(0); got != start {
			t.Fatalf("At(0) = %v, want %v", got, start)
		}
		if got := leg.At(1); got != end {
			t.Fatalf("At(1) = %v, want %v", got, end)
		}
	}
}

func TestAt_Clamps(t *testing.T) {
	leg := Leg{Start: home.Point{X: 0, Y: 0}, Control: home.Point{X: 2, Y: 3}, End: home.Point{X: 4, Y: 0}}

	if got := leg.At(-0.5); got != leg.Start {
		t.Errorf("At(-0.5) = %v, want start", got)
	}
	if got := leg.At(1.2); got != leg.End {
		t.Errorf("At(1.2) = %v, want end", got)
	}
}

func TestAt_Midway(t *testing.T) {
	leg := Leg{Start: home.Point{X: 0, Y: 0}, Control: home.Point{X: 2, Y: 4}, End: home.Point{X: 4, Y: 0}}

	// B(0.5) = 0.25*P0 + 0.5*C + 0.25*P2
	got := leg.At(0.5)
	want := home.Point{X: 2, Y: 2}
	if math.Abs(got.X-want.X) > 1e-12 || math.Abs(got.Y-want.Y) > 1e-12 {
		t.Errorf("At(0.5) = %v, want %v", got, want)
	}
}

func TestAt_Deterministic(t *testing.T) {
	leg := NewLeg(rand.New(rand.NewSource(3)), home.Point{X: 5, Y: 1}, home.Point{X: 3, Y: 3}, DefaultJitter)

	for _, tt := range []float64{0.01, 0.33, 0.5, 0.99} {
		if a, b := leg.At(tt), leg.At(tt); a != b {
			t.Errorf("At(%v) not deterministic: %v vs %v", tt, a, b)
		}
	}
}

func TestLength_StraightLine(t *testing.T) {
	start := home.Point{X: 0, Y: 0}
	end := home.Point{X: 4, Y: 0}
	leg := Leg{Start: start, Control: home.Midpoint(start, end), End: end}

	if got := leg.Length(50); math.Abs(got-4) > 1e-9 {
		t.Errorf("expected length 4, got %v", got)
	}
}
