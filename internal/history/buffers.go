package history

import (
	"github.com/talgya/homesim/internal/environment"
	"github.com/talgya/homesim/internal/home"
)

// Default capacities.
const (
	DefaultTrailCapacity  = 500
	DefaultMetricCapacity = 10
)

// Buffers holds the trail and the three metric series.
type Buffers struct {
	Trail       *Ring[home.Point]
	Temperature *Ring[float64]
	Lighting    *Ring[float64]
	Music       *Ring[environment.Genre]
}

// NewBuffers creates empty buffers with the given capacities.
func NewBuffers(trailCap, metricCap int) *Buffers {
	return &Buffers{
		Trail:       NewRing[home.Point](trailCap),
		Temperature: NewRing[float64](metricCap),
		Lighting:    NewRing[float64](metricCap),
		Music:       NewRing[environment.Genre](metricCap),
	}
}

// Record appends one tick worth of samples.
func (b *Buffers) Record(pos home.Point, s environment.Settings) {
	b.Trail.Push(pos)
	b.Temperature.Push(s.Temperature)
	b.Lighting.Push(s.Lighting)
	b.Music.Push(s.Music)
}

// Series is a plain-slice copy of Buffers.
type Series struct {
	Trail       []home.Point        `json:"trail"`
	Temperature []float64           `json:"temperature"`
	Lighting    []float64           `json:"lighting"`
	Music       []environment.Genre `json:"music"`
}

// Snapshot copies every buffer.
func (b *Buffers) Snapshot() Series {
	return Series{
		Trail:       b.Trail.Items(),
		Temperature: b.Temperature.Items(),
		Lighting:    b.Lighting.Items(),
		Music:       b.Music.Items(),
	}
}
