package environment

import "github.com/talgya/homesim/internal/home"

// Rand is the random source the sampler draws from. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// Sampler draws external conditions and resolves them through a Table.
type Sampler struct {
	table *Table
	rng   Rand
}

// NewSampler creates a sampler over table using rng.
func NewSampler(table *Table, rng Rand) *Sampler {
	return &Sampler{table: table, rng: rng}
}

// Resample draws temperature, lighting and noise levels independently and
// uniformly, then looks up the matching row for room. A missing row is
// returned as *LookupError together with the drawn conditions.
func (s *Sampler) Resample(room home.Room) (Conditions, Settings, error) {
	c := Conditions{
		Temperature: levels[s.rng.Intn(len(levels))],
		Lighting:    levels[s.rng.Intn(len(levels))],
		Noise:       levels[s.rng.Intn(len(levels))],
	}
	settings, err := s.table.Lookup(Key{Room: room, Conditions: c})
	if err != nil {
		return c, Settings{}, err
	}
	return c, settings, nil
}

// Table returns the table the sampler reads.
func (s *Sampler) Table() *Table {
	return s.table
}
