package environment

import (
	"fmt"
	"sort"

	"github.com/talgya/homesim/internal/home"
)

// Column names of the tabular mapping source.
const (
	ColRoom                = "Room"
	ColExternalTemperature = "External_Temperature"
	ColExternalLighting    = "External_Lighting"
	ColExternalNoise       = "External_Noise"
	ColInternalTemperature = "Internal_Temperature"
	ColInternalLighting    = "Internal_Lighting"
	ColInternalMusic       = "Internal_Music"
)

// Columns lists the mapping columns in canonical order.
var Columns = []string{
	ColRoom,
	ColExternalTemperature,
	ColExternalLighting,
	ColExternalNoise,
	ColInternalTemperature,
	ColInternalLighting,
	ColInternalMusic,
}

// Settings are the internal actuator values for a room.
type Settings struct {
	Temperature float64 `json:"temperature"` // Celsius
	Lighting    float64 `json:"lighting"`    // Percent
	Music       Genre   `json:"music"`
}

// Key identifies one row of the mapping.
type Key struct {
	Room home.Room `json:"room"`
	Conditions
}

func (k Key) String() string {
	return fmt.Sprintf("room=%q %s", k.Room, k.Conditions)
}

// Row is one record of the mapping.
type Row struct {
	Key      Key      `json:"key"`
	Settings Settings `json:"settings"`
}

// LookupError reports a key with no matching row. A gap in the mapping is a
// data defect; callers must not substitute defaults.
type LookupError struct {
	Key Key
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no environment mapping for %s", e.Key)
}

// Table is the read-only mapping, indexed once at construction.
type Table struct {
	index      map[Key]Settings
	order      []Key
	duplicates int
}

// NewTable indexes rows. When a key appears more than once the first row wins.
func NewTable(rows []Row) *Table {
	t := &Table{
		index: make(map[Key]Settings, len(rows)),
		order: make([]Key, 0, len(rows)),
	}
	for _, r := range rows {
		if _, seen := t.index[r.Key]; seen {
			t.duplicates++
			continue
		}
		t.index[r.Key] = r.Settings
		t.order = append(t.order, r.Key)
	}
	return t
}

// Lookup returns the settings for a key.
func (t *Table) Lookup(k Key) (Settings, error) {
	s, ok := t.index[k]
	if !ok {
		return Settings{}, &LookupError{Key: k}
	}
	return s, nil
}

// Len returns the number of distinct keys.
func (t *Table) Len() int {
	return len(t.index)
}

// Duplicates returns how many rows were dropped because their key was already present.
func (t *Table) Duplicates() int {
	return t.duplicates
}

// Rooms returns the distinct rooms mentioned by the table, in first-seen order.
func (t *Table) Rooms() []home.Room {
	seen := make(map[home.Room]bool)
	var out []home.Room
	for _, k := range t.order {
		if !seen[k.Room] {
			seen[k.Room] = true
			out = append(out, k.Room)
		}
	}
	return out
}

// Missing returns every key over rooms × levels³ that has no row.
func (t *Table) Missing(rooms []home.Room) []Key {
	var out []Key
	for _, k := range AllKeys(rooms) {
		if _, ok := t.index[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// Rows returns the indexed rows sorted by room, then temperature, lighting and noise level.
func (t *Table) Rows() []Row {
	rows := make([]Row, 0, len(t.order))
	for _, k := range t.order {
		rows = append(rows, Row{Key: k, Settings: t.index[k]})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Key, rows[j].Key
		if a.Room != b.Room {
			return a.Room < b.Room
		}
		if a.Temperature != b.Temperature {
			return a.Temperature.Index() < b.Temperature.Index()
		}
		if a.Lighting != b.Lighting {
			return a.Lighting.Index() < b.Lighting.Index()
		}
		return a.Noise.Index() < b.Noise.Index()
	})
	return rows
}

// AllKeys enumerates rooms × levels³ in a fixed order.
func AllKeys(rooms []home.Room) []Key {
	out := make([]Key, 0, len(rooms)*27)
	for _, room := range rooms {
		for _, tmp := range levels {
			for _, light := range levels {
				for _, noise := range levels {
					out = append(out, Key{Room: room, Conditions: Conditions{
						Temperature: tmp,
						Lighting:    light,
						Noise:       noise,
					}})
				}
			}
		}
	}
	return out
}
