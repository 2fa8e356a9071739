// Package environment maps a room and its external conditions to the internal
// actuator settings (temperature, lighting, music) the home should apply.
package environment

import (
	"fmt"
	"strings"
)

// Level is a coarse external-condition reading.
type Level string

const (
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

var levels = [3]Level{Low, Medium, High}

// Levels returns the three levels in ascending order.
func Levels() []Level {
	return levels[:]
}

// ParseLevel accepts any casing and surrounding whitespace.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case Low, Medium, High:
		return l, nil
	default:
		return "", fmt.Errorf("invalid level %q (want low, medium or high)", s)
	}
}

// Index returns 0, 1 or 2 for low, medium and high, and -1 otherwise.
func (l Level) Index() int {
	for i, v := range levels {
		if v == l {
			return i
		}
	}
	return -1
}

// Title returns the level capitalised for display ("Low").
func (l Level) Title() string {
	if l == "" {
		return ""
	}
	return strings.ToUpper(string(l[:1])) + string(l[1:])
}

// Conditions are the external readings of a room.
type Conditions struct {
	Temperature Level `json:"temperature"`
	Lighting    Level `json:"lighting"`
	Noise       Level `json:"noise"`
}

func (c Conditions) String() string {
	return fmt.Sprintf("temp=%s light=%s noise=%s", c.Temperature, c.Lighting, c.Noise)
}
