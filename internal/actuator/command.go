// Package actuator turns arrivals into settings commands for the new room and
// publishes them to external sinks (MQTT, Kafka, the log).
package actuator

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/homesim/internal/engine"
	"github.com/talgya/homesim/internal/environment"
	"github.com/talgya/homesim/internal/home"
)

// Command asks a room's devices to apply the derived internal settings.
type Command struct {
	ID          string                 `json:"id"`
	Room        home.Room              `json:"room"`
	From        home.Room              `json:"from"`
	External    environment.Conditions `json:"external"`
	Temperature float64                `json:"temperature"`
	Lighting    float64                `json:"lighting"`
	Music       int                    `json:"music"`
	MusicLabel  string                 `json:"music_label"`
	Tick        uint64                 `json:"tick"`
	SimTime     string                 `json:"sim_time"`
	IssuedAt    time.Time              `json:"issued_at"`
}

// NewCommand builds the command for an arrival event.
func NewCommand(ev engine.Event, now time.Time) Command {
	return Command{
		ID:          uuid.NewString(),
		Room:        ev.Room,
		From:        ev.From,
		External:    ev.External,
		Temperature: ev.Internal.Temperature,
		Lighting:    ev.Internal.Lighting,
		Music:       int(ev.Internal.Music),
		MusicLabel:  ev.Internal.Music.String(),
		Tick:        ev.Tick,
		SimTime:     ev.SimTime,
		IssuedAt:    now.UTC(),
	}
}

// Sink delivers commands somewhere outside the process.
type Sink interface {
	Name() string
	Publish(ctx context.Context, cmd Command) error
	Close() error
}

// Slug turns a room name into a topic-safe token: "Living Room" → "living-room".
func Slug(room home.Room) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(string(room))) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
