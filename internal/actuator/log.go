package actuator

import (
	"context"
	"log/slog"
)

// LogSink writes every command to a logger.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Publish(_ context.Context, cmd Command) error {
	s.log.Info("actuator command",
		"id", cmd.ID,
		"room", cmd.Room,
		"temperature", cmd.Temperature,
		"lighting", cmd.Lighting,
		"music", cmd.MusicLabel,
		"tick", cmd.Tick,
	)
	return nil
}

func (s *LogSink) Close() error { return nil }
