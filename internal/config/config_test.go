package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "homesim.yaml")
	yml := `
simulation:
  seed: 7
  start_room: Kitchen
  interval: 50ms
  dwell_ticks: 5
home:
  rooms:
    - {name: Kitchen, x: 0, y: 0}
    - {name: Study, x: 4, y: 2}
table:
  source: generated
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Simulation.Seed != 7 || cfg.Simulation.StartRoom != "Kitchen" {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
	if cfg.Simulation.Interval != 50*time.Millisecond {
		t.Errorf("interval = %v, want 50ms", cfg.Simulation.Interval)
	}
	// Unset keys keep their defaults.
	if cfg.Simulation.ProgressStep != 0.01 || cfg.Simulation.TrailCapacity != 500 {
		t.Errorf("defaults lost: %+v", cfg.Simulation)
	}
	if cfg.Table.Source != SourceGenerated {
		t.Errorf("table source = %q", cfg.Table.Source)
	}

	layout, err := cfg.Layout()
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if layout.Len() != 2 {
		t.Errorf("layout has %d rooms, want 2", layout.Len())
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"HOMESIM_SEED":          "99",
		"HOMESIM_SPEED":         "2.5",
		"HOMESIM_START_PAUSED":  "true",
		"HOMESIM_KAFKA_BROKERS": "k1:9092, k2:9092",
		"HOMESIM_LOG_LEVEL":     "warn",
	}
	cfg := Default()
	if err := cfg.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Simulation.Seed != 99 || cfg.Simulation.Speed != 2.5 || !cfg.Simulation.StartPaused {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
	if got := cfg.Actuator.Kafka.Brokers; len(got) != 2 || got[1] != "k2:9092" {
		t.Errorf("brokers = %v", got)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}

func TestApplyEnv_BadValue(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(func(k string) string {
		if k == "HOMESIM_SEED" {
			return "abc"
		}
		return ""
	})
	if err == nil || !strings.Contains(err.Error(), "HOMESIM_SEED") {
		t.Fatalf("err = %v, want HOMESIM_SEED parse error", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero step", func(c *Config) { c.Simulation.ProgressStep = 0 }},
		{"step above one", func(c *Config) { c.Simulation.ProgressStep = 1.5 }},
		{"negative dwell", func(c *Config) { c.Simulation.DwellTicks = -1 }},
		{"zero trail", func(c *Config) { c.Simulation.TrailCapacity = 0 }},
		{"zero quantum", func(c *Config) { c.Simulation.Quantum = 0 }},
		{"speed too high", func(c *Config) { c.Simulation.Speed = 5000 }},
		{"unknown source", func(c *Config) { c.Table.Source = "ftp" }},
		{"csv without path", func(c *Config) { c.Table.Path = "" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
		{"kafka without topic", func(c *Config) {
			c.Actuator.Kafka.Brokers = []string{"k:9092"}
			c.Actuator.Kafka.Topic = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
