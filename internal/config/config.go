// Package config loads homesim settings from a YAML file and HOMESIM_* environment
// variables. Environment variables override the file; the file overrides defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/homesim/internal/home"
)

// Table sources.
const (
	SourceCSV       = "csv"
	SourceSQLite    = "sqlite"
	SourceGenerated = "generated"
)

// Config contains all homesim settings.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Home       HomeConfig       `yaml:"home"`
	Table      TableConfig      `yaml:"table"`
	API        APIConfig        `yaml:"api"`
	Actuator   ActuatorConfig   `yaml:"actuator"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SimulationConfig tunes the occupant and the tick driver.
type SimulationConfig struct {
	// Seed makes a run reproducible. 0 draws a random seed at startup.
	Seed int64 `yaml:"seed"`

	StartRoom    string  `yaml:"start_room"`
	ProgressStep float64 `yaml:"progress_step"`
	DwellTicks   int     `yaml:"dwell_ticks"`
	Jitter       float64 `yaml:"jitter"`

	// Quantum is the simulated time per tick in seconds.
	Quantum float64 `yaml:"quantum"`
	// Interval is the wall-clock time per tick at speed 1.
	Interval time.Duration `yaml:"interval"`
	Speed    float64       `yaml:"speed"`

	// StartPaused waits for a resume request before the first tick.
	StartPaused bool `yaml:"start_paused"`

	TrailCapacity  int `yaml:"trail_capacity"`
	MetricCapacity int `yaml:"metric_capacity"`
}

// HomeConfig overrides the floor plan. Empty means the stock five rooms.
type HomeConfig struct {
	Rooms []home.RoomSpec `yaml:"rooms"`
}

// TableConfig says where the environment mapping comes from.
type TableConfig struct {
	// Source is "csv", "sqlite" or "generated".
	Source string `yaml:"source"`
	Path   string `yaml:"path"`
	// Seed for the generated table.
	Seed int64 `yaml:"seed"`
	// RequireComplete refuses to start when a room × condition combination has no row.
	RequireComplete bool `yaml:"require_complete"`
}

// APIConfig configures the HTTP presentation layer.
type APIConfig struct {
	Addr string `yaml:"addr"`
	// AdminKey protects the control endpoints. Empty leaves them open.
	AdminKey    string   `yaml:"admin_key"`
	CORSOrigins []string `yaml:"cors_origins"`
	// ControlRate is the number of control requests allowed per client per minute.
	ControlRate int `yaml:"control_rate"`
	MaxStreams  int `yaml:"max_streams"`
}

// ActuatorConfig configures where arrival settings are published.
type ActuatorConfig struct {
	MQTT  MQTTConfig  `yaml:"mqtt"`
	Kafka KafkaConfig `yaml:"kafka"`
	// Log writes every command to the log.
	Log bool `yaml:"log"`
}

// MQTTConfig configures the MQTT sink. Disabled when Broker is empty.
type MQTTConfig struct {
	Broker      string        `yaml:"broker"`
	ClientID    string        `yaml:"client_id"`
	TopicPrefix string        `yaml:"topic_prefix"`
	Timeout     time.Duration `yaml:"timeout"`
}

// KafkaConfig configures the Kafka sink. Disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `yaml:"level"`
	// Format is "text", "json" or "auto" (text on a terminal, json otherwise).
	Format string `yaml:"format"`
}

// Default returns a Config with the stock settings.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			StartRoom:      string(home.LivingRoom),
			ProgressStep:   0.01,
			DwellTicks:     20,
			Jitter:         1.0,
			Quantum:        0.2,
			Interval:       100 * time.Millisecond,
			Speed:          1,
			TrailCapacity:  500,
			MetricCapacity: 10,
		},
		Table: TableConfig{
			Source: SourceCSV,
			Path:   "smart_home_mappings.csv",
			Seed:   42,
		},
		API: APIConfig{
			Addr:        ":8080",
			ControlRate: 60,
			MaxStreams:  4,
		},
		Actuator: ActuatorConfig{
			MQTT: MQTTConfig{
				ClientID:    "homesim",
				TopicPrefix: "homesim",
				Timeout:     5 * time.Second,
			},
			Kafka: KafkaConfig{
				Topic: "homesim.settings",
			},
			Log: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load reads path (when non-empty) over the defaults, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads a YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv overlays HOMESIM_* variables.
func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	var errs []error
	i64 := func(key string, dst *int64) {
		if v := getenv(key); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	f64 := func(key string, dst *float64) {
		if v := getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	list := func(key string, dst *[]string) {
		if v := getenv(key); v != "" {
			*dst = splitCSV(v)
		}
	}

	i64("HOMESIM_SEED", &c.Simulation.Seed)
	str("HOMESIM_START_ROOM", &c.Simulation.StartRoom)
	f64("HOMESIM_SPEED", &c.Simulation.Speed)
	boolean("HOMESIM_START_PAUSED", &c.Simulation.StartPaused)
	str("HOMESIM_TABLE_SOURCE", &c.Table.Source)
	str("HOMESIM_TABLE_PATH", &c.Table.Path)
	boolean("HOMESIM_TABLE_REQUIRE_COMPLETE", &c.Table.RequireComplete)
	str("HOMESIM_API_ADDR", &c.API.Addr)
	str("HOMESIM_ADMIN_KEY", &c.API.AdminKey)
	list("HOMESIM_CORS_ORIGINS", &c.API.CORSOrigins)
	str("HOMESIM_MQTT_BROKER", &c.Actuator.MQTT.Broker)
	list("HOMESIM_KAFKA_BROKERS", &c.Actuator.Kafka.Brokers)
	str("HOMESIM_KAFKA_TOPIC", &c.Actuator.Kafka.Topic)
	str("HOMESIM_LOG_LEVEL", &c.Logging.Level)
	str("HOMESIM_LOG_FORMAT", &c.Logging.Format)

	return errors.Join(errs...)
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	s := c.Simulation
	var errs []error
	if s.ProgressStep <= 0 || s.ProgressStep > 1 {
		errs = append(errs, fmt.Errorf("simulation.progress_step must be in (0, 1], got %v", s.ProgressStep))
	}
	if s.DwellTicks < 0 {
		errs = append(errs, fmt.Errorf("simulation.dwell_ticks must be >= 0, got %d", s.DwellTicks))
	}
	if s.Jitter < 0 {
		errs = append(errs, fmt.Errorf("simulation.jitter must be >= 0, got %v", s.Jitter))
	}
	if s.Quantum <= 0 {
		errs = append(errs, fmt.Errorf("simulation.quantum must be > 0, got %v", s.Quantum))
	}
	if s.Interval <= 0 {
		errs = append(errs, fmt.Errorf("simulation.interval must be > 0, got %v", s.Interval))
	}
	if s.Speed <= 0 || s.Speed > 1000 {
		errs = append(errs, fmt.Errorf("simulation.speed must be in (0, 1000], got %v", s.Speed))
	}
	if s.TrailCapacity < 1 || s.MetricCapacity < 1 {
		errs = append(errs, errors.New("simulation capacities must be >= 1"))
	}
	if s.StartRoom == "" {
		errs = append(errs, errors.New("simulation.start_room is required"))
	}

	switch c.Table.Source {
	case SourceCSV, SourceSQLite:
		if c.Table.Path == "" {
			errs = append(errs, fmt.Errorf("table.path is required for source %q", c.Table.Source))
		}
	case SourceGenerated:
	default:
		errs = append(errs, fmt.Errorf("table.source must be csv, sqlite or generated, got %q", c.Table.Source))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be auto, text or json, got %q", c.Logging.Format))
	}

	if (len(c.Actuator.Kafka.Brokers) > 0) && c.Actuator.Kafka.Topic == "" {
		errs = append(errs, errors.New("actuator.kafka.topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}

// Layout builds the floor plan from the config, or the stock plan when none is set.
func (c *Config) Layout() (*home.Layout, error) {
	if len(c.Home.Rooms) == 0 {
		return home.DefaultLayout(), nil
	}
	return home.NewLayout(c.Home.Rooms)
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
