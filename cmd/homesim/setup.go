package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/homesim/internal/config"
	"github.com/talgya/homesim/internal/engine"
	"github.com/talgya/homesim/internal/entropy"
	"github.com/talgya/homesim/internal/environment"
	"github.com/talgya/homesim/internal/history"
	"github.com/talgya/homesim/internal/home"
	"github.com/talgya/homesim/internal/logging"
	"github.com/talgya/homesim/internal/occupant"
	"github.com/talgya/homesim/internal/persistence"
	"github.com/talgya/homesim/internal/telemetry"
)

// summaryEvery is how often, in ticks, a progress summary is logged.
const summaryEvery = 3000

// loadConfig reads --config and installs the configured logger as the default.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr))
	return cfg, nil
}

// loadRows reads the mapping rows from the configured source.
func loadRows(cfg *config.Config, layout *home.Layout) ([]environment.Row, error) {
	switch cfg.Table.Source {
	case config.SourceCSV:
		return environment.LoadCSV(cfg.Table.Path)
	case config.SourceSQLite:
		db, err := persistence.Open(cfg.Table.Path)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return db.LoadMappings()
	case config.SourceGenerated:
		return environment.Generate(layout.Rooms(), cfg.Table.Seed), nil
	default:
		return nil, fmt.Errorf("unknown table source %q", cfg.Table.Source)
	}
}

// loadTable builds the table and cross-checks it against the layout.
func loadTable(cfg *config.Config, layout *home.Layout) (*environment.Table, error) {
	rows, err := loadRows(cfg, layout)
	if err != nil {
		return nil, fmt.Errorf("load table: %w", err)
	}
	table := environment.NewTable(rows)
	if n := table.Duplicates(); n > 0 {
		slog.Warn("duplicate mapping rows ignored, first row wins", "duplicates", n)
	}

	for _, room := range table.Rooms() {
		if !layout.Has(room) {
			slog.Warn("mapping rows for a room that is not in the layout", "room", room)
		}
	}

	missing := table.Missing(layout.Rooms())
	if len(missing) > 0 {
		if cfg.Table.RequireComplete {
			return nil, &home.ConfigurationError{
				Room:   missing[0].Room,
				Reason: fmt.Sprintf("mapping table has %d gaps, first %s", len(missing), missing[0]),
			}
		}
		slog.Warn("mapping table is incomplete, arriving in a gap will halt the simulation",
			"missing", len(missing), "first", missing[0].String())
	}

	slog.Info("mapping table loaded",
		"source", cfg.Table.Source,
		"rows", humanize.Comma(int64(table.Len())),
		"rooms", len(table.Rooms()),
	)
	return table, nil
}

// app is a fully wired simulation.
type app struct {
	cfg     *config.Config
	seed    int64
	layout  *home.Layout
	table   *environment.Table
	sim     *engine.Simulation
	eng     *engine.Engine
	metrics *telemetry.Metrics
}

// newApp builds the layout, table, occupant, simulation and engine from cfg.
// Static setup errors (ConfigurationError) surface here, before any tick.
func newApp(cfg *config.Config) (*app, error) {
	layout, err := cfg.Layout()
	if err != nil {
		return nil, err
	}
	table, err := loadTable(cfg, layout)
	if err != nil {
		return nil, err
	}

	seed := entropy.Seed(cfg.Simulation.Seed)
	sampler := environment.NewSampler(table, entropy.Derive(seed, entropy.StreamSampler))
	occ, err := occupant.New(layout, sampler, entropy.Derive(seed, entropy.StreamOccupant), occupant.Config{
		StartRoom:    home.Room(cfg.Simulation.StartRoom),
		ProgressStep: cfg.Simulation.ProgressStep,
		DwellTicks:   cfg.Simulation.DwellTicks,
		Jitter:       cfg.Simulation.Jitter,
	})
	if err != nil {
		return nil, fmt.Errorf("place occupant: %w", err)
	}

	buffers := history.NewBuffers(cfg.Simulation.TrailCapacity, cfg.Simulation.MetricCapacity)
	sim := engine.NewSimulation(occ, buffers, cfg.Simulation.Quantum)

	eng := engine.NewEngine()
	eng.Quantum = cfg.Simulation.Quantum
	eng.Interval = cfg.Simulation.Interval
	if err := eng.SetSpeed(cfg.Simulation.Speed); err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		seed:    seed,
		layout:  layout,
		table:   table,
		sim:     sim,
		eng:     eng,
		metrics: telemetry.NewMetrics(),
	}
	a.wire()
	return a, nil
}

// wire connects the engine to the simulation and the metrics.
func (a *app) wire() {
	a.eng.OnTick = func(tick uint64) error {
		start := time.Now()
		if err := a.sim.Tick(tick); err != nil {
			var le *environment.LookupError
			if errors.As(err, &le) {
				a.metrics.LookupFailure()
			}
			return err
		}
		st := a.sim.State()
		a.metrics.Tick(time.Since(start), st.Progress)

		if tick%summaryEvery == 0 {
			slog.Info("simulation summary",
				"tick", tick,
				"sim_time", engine.SimTime(float64(tick)*a.eng.Quantum),
				"room", st.CurrentRoom,
				"legs", st.Legs,
				"distance", fmt.Sprintf("%.1f", st.Distance),
			)
		}
		return nil
	}
	a.eng.OnStateChange = func(paused bool, halted error) {
		a.metrics.SetState(paused, halted != nil)
	}
	a.sim.OnArrival(func(ev engine.Event) {
		a.metrics.Arrival(string(ev.Room))
	})
	a.metrics.SetState(a.eng.Paused(), false)
}
