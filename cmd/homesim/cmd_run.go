package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/talgya/homesim/internal/actuator"
	"github.com/talgya/homesim/internal/api"
	"github.com/talgya/homesim/internal/config"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.API.Addr = addr
			}
			if paused, _ := cmd.Flags().GetBool("paused"); paused {
				cfg.Simulation.StartPaused = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().String("addr", "", "HTTP listen address (overrides api.addr)")
	cmd.Flags().Bool("paused", false, "Start paused and wait for a resume request")
	return cmd
}

// buildSinks opens every configured actuator sink.
func buildSinks(cfg config.ActuatorConfig) ([]actuator.Sink, error) {
	var sinks []actuator.Sink
	if cfg.Log {
		sinks = append(sinks, actuator.NewLogSink(nil))
	}
	if cfg.MQTT.Broker != "" {
		s, err := actuator.DialMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.TopicPrefix, cfg.MQTT.Timeout)
		if err != nil {
			return nil, err
		}
		slog.Info("mqtt sink connected", "broker", cfg.MQTT.Broker, "prefix", cfg.MQTT.TopicPrefix)
		sinks = append(sinks, s)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		sinks = append(sinks, actuator.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		slog.Info("kafka sink configured", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	return sinks, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	slog.Info("homesim starting",
		"version", version,
		"run_id", runID,
		"seed", a.seed,
		"rooms", a.layout.Len(),
		"start_room", cfg.Simulation.StartRoom,
	)

	sinks, err := buildSinks(cfg.Actuator)
	if err != nil {
		return err
	}
	dispatcher := actuator.NewDispatcher(a.metrics, sinks...)
	defer dispatcher.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Actuator publishing runs off the tick path.
	subID, events := a.sim.Subscribe()
	defer a.sim.Unsubscribe(subID)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx, events)
	}()

	srv := &api.Server{
		Sim:         a.sim,
		Eng:         a.eng,
		Layout:      a.layout,
		Table:       a.table,
		Metrics:     a.metrics,
		AdminKey:    cfg.API.AdminKey,
		CORSOrigins: cfg.API.CORSOrigins,
		ControlRate: cfg.API.ControlRate,
		MaxStreams:  cfg.API.MaxStreams,
		RunID:       runID,
		Started:     time.Now(),
	}
	srvErr := make(chan error, 1)
	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(ctx, cfg.API.Addr); err != nil {
			srvErr <- err
			cancel()
		}
	}()

	if cfg.Simulation.StartPaused {
		a.eng.Pause()
	}

	engErr := a.eng.Run(ctx)
	var halted error
	if engErr != nil && !errors.Is(engErr, context.Canceled) {
		// The API stays up after a halt so the final state can still be inspected.
		halted = engErr
		slog.Error("simulation halted, API still serving until shutdown", "error", engErr)
		<-ctx.Done()
	}

	cancel()
	wg.Wait()
	select {
	case err := <-srvErr:
		return err
	default:
	}
	if halted != nil {
		return fmt.Errorf("simulation: %w", halted)
	}
	slog.Info("homesim stopped", "tick", a.eng.Tick())
	return nil
}
