package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BrianVia/transcriptor/internal/capture"
	"github.com/BrianVia/transcriptor/internal/config"
	"github.com/BrianVia/transcriptor/internal/engine"
	"github.com/BrianVia/transcriptor/internal/metrics"
	"github.com/BrianVia/transcriptor/internal/server"
	"github.com/BrianVia/transcriptor/internal/session"
)

func newStartCmd(configPath *string) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start recording a meeting",
		Long:  "Start capturing audio and transcribing it. The process runs in the foreground until stopped with Ctrl+C or 'transcriptor stop' from another terminal.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return runStart(cfg, name)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "meeting", "Meeting name (used in folder name)")

	return cmd
}

func runStart(cfg *config.Config, meetingName string) error {
	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
	)

	logger.Info("Configuration loaded",
		slog.Int("capture_sample_rate", cfg.Audio.CaptureSampleRate),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Float64("chunk_duration", cfg.Audio.ChunkDuration),
		slog.String("engine_type", cfg.Engine.Type),
		slog.String("log_level", cfg.Logging.Level),
	)

	appMetrics := metrics.NewMetrics()

	source, err := capture.NewMalgoSource(cfg.Audio.CaptureSampleRate, cfg.Audio.CaptureChannels)
	if err != nil {
		return fmt.Errorf("failed to initialize audio capture: %w", err)
	}
	defer source.Close()

	eng, err := engine.New(cfg.Engine)
	if err != nil {
		return fmt.Errorf("failed to initialize transcription engine: %w", err)
	}

	store, err := session.NewStore(cfg.Output.StateDir)
	if err != nil {
		return err
	}
	signalFile := session.NewFileStopSignal(store.Dir())

	machine := session.NewMachine(logger, cfg, appMetrics, source, eng, store, signalFile)

	if err := machine.Start(meetingName); err != nil {
		return err
	}

	var monitor *server.Monitor
	if cfg.HTTP.Enabled {
		monitor = server.NewMonitor(cfg.HTTP, logger, cfg, machine, appMetrics)
		if err := monitor.Start(); err != nil {
			return err
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Recording, waiting for stop...",
		slog.String("meeting", meetingName),
	)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		if err := machine.Stop(); err != nil && err != session.ErrNotRecording {
			logger.Error("Session shutdown error", slog.String("error", err.Error()))
		}
	case <-machine.Done():
		// Stopped by the stop command through the state directory.
	}

	if monitor != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := monitor.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping monitor server", slog.String("error", err.Error()))
		}
	}

	logger.Info("Service stopped")
	return nil
}
