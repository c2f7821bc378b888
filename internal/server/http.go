package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BrianVia/transcriptor/internal/config"
	"github.com/BrianVia/transcriptor/internal/metrics"
	"github.com/BrianVia/transcriptor/internal/session"
)

// Monitor serves read-only HTTP endpoints against the running session
type Monitor struct {
	server  *http.Server
	logger  *slog.Logger
	config  *config.Config
	machine *session.Machine
	metrics *metrics.Metrics

	startTime time.Time
}

// NewMonitor creates the monitor server. It does not listen until Start.
func NewMonitor(cfg config.HTTPConfig, logger *slog.Logger,
	appConfig *config.Config, machine *session.Machine, m *metrics.Metrics) *Monitor {

	mon := &Monitor{
		logger:    logger,
		config:    appConfig,
		machine:   machine,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mon.setupRoutes(mux)

	mon.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return mon
}

// setupRoutes configures HTTP routes
func (mon *Monitor) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", mon.handleHealth)
	mux.HandleFunc("/status", mon.handleStatus)
	mux.HandleFunc("/config", mon.handleConfig)

	// The metrics registry is per-process, not the global one.
	mux.Handle("/metrics", promhttp.HandlerFor(mon.metrics.Registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", mon.handleRoot)
}

// Start starts the monitor server
func (mon *Monitor) Start() error {
	mon.logger.Info("Starting monitor server",
		slog.String("address", mon.server.Addr),
	)

	go func() {
		if err := mon.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			mon.logger.Error("Monitor server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the monitor server
func (mon *Monitor) Stop(ctx context.Context) error {
	mon.logger.Info("Stopping monitor server...")

	return mon.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (mon *Monitor) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state, _, _ := mon.machine.Status()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(mon.startTime).String(),
		"service": map[string]interface{}{
			"name":    "transcriptor",
			"version": "1.0.0",
		},
		"session": map[string]interface{}{
			"state": state.String(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleStatus implements the /status endpoint
func (mon *Monitor) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state, startTime, outputDir := mon.machine.Status()

	status := map[string]interface{}{
		"state":     state.String(),
		"timestamp": time.Now().UTC(),
	}
	if state != session.StateIdle {
		status["start_time"] = startTime.UTC()
		status["elapsed"] = time.Since(startTime).String()
		status["output_dir"] = outputDir
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// handleConfig implements the /config endpoint
func (mon *Monitor) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Sanitized configuration, API key omitted.
	sanitized := map[string]interface{}{
		"audio": map[string]interface{}{
			"capture_sample_rate": mon.config.Audio.CaptureSampleRate,
			"capture_channels":    mon.config.Audio.CaptureChannels,
			"sample_rate":         mon.config.Audio.SampleRate,
			"chunk_duration":      mon.config.Audio.ChunkDuration,
		},
		"engine": map[string]interface{}{
			"type":           mon.config.Engine.Type,
			"command":        mon.config.Engine.Command,
			"model_path":     mon.config.Engine.ModelPath,
			"endpoint":       mon.config.Engine.Endpoint,
			"timeout":        mon.config.Engine.Timeout,
			"max_retries":    mon.config.Engine.MaxRetries,
			"max_concurrent": mon.config.Engine.MaxConcurrent,
			"language":       mon.config.Engine.Language,
		},
		"output": map[string]interface{}{
			"meetings_dir": mon.config.Output.MeetingsDir,
			"state_dir":    mon.config.Output.StateDir,
		},
		"sequencer": map[string]interface{}{
			"stall_timeout": mon.config.Sequencer.StallTimeout,
		},
		"logging": map[string]interface{}{
			"level":  mon.config.Logging.Level,
			"format": mon.config.Logging.Format,
			"output": mon.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitized)
}

// handleRoot implements the / endpoint with API documentation
func (mon *Monitor) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Transcriptor",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":        "API documentation",
			"GET /health":  "Service health check",
			"GET /status":  "Recording session status",
			"GET /config":  "Service configuration",
			"GET /metrics": "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
