package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{
			name:        "default configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name: "invalid capture sample rate",
			mutate: func(c *Config) {
				c.Audio.CaptureSampleRate = 0
			},
			expectError: true,
		},
		{
			name: "invalid capture channels",
			mutate: func(c *Config) {
				c.Audio.CaptureChannels = -1
			},
			expectError: true,
		},
		{
			name: "invalid target sample rate",
			mutate: func(c *Config) {
				c.Audio.SampleRate = 0
			},
			expectError: true,
		},
		{
			name: "zero chunk duration",
			mutate: func(c *Config) {
				c.Audio.ChunkDuration = 0
			},
			expectError: true,
		},
		{
			name: "unknown engine type",
			mutate: func(c *Config) {
				c.Engine.Type = "telepathy"
			},
			expectError: true,
		},
		{
			name: "command engine without command",
			mutate: func(c *Config) {
				c.Engine.Type = "command"
				c.Engine.Command = ""
			},
			expectError: true,
		},
		{
			name: "http engine without endpoint",
			mutate: func(c *Config) {
				c.Engine.Type = "http"
				c.Engine.Endpoint = ""
			},
			expectError: true,
		},
		{
			name: "http engine with endpoint",
			mutate: func(c *Config) {
				c.Engine.Type = "http"
				c.Engine.Endpoint = "http://localhost:9000/transcribe"
			},
			expectError: false,
		},
		{
			name: "zero engine timeout",
			mutate: func(c *Config) {
				c.Engine.Timeout = 0
			},
			expectError: true,
		},
		{
			name: "empty meetings dir",
			mutate: func(c *Config) {
				c.Output.MeetingsDir = ""
			},
			expectError: true,
		},
		{
			name: "empty state dir",
			mutate: func(c *Config) {
				c.Output.StateDir = ""
			},
			expectError: true,
		},
		{
			name: "zero stall timeout",
			mutate: func(c *Config) {
				c.Sequencer.StallTimeout = 0
			},
			expectError: true,
		},
		{
			name: "stop poll interval too large",
			mutate: func(c *Config) {
				c.Session.StopPollInterval = 60
			},
			expectError: true,
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.Logging.Level = "verbose"
			},
			expectError: true,
		},
		{
			name: "invalid log format",
			mutate: func(c *Config) {
				c.Logging.Format = "xml"
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.expectError && err == nil {
				t.Errorf("expected validation error, got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
audio:
  capture_sample_rate: 44100
  sample_rate: 16000
  chunk_duration: 15
engine:
  type: http
  endpoint: http://localhost:9000/transcribe
  timeout: 60
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Audio.CaptureSampleRate != 44100 {
		t.Errorf("expected capture_sample_rate 44100, got %d", cfg.Audio.CaptureSampleRate)
	}
	if cfg.Audio.ChunkDuration != 15 {
		t.Errorf("expected chunk_duration 15, got %f", cfg.Audio.ChunkDuration)
	}
	if cfg.Engine.Type != "http" {
		t.Errorf("expected engine type http, got %s", cfg.Engine.Type)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}

	// Unset keys keep their defaults.
	if cfg.Audio.CaptureChannels != 1 {
		t.Errorf("expected default capture_channels 1, got %d", cfg.Audio.CaptureChannels)
	}
	if cfg.Output.MeetingsDir != "meetings" {
		t.Errorf("expected default meetings_dir, got %s", cfg.Output.MeetingsDir)
	}
}

func TestConfigLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestConfigLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("audio: [not: valid"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestDurationGetters(t *testing.T) {
	cfg := Default()

	if got := cfg.Audio.GetChunkDuration(); got != 30*time.Second {
		t.Errorf("expected chunk duration 30s, got %v", got)
	}
	if got := cfg.Engine.GetTimeoutDuration(); got != 120*time.Second {
		t.Errorf("expected engine timeout 120s, got %v", got)
	}
	if got := cfg.Sequencer.GetStallTimeout(); got != 300*time.Second {
		t.Errorf("expected stall timeout 300s, got %v", got)
	}
	if got := cfg.Session.GetStopPollInterval(); got != 500*time.Millisecond {
		t.Errorf("expected stop poll interval 500ms, got %v", got)
	}
}
