package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Audio     AudioConfig     `yaml:"audio"`
	Engine    EngineConfig    `yaml:"engine"`
	Output    OutputConfig    `yaml:"output"`
	Sequencer SequencerConfig `yaml:"sequencer"`
	Session   SessionConfig   `yaml:"session"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AudioConfig contains capture and canonical-format parameters
type AudioConfig struct {
	CaptureSampleRate int     `yaml:"capture_sample_rate"` // Hz requested from the capture device
	CaptureChannels   int     `yaml:"capture_channels"`
	SampleRate        int     `yaml:"sample_rate"`    // canonical target rate, Hz
	ChunkDuration     float64 `yaml:"chunk_duration"` // seconds per chunk file
}

// EngineConfig contains transcription engine configuration.
// Type selects the backend: "command" runs an external binary per chunk,
// "http" uploads each chunk to a transcription endpoint.
type EngineConfig struct {
	Type          string   `yaml:"type"`
	Command       string   `yaml:"command"`
	ModelPath     string   `yaml:"model_path"`
	Args          []string `yaml:"args"`
	Endpoint      string   `yaml:"endpoint"`
	APIKey        string   `yaml:"api_key"`
	Timeout       int      `yaml:"timeout"` // seconds per transcription attempt
	MaxRetries    int      `yaml:"max_retries"`
	MaxConcurrent int      `yaml:"max_concurrent"`
	Language      string   `yaml:"language"`
}

// OutputConfig contains filesystem layout configuration
type OutputConfig struct {
	MeetingsDir string `yaml:"meetings_dir"`
	StateDir    string `yaml:"state_dir"`
}

// SequencerConfig contains transcript ordering configuration
type SequencerConfig struct {
	StallTimeout float64 `yaml:"stall_timeout"` // seconds before a stuck head-of-line job is abandoned
}

// SessionConfig contains session lifecycle configuration
type SessionConfig struct {
	StopPollInterval float64 `yaml:"stop_poll_interval"` // seconds between stop-marker polls
}

// HTTPConfig contains the optional monitor server configuration
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns a configuration with usable defaults for a local session.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			CaptureSampleRate: 48000,
			CaptureChannels:   1,
			SampleRate:        16000,
			ChunkDuration:     30,
		},
		Engine: EngineConfig{
			Type:          "command",
			Command:       "whisper-cli",
			Timeout:       120,
			MaxRetries:    2,
			MaxConcurrent: 4,
		},
		Output: OutputConfig{
			MeetingsDir: "meetings",
			StateDir:    ".transcriptor",
		},
		Sequencer: SequencerConfig{
			StallTimeout: 300,
		},
		Session: SessionConfig{
			StopPollInterval: 0.5,
		},
		HTTP: HTTPConfig{
			Enabled: false,
			Address: "127.0.0.1",
			Port:    8090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output config: %w", err)
	}

	if err := c.Sequencer.Validate(); err != nil {
		return fmt.Errorf("sequencer config: %w", err)
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.CaptureSampleRate < 8000 {
		return fmt.Errorf("capture_sample_rate must be at least 8000 Hz, got %d", a.CaptureSampleRate)
	}

	if a.CaptureChannels < 1 {
		return fmt.Errorf("capture_channels must be at least 1, got %d", a.CaptureChannels)
	}

	if a.SampleRate < 8000 {
		return fmt.Errorf("sample_rate must be at least 8000 Hz, got %d", a.SampleRate)
	}

	if a.ChunkDuration < 1 {
		return fmt.Errorf("chunk_duration must be at least 1 second, got %f", a.ChunkDuration)
	}

	return nil
}

// Validate validates engine configuration
func (e *EngineConfig) Validate() error {
	switch e.Type {
	case "command":
		if e.Command == "" {
			return fmt.Errorf("command cannot be empty for engine type 'command'")
		}
	case "http":
		if e.Endpoint == "" {
			return fmt.Errorf("endpoint cannot be empty for engine type 'http'")
		}
	default:
		return fmt.Errorf("type must be 'command' or 'http', got '%s'", e.Type)
	}

	if e.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", e.Timeout)
	}

	if e.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", e.MaxRetries)
	}

	if e.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", e.MaxConcurrent)
	}

	return nil
}

// Validate validates output configuration
func (o *OutputConfig) Validate() error {
	if o.MeetingsDir == "" {
		return fmt.Errorf("meetings_dir cannot be empty")
	}

	if o.StateDir == "" {
		return fmt.Errorf("state_dir cannot be empty")
	}

	return nil
}

// Validate validates sequencer configuration
func (s *SequencerConfig) Validate() error {
	if s.StallTimeout <= 0 {
		return fmt.Errorf("stall_timeout must be positive, got %f", s.StallTimeout)
	}

	return nil
}

// Validate validates session configuration
func (s *SessionConfig) Validate() error {
	if s.StopPollInterval <= 0 || s.StopPollInterval > 10 {
		return fmt.Errorf("stop_poll_interval must be between 0 and 10 seconds, got %f", s.StopPollInterval)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetChunkDuration returns the chunk duration as a time.Duration
func (a *AudioConfig) GetChunkDuration() time.Duration {
	return time.Duration(a.ChunkDuration * float64(time.Second))
}

// GetTimeoutDuration returns the engine timeout as a time.Duration
func (e *EngineConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(e.Timeout) * time.Second
}

// GetStallTimeout returns the sequencer stall timeout as a time.Duration
func (s *SequencerConfig) GetStallTimeout() time.Duration {
	return time.Duration(s.StallTimeout * float64(time.Second))
}

// GetStopPollInterval returns the stop-marker poll interval as a time.Duration
func (s *SessionConfig) GetStopPollInterval() time.Duration {
	return time.Duration(s.StopPollInterval * float64(time.Second))
}
