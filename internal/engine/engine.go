// Package engine provides the boundary to the out-of-process speech-to-text
// engine. A chunk audio file goes in, transcript text comes out; engine
// availability is checked once at session start, never per chunk.
package engine

import (
	"context"
	"fmt"

	"github.com/BrianVia/transcriptor/internal/config"
)

// Engine transcribes one chunk audio file. Implementations invoke an
// external process or service with unspecified latency; callers decide how
// many invocations run concurrently.
type Engine interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// New builds the engine selected by the configuration and verifies it is
// usable. A missing binary, model, or endpoint is a configuration error
// surfaced here, at session start.
func New(cfg config.EngineConfig) (Engine, error) {
	switch cfg.Type {
	case "command":
		return NewCommandEngine(cfg)
	case "http":
		return NewHTTPEngine(cfg)
	default:
		return nil, fmt.Errorf("unknown engine type '%s'", cfg.Type)
	}
}
