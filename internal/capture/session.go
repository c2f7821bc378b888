package capture

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/BrianVia/transcriptor/internal/audio"
)

// Sink receives canonical samples from a capture session. Implemented by
// audio.WAVWriter.
type Sink interface {
	WriteSamples(samples []int16) error
}

// Session binds one capture source to one sink through the format converter
// for the lifetime of a single chunk. Stop guarantees that no further sink
// writes occur after it returns; the chunk rotator depends on this to close
// and rotate the sink safely.
type Session struct {
	source Source
	conv   *audio.Converter
	sink   Sink
	logger *slog.Logger

	// mu gates the callback against Stop: the callback holds the read side
	// while writing, Stop takes the write side to flip stopped, so acquiring
	// it means no write is in flight.
	mu      sync.RWMutex
	stopped bool

	buffers   atomic.Uint64
	convErrs  atomic.Uint64
	writeErrs atomic.Uint64
}

// NewSession creates a session. It does not start capturing.
func NewSession(source Source, conv *audio.Converter, sink Sink, logger *slog.Logger) *Session {
	return &Session{
		source: source,
		conv:   conv,
		sink:   sink,
		logger: logger,
	}
}

// Start begins pulling buffers from the source into the sink
func (s *Session) Start() error {
	return s.source.Start(s.onBuffer)
}

// Stop halts capture. When it returns, no write to the sink is in flight
// and none will follow.
func (s *Session) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	return s.source.Stop()
}

// Buffers reports the number of buffers converted during this session
func (s *Session) Buffers() uint64 {
	return s.buffers.Load()
}

// WriteErrors reports the number of failed sink writes during this session
func (s *Session) WriteErrors() uint64 {
	return s.writeErrs.Load()
}

// ConversionErrors reports the number of dropped buffers during this session
func (s *Session) ConversionErrors() uint64 {
	return s.convErrs.Load()
}

// onBuffer runs on the capture callback: convert and write, nothing that
// blocks.
func (s *Session) onBuffer(buf audio.SampleBuffer) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stopped {
		return
	}

	samples, err := s.conv.Convert(buf)
	if err != nil {
		// Unconvertible buffers are dropped; the session keeps running.
		s.convErrs.Add(1)
		s.logger.Warn("Dropping unconvertible capture buffer",
			slog.String("format", buf.Format.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	s.buffers.Add(1)

	if len(samples) == 0 {
		return
	}

	if err := s.sink.WriteSamples(samples); err != nil {
		if s.writeErrs.Add(1) == 1 || !errors.Is(err, audio.ErrSinkClosed) {
			s.logger.Error("Chunk sink write failed",
				slog.String("error", err.Error()),
			)
		}
	}
}
