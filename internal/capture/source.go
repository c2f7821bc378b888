package capture

import (
	"github.com/BrianVia/transcriptor/internal/audio"
)

// SampleFunc receives capture buffers. It runs on the audio callback and
// must not block.
type SampleFunc func(audio.SampleBuffer)

// Source is the boundary to the audio subsystem. It delivers timestamped
// sample buffers in its native format until stopped.
type Source interface {
	// Start begins delivering sample buffers to fn.
	Start(fn SampleFunc) error

	// Stop halts delivery. When it returns, no call to fn is in flight and
	// none will follow until the next Start.
	Stop() error

	// Format reports the source's native sample format.
	Format() audio.SourceFormat

	// Close releases the underlying device resources.
	Close() error
}
