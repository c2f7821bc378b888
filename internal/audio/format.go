package audio

import (
	"fmt"
	"time"
)

// SampleEncoding identifies how raw sample bytes are encoded.
type SampleEncoding int

const (
	EncodingS8  SampleEncoding = iota // 8-bit signed
	EncodingS16                       // 16-bit signed little-endian
	EncodingS32                       // 32-bit signed little-endian
	EncodingF32                       // 32-bit IEEE float little-endian
)

// String returns a human-readable encoding name
func (e SampleEncoding) String() string {
	switch e {
	case EncodingS8:
		return "s8"
	case EncodingS16:
		return "s16le"
	case EncodingS32:
		return "s32le"
	case EncodingF32:
		return "f32le"
	default:
		return fmt.Sprintf("unknown(%d)", int(e))
	}
}

// BytesPerSample returns the byte width of one sample, or 0 for unknown encodings
func (e SampleEncoding) BytesPerSample() int {
	switch e {
	case EncodingS8:
		return 1
	case EncodingS16:
		return 2
	case EncodingS32, EncodingF32:
		return 4
	default:
		return 0
	}
}

// SourceFormat describes the PCM layout of a capture buffer.
// Planar buffers store each channel contiguously; interleaved buffers
// alternate channels per frame.
type SourceFormat struct {
	SampleRate int
	Channels   int
	Encoding   SampleEncoding
	Planar     bool
}

// String returns a compact format description for logging
func (f SourceFormat) String() string {
	layout := "interleaved"
	if f.Planar {
		layout = "planar"
	}
	return fmt.Sprintf("%dHz/%dch/%s/%s", f.SampleRate, f.Channels, f.Encoding, layout)
}

// SampleBuffer is a timestamped block of PCM samples delivered by the
// capture source. The converter consumes it in a single call and never
// retains it.
type SampleBuffer struct {
	Data      []byte
	Frames    int // sample frames in Data (one sample per channel each)
	Format    SourceFormat
	Timestamp time.Time
}
