package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrUnsupportedFormat indicates a capture buffer whose source format cannot
// be represented. The caller drops the buffer and continues; conversion
// errors are never fatal to a session.
var ErrUnsupportedFormat = errors.New("unsupported source format")

// Converter resamples and downmixes arbitrary source PCM into the canonical
// target format (mono, 16-bit signed, fixed sample rate).
//
// Downmix policy: multi-channel input is averaged across all channels.
// Interleaved and planar layouts are normalized identically. Resampling is
// linear interpolation with fractional position carried across calls, so N
// seconds of input yields N*targetRate output samples within one sample of
// rounding regardless of how the input is split into buffers.
type Converter struct {
	targetRate int

	// resampler state, carried between calls
	srcRate int     // rate the carried state belongs to
	pos     float64 // fractional read position, 0 == prev
	prev    float64 // last input sample of the previous buffer
	primed  bool

	// reused scratch buffers; the slice returned by Convert is valid only
	// until the next Convert call
	mono []float64
	out  []int16
}

// NewConverter creates a converter producing mono 16-bit samples at targetRate.
func NewConverter(targetRate int) *Converter {
	return &Converter{targetRate: targetRate}
}

// TargetRate returns the canonical output sample rate in Hz
func (c *Converter) TargetRate() int {
	return c.targetRate
}

// Convert produces zero or more canonical samples covering the same
// wall-clock span as the input buffer. The returned slice is reused on the
// next call; callers must write it out before converting again.
func (c *Converter) Convert(buf SampleBuffer) ([]int16, error) {
	f := buf.Format
	if err := c.validateFormat(f, len(buf.Data), buf.Frames); err != nil {
		return nil, err
	}

	// A mid-stream rate change restarts the resampler phase.
	if c.primed && f.SampleRate != c.srcRate {
		c.primed = false
	}
	c.srcRate = f.SampleRate

	mono := c.downmix(buf)
	if len(mono) == 0 {
		return nil, nil
	}

	return c.resample(mono), nil
}

func (c *Converter) validateFormat(f SourceFormat, dataLen, frames int) error {
	if f.Channels < 1 {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, f.Channels)
	}
	if f.SampleRate < 1 {
		return fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, f.SampleRate)
	}
	bps := f.Encoding.BytesPerSample()
	if bps == 0 {
		return fmt.Errorf("%w: encoding %s", ErrUnsupportedFormat, f.Encoding)
	}
	if need := frames * f.Channels * bps; dataLen < need {
		return fmt.Errorf("%w: %d bytes for %d frames (need %d)", ErrUnsupportedFormat, dataLen, frames, need)
	}
	return nil
}

// downmix averages all channels of each frame into a single float in [-1, 1).
func (c *Converter) downmix(buf SampleBuffer) []float64 {
	f := buf.Format
	bps := f.Encoding.BytesPerSample()

	if cap(c.mono) < buf.Frames {
		c.mono = make([]float64, buf.Frames)
	}
	mono := c.mono[:buf.Frames]

	for i := 0; i < buf.Frames; i++ {
		var sum float64
		for ch := 0; ch < f.Channels; ch++ {
			var off int
			if f.Planar {
				off = (ch*buf.Frames + i) * bps
			} else {
				off = (i*f.Channels + ch) * bps
			}
			sum += decodeSample(buf.Data[off:off+bps], f.Encoding)
		}
		mono[i] = sum / float64(f.Channels)
	}

	return mono
}

// resample emits target-rate samples by linear interpolation over the
// concatenation of the carried previous sample and the new mono samples.
func (c *Converter) resample(mono []float64) []int16 {
	if !c.primed {
		c.prev = mono[0]
		c.pos = 0
		c.primed = true
	}

	step := float64(c.srcRate) / float64(c.targetRate)
	n := len(mono)

	c.out = c.out[:0]
	pos := c.pos
	for pos <= float64(n) {
		i := int(pos)
		frac := pos - float64(i)

		s0 := c.sampleAt(mono, i)
		s1 := c.sampleAt(mono, i+1)
		v := s0 + (s1-s0)*frac

		c.out = append(c.out, clampS16(v))
		pos += step
	}

	c.pos = pos - float64(n)
	c.prev = mono[n-1]

	return c.out
}

// sampleAt addresses the virtual stream where index 0 is the carried previous
// sample and indices 1..n map to mono[0..n-1]; reads past the end clamp to
// the last sample.
func (c *Converter) sampleAt(mono []float64, i int) float64 {
	if i <= 0 {
		return c.prev
	}
	if i > len(mono) {
		i = len(mono)
	}
	return mono[i-1]
}

func decodeSample(b []byte, enc SampleEncoding) float64 {
	switch enc {
	case EncodingS8:
		return float64(int8(b[0])) / 128.0
	case EncodingS16:
		return float64(int16(binary.LittleEndian.Uint16(b))) / 32768.0
	case EncodingS32:
		return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648.0
	case EncodingF32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	default:
		return 0
	}
}

func clampS16(v float64) int16 {
	s := math.Round(v * 32767.0)
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return int16(s)
}
