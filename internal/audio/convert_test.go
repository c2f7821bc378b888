package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func s16Buffer(rate, channels int, planar bool, frames [][]int16) SampleBuffer {
	n := len(frames)
	data := make([]byte, n*channels*2)
	for i, frame := range frames {
		for ch := 0; ch < channels; ch++ {
			var off int
			if planar {
				off = (ch*n + i) * 2
			} else {
				off = (i*channels + ch) * 2
			}
			binary.LittleEndian.PutUint16(data[off:], uint16(frame[ch]))
		}
	}
	return SampleBuffer{
		Data:   data,
		Frames: n,
		Format: SourceFormat{SampleRate: rate, Channels: channels, Encoding: EncodingS16, Planar: planar},
	}
}

func f32MonoBuffer(rate int, samples []float32) SampleBuffer {
	data := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(s))
	}
	return SampleBuffer{
		Data:   data,
		Frames: len(samples),
		Format: SourceFormat{SampleRate: rate, Channels: 1, Encoding: EncodingF32},
	}
}

func TestConverterOutputCount(t *testing.T) {
	tests := []struct {
		name    string
		srcRate int
	}{
		{"8kHz upsampled", 8000},
		{"16kHz passthrough", 16000},
		{"44.1kHz downsampled", 44100},
		{"48kHz downsampled", 48000},
	}

	const targetRate = 16000

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := NewConverter(targetRate)

			// Two seconds of input split into uneven buffers.
			totalFrames := tt.srcRate * 2
			splits := []int{tt.srcRate / 3, tt.srcRate / 7, 1}

			var produced, consumed int
			for consumed < totalFrames {
				size := splits[consumed%len(splits)]
				if size == 0 || consumed+size > totalFrames {
					size = totalFrames - consumed
				}

				samples := make([]float32, size)
				for i := range samples {
					samples[i] = float32(math.Sin(float64(consumed+i) * 0.01))
				}

				out, err := conv.Convert(f32MonoBuffer(tt.srcRate, samples))
				if err != nil {
					t.Fatalf("conversion failed: %v", err)
				}
				produced += len(out)
				consumed += size
			}

			want := float64(totalFrames) * targetRate / float64(tt.srcRate)
			if diff := math.Abs(float64(produced) - want); diff > 1 {
				t.Errorf("expected about %.0f output samples, got %d (diff %.2f)", want, produced, diff)
			}
		})
	}
}

func TestConverterConstantSignal(t *testing.T) {
	conv := NewConverter(16000)

	samples := make([]float32, 4800)
	for i := range samples {
		samples[i] = 0.5
	}

	out, err := conv.Convert(f32MonoBuffer(48000, samples))
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected output samples")
	}

	// Linear interpolation of a constant is the constant.
	want := int16(math.Round(0.5 * 32767))
	for i, s := range out {
		if s != want {
			t.Fatalf("sample %d: expected %d, got %d", i, want, s)
		}
	}
}

func TestConverterDownmixAveragesChannels(t *testing.T) {
	conv := NewConverter(16000)

	frames := make([][]int16, 160)
	for i := range frames {
		frames[i] = []int16{1000, 3000}
	}

	out, err := conv.Convert(s16Buffer(16000, 2, false, frames))
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected output samples")
	}

	for i, s := range out {
		if s != 2000 {
			t.Fatalf("sample %d: expected 2000, got %d", i, s)
		}
	}
}

func TestConverterPlanarMatchesInterleaved(t *testing.T) {
	frames := make([][]int16, 480)
	for i := range frames {
		frames[i] = []int16{int16(i * 10), int16(-i * 7)}
	}

	interleaved := NewConverter(16000)
	planar := NewConverter(16000)

	outI, err := interleaved.Convert(s16Buffer(48000, 2, false, frames))
	if err != nil {
		t.Fatalf("interleaved conversion failed: %v", err)
	}
	outP, err := planar.Convert(s16Buffer(48000, 2, true, frames))
	if err != nil {
		t.Fatalf("planar conversion failed: %v", err)
	}

	if len(outI) != len(outP) {
		t.Fatalf("output lengths differ: %d vs %d", len(outI), len(outP))
	}
	for i := range outI {
		if outI[i] != outP[i] {
			t.Fatalf("sample %d differs: interleaved %d, planar %d", i, outI[i], outP[i])
		}
	}
}

func TestConverterS32Decoding(t *testing.T) {
	conv := NewConverter(16000)

	// 1<<22 / 2^31 scales to 64 in 16-bit range.
	data := make([]byte, 160*4)
	for i := 0; i < 160; i++ {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(1<<22))
	}

	out, err := conv.Convert(SampleBuffer{
		Data:   data,
		Frames: 160,
		Format: SourceFormat{SampleRate: 16000, Channels: 1, Encoding: EncodingS32},
	})
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	for i, s := range out {
		if s != 64 {
			t.Fatalf("sample %d: expected 64, got %d", i, s)
		}
	}
}

func TestConverterS8Decoding(t *testing.T) {
	conv := NewConverter(16000)

	// 64 / 128 scales to half amplitude, 16384 in 16-bit range.
	data := make([]byte, 160)
	for i := range data {
		data[i] = 64
	}

	out, err := conv.Convert(SampleBuffer{
		Data:   data,
		Frames: 160,
		Format: SourceFormat{SampleRate: 16000, Channels: 1, Encoding: EncodingS8},
	})
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	for i, s := range out {
		if s != 16384 {
			t.Fatalf("sample %d: expected 16384, got %d", i, s)
		}
	}
}

func TestConverterClampsOutOfRange(t *testing.T) {
	conv := NewConverter(16000)

	out, err := conv.Convert(f32MonoBuffer(16000, []float32{2.0, -2.0, 2.0, -2.0}))
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	for i, s := range out {
		if s != 32767 && s != -32768 {
			t.Fatalf("sample %d: expected clamped value, got %d", i, s)
		}
	}
}

func TestConverterRejectsInvalidFormats(t *testing.T) {
	tests := []struct {
		name string
		buf  SampleBuffer
	}{
		{
			name: "zero channels",
			buf: SampleBuffer{
				Data:   make([]byte, 64),
				Frames: 32,
				Format: SourceFormat{SampleRate: 16000, Channels: 0, Encoding: EncodingS16},
			},
		},
		{
			name: "zero sample rate",
			buf: SampleBuffer{
				Data:   make([]byte, 64),
				Frames: 32,
				Format: SourceFormat{SampleRate: 0, Channels: 1, Encoding: EncodingS16},
			},
		},
		{
			name: "unknown encoding",
			buf: SampleBuffer{
				Data:   make([]byte, 64),
				Frames: 32,
				Format: SourceFormat{SampleRate: 16000, Channels: 1, Encoding: SampleEncoding(99)},
			},
		},
		{
			name: "short data",
			buf: SampleBuffer{
				Data:   make([]byte, 10),
				Frames: 32,
				Format: SourceFormat{SampleRate: 16000, Channels: 1, Encoding: EncodingS16},
			},
		},
	}

	conv := NewConverter(16000)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := conv.Convert(tt.buf); !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("expected ErrUnsupportedFormat, got %v", err)
			}
		})
	}
}

func TestConverterEmptyBuffer(t *testing.T) {
	conv := NewConverter(16000)

	out, err := conv.Convert(f32MonoBuffer(48000, nil))
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected no output for empty buffer, got %d samples", len(out))
	}
}
