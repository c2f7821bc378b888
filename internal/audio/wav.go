package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
)

const wavHeaderSize = 44

// ErrSinkClosed indicates a write or close on an already-closed WAV writer
var ErrSinkClosed = errors.New("wav writer is closed")

// WAVHeader represents the header structure of a WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

func newWAVHeader(sampleRate int, dataSize uint32) WAVHeader {
	numChannels := uint16(1)
	bitsPerSample := uint16(16)

	return WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

func (h WAVHeader) encode() []byte {
	buf := make([]byte, 0, wavHeaderSize)
	buf = append(buf, h.ChunkID[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, h.ChunkSize)
	buf = append(buf, h.Format[:]...)
	buf = append(buf, h.Subchunk1ID[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, h.Subchunk1Size)
	buf = binary.LittleEndian.AppendUint16(buf, h.AudioFormat)
	buf = binary.LittleEndian.AppendUint16(buf, h.NumChannels)
	buf = binary.LittleEndian.AppendUint32(buf, h.SampleRate)
	buf = binary.LittleEndian.AppendUint32(buf, h.ByteRate)
	buf = binary.LittleEndian.AppendUint16(buf, h.BlockAlign)
	buf = binary.LittleEndian.AppendUint16(buf, h.BitsPerSample)
	buf = append(buf, h.Subchunk2ID[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, h.Subchunk2Size)
	return buf
}

// WAVWriter streams canonical PCM samples into a chunk file. A placeholder
// header with zero sizes is written on open; Close seeks back and patches the
// real sizes. A file that was never closed (process crash) therefore reads
// back with a zero data size and is detected as incomplete during recovery.
type WAVWriter struct {
	path       string
	sampleRate int

	mu        sync.Mutex
	f         *os.File
	dataBytes uint32
	closed    bool
	scratch   []byte
}

// NewWAVWriter creates the chunk file and reserves the header
func NewWAVWriter(path string, sampleRate int) (*WAVWriter, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create chunk file: %w", err)
	}

	if _, err := f.Write(newWAVHeader(sampleRate, 0).encode()); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write placeholder header: %w", err)
	}

	return &WAVWriter{
		path:       path,
		sampleRate: sampleRate,
		f:          f,
	}, nil
}

// Path returns the chunk file path
func (w *WAVWriter) Path() string {
	return w.path
}

// DataBytes returns the number of sample bytes written so far
func (w *WAVWriter) DataBytes() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dataBytes
}

// WriteSamples appends canonical samples to the chunk file. This is the
// steady-state hot path: samples are encoded into a reused scratch buffer
// and written with a single syscall.
func (w *WAVWriter) WriteSamples(samples []int16) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrSinkClosed
	}
	if len(samples) == 0 {
		return nil
	}

	need := len(samples) * 2
	if cap(w.scratch) < need {
		w.scratch = make([]byte, need)
	}
	buf := w.scratch[:need]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}

	n, err := w.f.Write(buf)
	w.dataBytes += uint32(n)
	if err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}

	return nil
}

// Close patches the header with the final sizes and closes the file.
// Closing twice is an error; so is writing after close.
func (w *WAVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrSinkClosed
	}
	w.closed = true

	if _, err := w.f.Seek(0, 0); err != nil {
		w.f.Close()
		return fmt.Errorf("failed to seek to header: %w", err)
	}

	if _, err := w.f.Write(newWAVHeader(w.sampleRate, w.dataBytes).encode()); err != nil {
		w.f.Close()
		return fmt.Errorf("failed to patch header: %w", err)
	}

	if err := w.f.Close(); err != nil {
		return fmt.Errorf("failed to close chunk file: %w", err)
	}

	return nil
}

// WAVInfo describes a WAV file on disk
type WAVInfo struct {
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	DataSize      uint32  `json:"data_size_bytes"`
	NumSamples    uint32  `json:"num_samples"`
}

// ReadWAVInfo extracts metadata from a WAV file header. A DataSize of zero
// marks a file that was never finalized and must be treated as incomplete.
func ReadWAVInfo(path string) (*WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer f.Close()

	hdr := make([]byte, wavHeaderSize)
	if _, err := f.Read(hdr); err != nil {
		return nil, fmt.Errorf("WAV header too short: %w", err)
	}

	if err := validateWAVHeader(hdr); err != nil {
		return nil, err
	}

	sampleRate := binary.LittleEndian.Uint32(hdr[24:28])
	channels := binary.LittleEndian.Uint16(hdr[22:24])
	bits := binary.LittleEndian.Uint16(hdr[34:36])
	dataSize := binary.LittleEndian.Uint32(hdr[40:44])

	if sampleRate == 0 {
		return nil, fmt.Errorf("invalid WAV file: zero sample rate")
	}
	if bits < 8 || bits%8 != 0 {
		return nil, fmt.Errorf("invalid WAV file: bit depth %d", bits)
	}

	numSamples := dataSize / uint32(bits/8)

	return &WAVInfo{
		SampleRate:    sampleRate,
		Channels:      channels,
		BitsPerSample: bits,
		Duration:      float64(numSamples) / float64(sampleRate),
		DataSize:      dataSize,
		NumSamples:    numSamples,
	}, nil
}

// ReadWAVSamples decodes a finalized mono 16-bit WAV file back to samples
func ReadWAVSamples(path string) ([]int16, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read WAV file: %w", err)
	}

	if len(data) < wavHeaderSize {
		return nil, 0, fmt.Errorf("WAV data too short: need at least %d bytes, got %d", wavHeaderSize, len(data))
	}

	if err := validateWAVHeader(data); err != nil {
		return nil, 0, err
	}

	if format := binary.LittleEndian.Uint16(data[20:22]); format != 1 {
		return nil, 0, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", format)
	}

	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != 16 {
		return nil, 0, fmt.Errorf("unsupported bit depth: %d (only 16-bit is supported)", bits)
	}

	if channels := binary.LittleEndian.Uint16(data[22:24]); channels != 1 {
		return nil, 0, fmt.Errorf("unsupported channel count: %d (only mono is supported)", channels)
	}

	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	dataSize := binary.LittleEndian.Uint32(data[40:44])

	numSamples := int(dataSize) / 2
	if wavHeaderSize+numSamples*2 > len(data) {
		return nil, 0, fmt.Errorf("WAV data truncated: header claims %d bytes, file has %d", dataSize, len(data)-wavHeaderSize)
	}

	samples := make([]int16, numSamples)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[wavHeaderSize+i*2:]))
	}

	return samples, int(sampleRate), nil
}

func validateWAVHeader(hdr []byte) error {
	if string(hdr[0:4]) != "RIFF" {
		return fmt.Errorf("invalid WAV file: missing RIFF header")
	}
	if string(hdr[8:12]) != "WAVE" {
		return fmt.Errorf("invalid WAV file: missing WAVE format")
	}
	if string(hdr[12:16]) != "fmt " {
		return fmt.Errorf("invalid WAV file: missing fmt chunk")
	}
	if string(hdr[36:40]) != "data" {
		return fmt.Errorf("invalid WAV file: missing data chunk")
	}
	return nil
}
