package record

import (
	"encoding/binary"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/BrianVia/transcriptor/internal/audio"
	"github.com/BrianVia/transcriptor/internal/capture"
	"github.com/BrianVia/transcriptor/internal/metrics"
)

type fakeSource struct {
	mu sync.Mutex
	fn capture.SampleFunc
}

func (f *fakeSource) Start(fn capture.SampleFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fn = fn
	return nil
}

func (f *fakeSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fn = nil
	return nil
}

func (f *fakeSource) Format() audio.SourceFormat {
	return audio.SourceFormat{SampleRate: 48000, Channels: 1, Encoding: audio.EncodingF32}
}

func (f *fakeSource) Close() error { return f.Stop() }

func (f *fakeSource) emit(samples []float32) {
	data := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(s))
	}
	buf := audio.SampleBuffer{
		Data:      data,
		Frames:    len(samples),
		Format:    f.Format(),
		Timestamp: time.Now(),
	}

	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		fn(buf)
	}
}

type chunkCollector struct {
	mu     sync.Mutex
	chunks []*Chunk
}

func (c *chunkCollector) Submit(chunk *Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, chunk)
}

func (c *chunkCollector) collected() []*Chunk {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Chunk, len(c.chunks))
	copy(out, c.chunks)
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRotatorSingleChunk(t *testing.T) {
	source := &fakeSource{}
	collector := &chunkCollector{}
	rotator := NewRotator(testLogger(), metrics.NewMetrics(), source, collector,
		t.TempDir(), 16000, time.Hour)

	if err := rotator.Start(); err != nil {
		t.Fatalf("failed to start rotator: %v", err)
	}

	// One second of 48kHz input.
	for i := 0; i < 10; i++ {
		source.emit(make([]float32, 4800))
	}

	if err := rotator.Stop(); err != nil {
		t.Fatalf("failed to stop rotator: %v", err)
	}

	chunks := collector.collected()
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}

	chunk := chunks[0]
	if chunk.Sequence != 1 {
		t.Errorf("expected sequence 1, got %d", chunk.Sequence)
	}
	if chunk.State != ChunkClosed {
		t.Errorf("expected state %s, got %s", ChunkClosed, chunk.State)
	}
	if chunk.DataBytes == 0 {
		t.Error("expected data in the chunk")
	}

	info, err := audio.ReadWAVInfo(chunk.Path)
	if err != nil {
		t.Fatalf("failed to read chunk file: %v", err)
	}
	if info.DataSize == 0 {
		t.Error("chunk file header was never patched")
	}
	if info.SampleRate != 16000 {
		t.Errorf("expected 16kHz chunk file, got %d", info.SampleRate)
	}
}

func TestRotatorRotatesOnInterval(t *testing.T) {
	source := &fakeSource{}
	collector := &chunkCollector{}
	rotator := NewRotator(testLogger(), metrics.NewMetrics(), source, collector,
		t.TempDir(), 16000, 30*time.Millisecond)

	if err := rotator.Start(); err != nil {
		t.Fatalf("failed to start rotator: %v", err)
	}

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		source.emit(make([]float32, 480))
		time.Sleep(5 * time.Millisecond)
	}

	if err := rotator.Stop(); err != nil {
		t.Fatalf("failed to stop rotator: %v", err)
	}

	chunks := collector.collected()
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks after 150ms at 30ms interval, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if chunk.Sequence != uint64(i+1) {
			t.Errorf("chunk %d: expected sequence %d, got %d", i, i+1, chunk.Sequence)
		}
		if chunk.State != ChunkClosed {
			t.Errorf("chunk %d: expected state %s, got %s", i, ChunkClosed, chunk.State)
		}
	}

	// Submissions and the accessor agree.
	kept := rotator.Chunks()
	if len(kept) != len(chunks) {
		t.Errorf("Chunks() returned %d, submitter saw %d", len(kept), len(chunks))
	}
}

func TestRotatorStopIsIdempotent(t *testing.T) {
	source := &fakeSource{}
	collector := &chunkCollector{}
	rotator := NewRotator(testLogger(), metrics.NewMetrics(), source, collector,
		t.TempDir(), 16000, time.Hour)

	if err := rotator.Start(); err != nil {
		t.Fatalf("failed to start rotator: %v", err)
	}

	if err := rotator.Stop(); err != nil {
		t.Fatalf("first stop failed: %v", err)
	}
	if err := rotator.Stop(); err != nil {
		t.Fatalf("second stop failed: %v", err)
	}

	if got := len(collector.collected()); got != 1 {
		t.Errorf("expected 1 chunk after double stop, got %d", got)
	}
}

func TestRotatorOffsetsAdvance(t *testing.T) {
	source := &fakeSource{}
	collector := &chunkCollector{}
	rotator := NewRotator(testLogger(), metrics.NewMetrics(), source, collector,
		t.TempDir(), 16000, 20*time.Millisecond)

	if err := rotator.Start(); err != nil {
		t.Fatalf("failed to start rotator: %v", err)
	}

	time.Sleep(90 * time.Millisecond)

	if err := rotator.Stop(); err != nil {
		t.Fatalf("failed to stop rotator: %v", err)
	}

	chunks := collector.collected()
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	if chunks[0].Offset != 0 {
		t.Errorf("expected first chunk at offset 0, got %v", chunks[0].Offset)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Offset <= chunks[i-1].Offset {
			t.Errorf("chunk %d offset %v not after chunk %d offset %v",
				i, chunks[i].Offset, i-1, chunks[i-1].Offset)
		}
	}
}
