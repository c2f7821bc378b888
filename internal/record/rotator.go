package record

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/BrianVia/transcriptor/internal/audio"
	"github.com/BrianVia/transcriptor/internal/capture"
	"github.com/BrianVia/transcriptor/internal/metrics"
)

// Submitter receives closed chunks for transcription. Implemented by
// transcript.Sequencer.
type Submitter interface {
	Submit(c *Chunk)
}

// Rotator swaps the active chunk on a fixed interval. Each rotation stops
// the current capture session, closes its sink, hands the finished chunk to
// the submitter, and only then starts a new session against a fresh sink —
// a half-written chunk can never reach transcription, and the new session
// cannot race the old one on the audio source.
//
// Rotations are serialized by r.mu; an external stop arriving mid-rotation
// runs after the rotation completes.
type Rotator struct {
	logger    *slog.Logger
	m         *metrics.Metrics
	source    capture.Source
	submitter Submitter
	dir       string
	rate      int
	interval  time.Duration

	// one converter for the whole recording keeps the resample phase
	// continuous across chunk boundaries
	conv *audio.Converter

	mu           sync.Mutex
	sessionStart time.Time
	seq          uint64
	cur          *capture.Session
	curSink      *audio.WAVWriter
	curChunk     *Chunk
	chunks       []*Chunk
	stopped      bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRotator creates a rotator writing chunk files under dir
func NewRotator(logger *slog.Logger, m *metrics.Metrics, source capture.Source, submitter Submitter,
	dir string, sampleRate int, interval time.Duration) *Rotator {

	return &Rotator{
		logger:    logger,
		m:         m,
		source:    source,
		submitter: submitter,
		dir:       dir,
		rate:      sampleRate,
		interval:  interval,
		conv:      audio.NewConverter(sampleRate),
	}
}

// Start opens the first chunk and begins the rotation timer
func (r *Rotator) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return fmt.Errorf("rotator already started")
	}

	now := time.Now()
	r.sessionStart = now

	if err := r.startChunkLocked(now); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.run(ctx)

	return nil
}

// Stop suppresses further rotations, closes the final partial chunk, and
// submits it. No frames are discarded on stop; only the next scheduled
// rotation is dropped.
func (r *Rotator) Stop() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	// Stop the timer before closing so a tick cannot start a new chunk
	// after the final one is flushed.
	if cancel != nil {
		cancel()
		<-done
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeCurrentLocked(time.Now())

	return nil
}

// Chunks returns all closed chunks in sequence order
func (r *Rotator) Chunks() []*Chunk {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Chunk, len(r.chunks))
	copy(out, r.chunks)
	return out
}

// CurrentSequence returns the sequence of the chunk currently recording,
// or the last closed sequence if no session is active.
func (r *Rotator) CurrentSequence() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// run fires rotations on the chunk interval
func (r *Rotator) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.rotate(ctx)
		}
	}
}

// rotate performs one chunk boundary: close and submit the finished chunk,
// then start the next one.
func (r *Rotator) rotate(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A stop may have won the race to the mutex; the final chunk is then
	// already flushed.
	if r.stopped || ctx.Err() != nil {
		return
	}

	now := time.Now()
	r.closeCurrentLocked(now)

	if err := r.startChunkLocked(now); err != nil {
		// Fatal to this chunk only; the next tick tries again.
		r.logger.Error("Failed to open next chunk",
			slog.Uint64("sequence", r.seq+1),
			slog.String("error", err.Error()),
		)
	}
}

// startChunkLocked opens sink N+1 and starts a capture session against it.
// Callers hold r.mu.
func (r *Rotator) startChunkLocked(now time.Time) error {
	seq := r.seq + 1
	path := filepath.Join(r.dir, fmt.Sprintf("chunk_%04d.wav", seq))

	sink, err := audio.NewWAVWriter(path, r.rate)
	if err != nil {
		return fmt.Errorf("failed to open chunk sink: %w", err)
	}

	session := capture.NewSession(r.source, r.conv, sink, r.logger)
	if err := session.Start(); err != nil {
		sink.Close()
		return fmt.Errorf("failed to start capture session: %w", err)
	}

	r.seq = seq
	r.cur = session
	r.curSink = sink
	r.curChunk = &Chunk{
		Sequence:  seq,
		Path:      path,
		Offset:    now.Sub(r.sessionStart),
		StartTime: now,
		State:     ChunkRecording,
	}

	r.logger.Debug("Chunk recording started",
		slog.Uint64("sequence", seq),
		slog.String("path", path),
	)

	return nil
}

// closeCurrentLocked stops the active session, closes its sink, and submits
// the chunk. The session is stopped before the sink is closed, and the sink
// is closed before the chunk is submitted: ownership of the file transfers
// to the sequencer only once the header is patched. Callers hold r.mu.
func (r *Rotator) closeCurrentLocked(now time.Time) {
	if r.cur == nil {
		return
	}

	session, sink, chunk := r.cur, r.curSink, r.curChunk
	r.cur, r.curSink, r.curChunk = nil, nil, nil

	if err := session.Stop(); err != nil {
		r.logger.Error("Failed to stop capture session",
			slog.Uint64("sequence", chunk.Sequence),
			slog.String("error", err.Error()),
		)
	}
	if n := session.Buffers(); n > 0 {
		r.m.BuffersConverted.Add(float64(n))
	}
	if n := session.ConversionErrors(); n > 0 {
		r.m.ConversionErrors.Add(float64(n))
	}
	if n := session.WriteErrors(); n > 0 {
		r.m.SinkErrors.Add(float64(n))
	}

	chunk.Duration = now.Sub(chunk.StartTime)
	chunk.DataBytes = sink.DataBytes()

	if err := sink.Close(); err != nil {
		// The header was never patched, so the file reads as incomplete.
		// Submit the chunk as failed: it must still consume its sequence
		// slot or every later chunk would wait on it forever.
		r.logger.Error("Failed to close chunk sink",
			slog.Uint64("sequence", chunk.Sequence),
			slog.String("error", err.Error()),
		)
		chunk.State = ChunkFailed
	} else {
		chunk.State = ChunkClosed
	}

	r.m.ChunksRotated.Inc()
	r.m.ChunkDuration.Observe(chunk.Duration.Seconds())
	r.m.SamplesWritten.Add(float64(chunk.DataBytes / 2))

	r.chunks = append(r.chunks, chunk)

	r.logger.Info("Chunk closed",
		slog.Uint64("sequence", chunk.Sequence),
		slog.Duration("duration", chunk.Duration),
		slog.Uint64("data_bytes", uint64(chunk.DataBytes)),
		slog.String("state", chunk.State.String()),
	)

	r.submitter.Submit(chunk)
}
