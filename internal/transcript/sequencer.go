package transcript

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/BrianVia/transcriptor/internal/engine"
	"github.com/BrianVia/transcriptor/internal/metrics"
	"github.com/BrianVia/transcriptor/internal/record"
)

// errStalled marks a head-of-line job abandoned after the stall timeout
var errStalled = errors.New("transcription job stalled past the timeout")

// SequencerConfig contains ordering configuration
type SequencerConfig struct {
	// StallTimeout bounds how long later chunks may wait on one stuck
	// head-of-line job before it is abandoned with an empty contribution.
	StallTimeout time.Duration
}

// result is one resolved transcription held in the reordering buffer
type result struct {
	offset time.Duration
	text   string
	err    error
}

// Sequencer dispatches one asynchronous transcription job per closed chunk
// and appends results to the document in strictly increasing sequence order,
// whatever order the jobs complete in. An engine failure consumes its slot
// with an empty contribution so later chunks are never blocked.
type Sequencer struct {
	logger *slog.Logger
	m      *metrics.Metrics
	eng    engine.Engine
	doc    *Document
	stall  time.Duration

	mu        sync.Mutex
	cond      *sync.Cond
	next      uint64             // next sequence to append
	last      uint64             // highest submitted sequence
	pending   map[uint64]*result // completed but not yet appended
	abandoned map[uint64]bool    // sequences force-resolved by the watchdog
	headSince time.Time          // when the current head sequence became due

	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// NewSequencer creates a sequencer appending to doc and starts its stall
// watchdog. Call Close after Drain.
func NewSequencer(logger *slog.Logger, m *metrics.Metrics, eng engine.Engine, doc *Document, cfg SequencerConfig) *Sequencer {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Sequencer{
		logger:      logger,
		m:           m,
		eng:         eng,
		doc:         doc,
		stall:       cfg.StallTimeout,
		next:        1,
		pending:     make(map[uint64]*result),
		abandoned:   make(map[uint64]bool),
		watchCancel: cancel,
		watchDone:   make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	go s.watchdog(ctx)

	return s
}

// Submit enqueues a transcription job for a closed chunk. Engine errors are
// logged and recorded as empty contributions, never returned to the caller.
// A chunk already marked failed (sink error during close) skips the engine
// and resolves immediately so it cannot block the ordering buffer.
func (s *Sequencer) Submit(c *record.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Sequence != s.last+1 {
		s.logger.Warn("Chunk submitted out of sequence",
			slog.Uint64("sequence", c.Sequence),
			slog.Uint64("expected", s.last+1),
		)
	}
	if c.Sequence > s.last {
		s.last = c.Sequence
	}
	if s.next <= s.last && s.headSince.IsZero() {
		s.headSince = time.Now()
	}
	s.m.SequencerPending.Set(float64(s.pendingCountLocked()))

	if c.State == record.ChunkFailed {
		s.pending[c.Sequence] = &result{offset: c.Offset, err: errors.New("chunk file incomplete")}
		s.flushLocked()
		return
	}

	c.State = record.ChunkTranscribing
	s.m.TranscriptionsInFlight.Inc()

	go s.run(c)
}

// run executes one transcription job and feeds the result into the buffer
func (s *Sequencer) run(c *record.Chunk) {
	start := time.Now()
	text, err := s.eng.Transcribe(context.Background(), c.Path)
	elapsed := time.Since(start)

	s.m.TranscriptionsInFlight.Dec()
	s.m.TranscriptionDuration.Observe(elapsed.Seconds())
	if err != nil {
		s.m.TranscriptionFailures.Inc()
	} else {
		s.m.TranscriptionSuccesses.Inc()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.abandoned[c.Sequence] {
		delete(s.abandoned, c.Sequence)
		s.logger.Warn("Dropping late result for abandoned chunk",
			slog.Uint64("sequence", c.Sequence),
			slog.Duration("elapsed", elapsed),
		)
		return
	}

	if err != nil {
		c.State = record.ChunkFailed
	} else {
		c.State = record.ChunkTranscribed
	}

	s.pending[c.Sequence] = &result{offset: c.Offset, text: text, err: err}
	s.flushLocked()
}

// flushLocked appends every consecutive resolved sequence starting at next.
// Failed results consume their slot without a record, leaving a visible gap
// in the transcript rather than blocking or reordering it. Callers hold s.mu.
func (s *Sequencer) flushLocked() {
	for {
		r, ok := s.pending[s.next]
		if !ok {
			break
		}
		delete(s.pending, s.next)

		switch {
		case r.err != nil:
			s.logger.Error("Chunk left a gap in the transcript",
				slog.Uint64("sequence", s.next),
				slog.String("error", r.err.Error()),
			)
		case r.text == "":
			s.logger.Info("Chunk transcribed empty, skipping record",
				slog.Uint64("sequence", s.next),
			)
		default:
			if err := s.doc.Append(Record{Sequence: s.next, Offset: r.offset, Text: r.text}); err != nil {
				s.logger.Error("Failed to append transcript record",
					slog.Uint64("sequence", s.next),
					slog.String("error", err.Error()),
				)
			}
		}

		s.next++
		if s.next <= s.last {
			s.headSince = time.Now()
		} else {
			s.headSince = time.Time{}
		}
	}

	s.m.SequencerPending.Set(float64(s.pendingCountLocked()))
	s.cond.Broadcast()
}

func (s *Sequencer) pendingCountLocked() uint64 {
	if s.next > s.last {
		return 0
	}
	return s.last - s.next + 1
}

// watchdog abandons a head-of-line job that has stalled past the timeout so
// a single stuck engine invocation cannot hold up the whole transcript.
func (s *Sequencer) watchdog(ctx context.Context) {
	defer close(s.watchDone)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.next <= s.last && s.pending[s.next] == nil &&
				!s.headSince.IsZero() && time.Since(s.headSince) > s.stall {
				s.logger.Error("Abandoning stalled transcription job",
					slog.Uint64("sequence", s.next),
					slog.Duration("stalled", time.Since(s.headSince)),
				)
				s.m.SequencerStalls.Inc()
				s.abandoned[s.next] = true
				s.pending[s.next] = &result{err: errStalled}
				s.flushLocked()
			}
			s.mu.Unlock()
		}
	}
}

// Drain blocks until every submitted sequence has been appended (or
// abandoned). The stall watchdog bounds how long this can take.
func (s *Sequencer) Drain(ctx context.Context) error {
	// Wake the waiter when the context expires.
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	for s.next <= s.last {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.cond.Wait()
	}

	return nil
}

// Close stops the stall watchdog
func (s *Sequencer) Close() {
	s.watchCancel()
	<-s.watchDone
}

// Pending returns the number of submitted sequences not yet appended
func (s *Sequencer) Pending() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingCountLocked()
}
