package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/BrianVia/transcriptor/internal/capture"
	"github.com/BrianVia/transcriptor/internal/config"
	"github.com/BrianVia/transcriptor/internal/engine"
	"github.com/BrianVia/transcriptor/internal/metrics"
	"github.com/BrianVia/transcriptor/internal/record"
	"github.com/BrianVia/transcriptor/internal/transcript"
)

// State represents the session lifecycle phase
type State int

const (
	// StateIdle means no session is active
	StateIdle State = iota
	// StateRecording means audio is being captured and transcribed
	StateRecording
	// StateStopping means shutdown is in progress: remaining chunks are
	// draining through transcription
	StateStopping
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

var (
	// ErrAlreadyRecording is returned when Start is called while a session
	// is active, in this process or another.
	ErrAlreadyRecording = errors.New("a recording session is already active")
	// ErrNotRecording is returned when Stop finds no active session
	ErrNotRecording = errors.New("no recording session is active")
	// ErrMachineUsed is returned when Start is called on a machine whose
	// session has already run. A machine cannot be restarted.
	ErrMachineUsed = errors.New("session machine already used")
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Machine drives a recording session from start through finalization. One
// machine handles one session; the process exits after the session ends.
type Machine struct {
	logger *slog.Logger
	cfg    *config.Config
	m      *metrics.Metrics
	source capture.Source
	eng    engine.Engine
	store  *Store
	signal StopSignal

	mu        sync.Mutex
	state     State
	startTime time.Time
	outputDir string
	rotator   *record.Rotator
	seq       *transcript.Sequencer
	doc       *transcript.Document

	stopOnce    sync.Once
	watchStop   chan struct{}
	watchDone   chan struct{}
	done        chan struct{}
	finalizeErr error
}

// NewMachine creates a session machine. The store's state directory must
// already exist.
func NewMachine(logger *slog.Logger, cfg *config.Config, m *metrics.Metrics,
	source capture.Source, eng engine.Engine, store *Store, signal StopSignal) *Machine {

	return &Machine{
		logger: logger,
		cfg:    cfg,
		m:      m,
		source: source,
		eng:    eng,
		store:  store,
		signal: signal,
		state:  StateIdle,
		done:   make(chan struct{}),
	}
}

// Start begins a recording session for the named meeting. It fails with
// ErrAlreadyRecording if a session is active, including one owned by
// another process according to the state record, and with ErrMachineUsed
// on a machine whose session has already finished.
func (mc *Machine) Start(meetingName string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.state != StateIdle {
		return ErrAlreadyRecording
	}
	if mc.watchStop != nil {
		return ErrMachineUsed
	}

	rec, err := mc.store.Read()
	if err != nil {
		return err
	}
	if rec.Recording {
		return fmt.Errorf("%w (started %s, pid %d)",
			ErrAlreadyRecording, rec.StartTime.Format(time.RFC3339), rec.PID)
	}

	// A leftover stop marker from a previous session must not kill this one.
	if err := mc.signal.Consume(); err != nil {
		return err
	}

	now := time.Now()
	outputDir := filepath.Join(mc.cfg.Output.MeetingsDir,
		fmt.Sprintf("%s_%s", now.Format("2006-01-02_1504"), sanitizeName(meetingName)))
	chunksDir := filepath.Join(outputDir, "chunks")

	if err := os.MkdirAll(chunksDir, 0755); err != nil {
		return fmt.Errorf("failed to create meeting directory: %w", err)
	}

	doc, err := transcript.NewDocument(filepath.Join(outputDir, "transcript.md"), meetingName, now)
	if err != nil {
		return err
	}

	seq := transcript.NewSequencer(mc.logger, mc.m, mc.eng, doc, transcript.SequencerConfig{
		StallTimeout: mc.cfg.Sequencer.GetStallTimeout(),
	})

	rotator := record.NewRotator(mc.logger, mc.m, mc.source, seq,
		chunksDir, mc.cfg.Audio.SampleRate, mc.cfg.Audio.GetChunkDuration())

	if err := rotator.Start(); err != nil {
		seq.Close()
		return err
	}

	if err := mc.store.Write(Record{
		Recording:   true,
		MeetingName: meetingName,
		StartTime:   now,
		OutputDir:   outputDir,
		PID:         os.Getpid(),
	}); err != nil {
		rotator.Stop()
		seq.Close()
		return err
	}

	mc.state = StateRecording
	mc.startTime = now
	mc.outputDir = outputDir
	mc.rotator = rotator
	mc.seq = seq
	mc.doc = doc
	mc.watchStop = make(chan struct{})
	mc.watchDone = make(chan struct{})

	mc.m.SessionsStarted.Inc()

	go mc.watchStopSignal()

	mc.logger.Info("Recording session started",
		slog.String("meeting", meetingName),
		slog.String("output_dir", outputDir),
	)

	return nil
}

// Stop ends the session and blocks until finalization completes. Safe to
// call from multiple goroutines; only the first call runs the shutdown, the
// rest wait for it and return the same result.
func (mc *Machine) Stop() error {
	mc.mu.Lock()
	started := mc.watchStop != nil
	mc.mu.Unlock()
	if !started {
		return ErrNotRecording
	}

	mc.stopOnce.Do(mc.finalize)
	<-mc.done

	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.finalizeErr
}

// Done returns a channel closed when the session has fully finalized
func (mc *Machine) Done() <-chan struct{} {
	return mc.done
}

// Status returns the current state and, while active, the session start
// time and output directory.
func (mc *Machine) Status() (State, time.Time, string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.state, mc.startTime, mc.outputDir
}

// watchStopSignal polls the stop signal until the session ends
func (mc *Machine) watchStopSignal() {
	defer close(mc.watchDone)

	ticker := time.NewTicker(mc.cfg.Session.GetStopPollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-mc.watchStop:
			return
		case <-ticker.C:
			raised, err := mc.signal.Poll()
			if err != nil {
				mc.logger.Warn("Stop signal poll failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			if raised {
				mc.logger.Info("Stop requested")
				if err := mc.signal.Consume(); err != nil {
					mc.logger.Warn("Failed to consume stop signal",
						slog.String("error", err.Error()),
					)
				}
				go mc.stopOnce.Do(mc.finalize)
				return
			}
		}
	}
}

// finalize runs the shutdown sequence exactly once: stop capture, drain
// transcription in order, finalize the document, merge the recording, and
// clear the state record. Runs under stopOnce.
func (mc *Machine) finalize() {
	defer close(mc.done)

	mc.mu.Lock()
	mc.state = StateStopping
	watchStop := mc.watchStop
	rotator, seq, doc := mc.rotator, mc.seq, mc.doc
	outputDir, startTime := mc.outputDir, mc.startTime
	mc.mu.Unlock()

	mc.logger.Info("Finalizing session")

	// The watcher may be the goroutine running finalize; it has already
	// returned in that case and close only prevents a second poll loop.
	close(watchStop)
	<-mc.watchDone

	var firstErr error

	if err := rotator.Stop(); err != nil {
		firstErr = err
		mc.logger.Error("Failed to stop chunk rotation",
			slog.String("error", err.Error()),
		)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(),
		mc.cfg.Engine.GetTimeoutDuration()+mc.cfg.Sequencer.GetStallTimeout())
	defer cancel()

	if err := seq.Drain(drainCtx); err != nil {
		if firstErr == nil {
			firstErr = err
		}
		mc.logger.Error("Transcription drain incomplete",
			slog.Uint64("pending", seq.Pending()),
			slog.String("error", err.Error()),
		)
	}
	seq.Close()

	end := time.Now()
	if err := doc.Finalize(end); err != nil {
		if firstErr == nil {
			firstErr = err
		}
		mc.logger.Error("Failed to finalize transcript",
			slog.String("error", err.Error()),
		)
	}

	mergeCtx, mergeCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer mergeCancel()

	if path, err := MergeChunks(mergeCtx, outputDir, rotator.Chunks()); err != nil {
		// Non-fatal: the chunk files remain usable on their own.
		mc.logger.Warn("Recording merge skipped",
			slog.String("error", err.Error()),
		)
	} else {
		mc.logger.Info("Recording merged", slog.String("path", path))
	}

	if err := mc.store.Clear(); err != nil {
		if firstErr == nil {
			firstErr = err
		}
		mc.logger.Error("Failed to clear session state",
			slog.String("error", err.Error()),
		)
	}

	mc.m.SessionDuration.Observe(end.Sub(startTime).Seconds())

	mc.mu.Lock()
	mc.state = StateIdle
	mc.finalizeErr = firstErr
	mc.mu.Unlock()

	mc.logger.Info("Session finalized",
		slog.Duration("duration", end.Sub(startTime)),
	)
}

// sanitizeName reduces a meeting name to a filesystem-safe slug
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = unsafeNameChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	if name == "" {
		return "meeting"
	}
	return name
}
