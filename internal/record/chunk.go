package record

import (
	"time"
)

// ChunkState represents the lifecycle state of a chunk
type ChunkState int

const (
	ChunkRecording    ChunkState = iota // actively receiving frames
	ChunkClosed                         // capture stopped, file complete
	ChunkTranscribing                   // transcription job dispatched
	ChunkTranscribed                    // text available
	ChunkFailed                         // sink or engine error, text omitted
)

// String returns a human-readable state name
func (s ChunkState) String() string {
	switch s {
	case ChunkRecording:
		return "recording"
	case ChunkClosed:
		return "closed"
	case ChunkTranscribing:
		return "transcribing"
	case ChunkTranscribed:
		return "transcribed"
	case ChunkFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Chunk is one fixed-duration slice of the recording, backed by a WAV file
// on disk. Sequence numbers are 1-based and strictly increasing; exactly one
// chunk is recording at any time during an active session.
//
// Ownership: the rotator owns a chunk while recording; after Close it is
// handed to the sequencer, which owns it through transcription.
type Chunk struct {
	Sequence  uint64
	Path      string
	Offset    time.Duration // from session start
	StartTime time.Time
	Duration  time.Duration
	DataBytes uint32
	State     ChunkState
}
