package session

import (
	"fmt"
	"os"
	"path/filepath"
)

// StopSignal carries a stop request from another process to the recorder.
// The recorder polls it while a session is active.
type StopSignal interface {
	// Request raises the signal
	Request() error
	// Poll reports whether the signal is raised
	Poll() (bool, error)
	// Consume clears a raised signal
	Consume() error
}

// FileStopSignal signals stop through a marker file in the state directory.
// The stop command creates the file; the recorder notices it on its next
// poll, consumes it, and begins shutdown.
type FileStopSignal struct {
	path string
}

// NewFileStopSignal creates a stop signal under the given state directory
func NewFileStopSignal(stateDir string) *FileStopSignal {
	return &FileStopSignal{
		path: filepath.Join(stateDir, "stop.requested"),
	}
}

// Request creates the stop marker
func (f *FileStopSignal) Request() error {
	if err := os.WriteFile(f.path, nil, 0644); err != nil {
		return fmt.Errorf("failed to create stop marker: %w", err)
	}
	return nil
}

// Poll reports whether the stop marker exists
func (f *FileStopSignal) Poll() (bool, error) {
	_, err := os.Stat(f.path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check stop marker: %w", err)
}

// Consume removes the stop marker so a stale request cannot stop the next
// session.
func (f *FileStopSignal) Consume() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stop marker: %w", err)
	}
	return nil
}
