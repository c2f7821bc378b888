package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Record is the persisted state of the active session. A separate process
// (the stop or status command) reads it to find the running recording.
type Record struct {
	Recording   bool      `json:"recording"`
	MeetingName string    `json:"meeting_name,omitempty"`
	StartTime   time.Time `json:"start_time,omitempty"`
	OutputDir   string    `json:"output_dir,omitempty"`
	PID         int       `json:"pid,omitempty"`
}

// Store reads and writes the state record under a fixed state directory
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating the directory if needed
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &Store{dir: dir}, nil
}

// Dir returns the state directory path
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path() string {
	return filepath.Join(s.dir, "state.json")
}

// Read returns the current state record. A missing file reads as an empty
// record, never an error.
func (s *Store) Read() (Record, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, nil
		}
		return Record{}, fmt.Errorf("failed to read state record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to parse state record: %w", err)
	}

	return rec, nil
}

// Write replaces the state record atomically: a reader sees either the old
// record or the new one, never a partial write.
func (s *Store) Write(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state record: %w", err)
	}

	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write state record: %w", err)
	}

	if err := os.Rename(tmp, s.path()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace state record: %w", err)
	}

	return nil
}

// Clear removes the state record
func (s *Store) Clear() error {
	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear state record: %w", err)
	}
	return nil
}
