package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	// No file yet reads as an empty record.
	rec, err := store.Read()
	if err != nil {
		t.Fatalf("failed to read empty store: %v", err)
	}
	if rec.Recording {
		t.Error("empty store must not report an active recording")
	}

	want := Record{
		Recording:   true,
		MeetingName: "standup",
		StartTime:   time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		OutputDir:   "/tmp/meetings/standup",
		PID:         12345,
	}
	if err := store.Write(want); err != nil {
		t.Fatalf("failed to write record: %v", err)
	}

	got, err := store.Read()
	if err != nil {
		t.Fatalf("failed to read record: %v", err)
	}
	if got != want {
		t.Errorf("record mismatch: wrote %+v, read %+v", want, got)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("failed to clear store: %v", err)
	}
	rec, err = store.Read()
	if err != nil {
		t.Fatalf("failed to read after clear: %v", err)
	}
	if rec.Recording {
		t.Error("cleared store must not report an active recording")
	}

	// Clearing twice is not an error.
	if err := store.Clear(); err != nil {
		t.Errorf("second clear failed: %v", err)
	}
}

func TestStoreRejectsCorruptRecord(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "state.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to plant corrupt record: %v", err)
	}

	if _, err := store.Read(); err == nil {
		t.Error("expected error reading corrupt record")
	}
}

func TestStoreWriteLeavesNoTempFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := store.Write(Record{Recording: true}); err != nil {
		t.Fatalf("failed to write record: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to list state dir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "state.json" {
			t.Errorf("unexpected file left in state dir: %s", e.Name())
		}
	}
}

func TestFileStopSignal(t *testing.T) {
	dir := t.TempDir()
	signal := NewFileStopSignal(dir)

	raised, err := signal.Poll()
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if raised {
		t.Error("signal raised before any request")
	}

	if err := signal.Request(); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	raised, err = signal.Poll()
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if !raised {
		t.Error("signal not raised after request")
	}

	if err := signal.Consume(); err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	raised, err = signal.Poll()
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if raised {
		t.Error("signal still raised after consume")
	}

	// Consuming an unraised signal is not an error.
	if err := signal.Consume(); err != nil {
		t.Errorf("consume of unraised signal failed: %v", err)
	}

	// Requesting twice just keeps the marker in place.
	if err := signal.Request(); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if err := signal.Request(); err != nil {
		t.Fatalf("second request failed: %v", err)
	}
}
