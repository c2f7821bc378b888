package transcript

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Record is one transcribed span of the recording
type Record struct {
	Sequence uint64
	Offset   time.Duration // from session start
	Text     string
}

// Document is the transcript for one session: a metadata header followed by
// ordered [offset] text records. Records are appended incrementally so a
// crash loses at most the unfinalized header fields; Finalize rewrites the
// whole file with end time and duration filled in.
//
// Single writer: only the sequencer's drain step appends.
type Document struct {
	path      string
	title     string
	startTime time.Time

	mu        sync.Mutex
	records   []Record
	endTime   time.Time
	finalized bool
}

// NewDocument creates the transcript file with its header block
func NewDocument(path, title string, start time.Time) (*Document, error) {
	d := &Document{
		path:      path,
		title:     title,
		startTime: start,
	}

	if err := os.WriteFile(path, []byte(d.render()), 0o644); err != nil {
		return nil, fmt.Errorf("failed to create transcript: %w", err)
	}

	return d, nil
}

// Append adds one record to the end of the document. Callers must append in
// strictly increasing sequence order; the sequencer guarantees this.
func (d *Document) Append(rec Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.finalized {
		return fmt.Errorf("transcript already finalized")
	}

	if n := len(d.records); n > 0 && rec.Sequence <= d.records[n-1].Sequence {
		return fmt.Errorf("out-of-order append: sequence %d after %d", rec.Sequence, d.records[n-1].Sequence)
	}

	d.records = append(d.records, rec)

	f, err := os.OpenFile(d.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open transcript: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "[%s] %s\n\n", formatOffset(rec.Offset), strings.TrimSpace(rec.Text)); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}

	return nil
}

// Finalize fills in end time and duration and rewrites the document
func (d *Document) Finalize(end time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.finalized {
		return fmt.Errorf("transcript already finalized")
	}

	d.endTime = end
	d.finalized = true

	if err := os.WriteFile(d.path, []byte(d.render()), 0o644); err != nil {
		return fmt.Errorf("failed to rewrite transcript: %w", err)
	}

	return nil
}

// Path returns the transcript file path
func (d *Document) Path() string {
	return d.path
}

// Records returns a snapshot of the appended records
func (d *Document) Records() []Record {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Record, len(d.records))
	copy(out, d.records)
	return out
}

// render builds the complete document text. Callers hold d.mu.
func (d *Document) render() string {
	var b strings.Builder

	title := d.title
	if title == "" {
		title = "Meeting Transcript"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	fmt.Fprintf(&b, "- Date: %s\n", d.startTime.Format("2006-01-02"))
	fmt.Fprintf(&b, "- Started: %s\n", d.startTime.Format("15:04:05"))
	if d.finalized {
		fmt.Fprintf(&b, "- Ended: %s\n", d.endTime.Format("15:04:05"))
		fmt.Fprintf(&b, "- Duration: %s\n", d.endTime.Sub(d.startTime).Truncate(time.Second))
	}
	b.WriteString("\n---\n\n")

	for _, rec := range d.records {
		fmt.Fprintf(&b, "[%s] %s\n\n", formatOffset(rec.Offset), strings.TrimSpace(rec.Text))
	}

	return b.String()
}

// formatOffset renders an offset as MM:SS, or HH:MM:SS past one hour
func formatOffset(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
