package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/BrianVia/transcriptor/internal/record"
)

// ErrMergeFailed marks a failed recording merge. The session treats it as
// non-fatal: the individual chunk files remain on disk.
var ErrMergeFailed = errors.New("recording merge failed")

// MergeChunks concatenates the chunk files into a single recording.wav in
// outputDir using ffmpeg's concat demuxer. Chunks marked failed are skipped.
func MergeChunks(ctx context.Context, outputDir string, chunks []*record.Chunk) (string, error) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("%w: ffmpeg not found in PATH", ErrMergeFailed)
	}

	var usable []*record.Chunk
	for _, c := range chunks {
		if c.State != record.ChunkFailed {
			usable = append(usable, c)
		}
	}
	if len(usable) == 0 {
		return "", fmt.Errorf("%w: no usable chunks", ErrMergeFailed)
	}

	listPath := filepath.Join(outputDir, "chunks.txt")
	var list strings.Builder
	for _, c := range usable {
		abs, err := filepath.Abs(c.Path)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMergeFailed, err)
		}
		// Single quotes per the concat demuxer's file list syntax.
		fmt.Fprintf(&list, "file '%s'\n", abs)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMergeFailed, err)
	}
	defer os.Remove(listPath)

	outPath := filepath.Join(outputDir, "recording.wav")
	cmd := exec.CommandContext(ctx, ffmpeg,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%w: %v: %s", ErrMergeFailed, err, strings.TrimSpace(string(out)))
	}

	return outPath, nil
}
