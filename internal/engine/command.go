package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/BrianVia/transcriptor/internal/config"
)

// CommandEngine runs an external transcription binary once per chunk and
// reads the transcript text from its stdout. The default arguments follow
// the whisper.cpp CLI convention: -m <model> -l <language> <file>.
type CommandEngine struct {
	command   string
	modelPath string
	args      []string
	language  string
	timeout   time.Duration
}

// NewCommandEngine resolves the binary and model up front so a
// misconfiguration fails the session start rather than every chunk.
func NewCommandEngine(cfg config.EngineConfig) (*CommandEngine, error) {
	path, err := exec.LookPath(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("transcription command '%s' not found: %w", cfg.Command, err)
	}

	if cfg.ModelPath != "" {
		if _, err := os.Stat(cfg.ModelPath); err != nil {
			return nil, fmt.Errorf("transcription model not found at %s: %w", cfg.ModelPath, err)
		}
	}

	return &CommandEngine{
		command:   path,
		modelPath: cfg.ModelPath,
		args:      append([]string(nil), cfg.Args...),
		language:  cfg.Language,
		timeout:   cfg.GetTimeoutDuration(),
	}, nil
}

// Transcribe runs the configured command against one chunk file
func (e *CommandEngine) Transcribe(ctx context.Context, wavPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	argv := append([]string(nil), e.args...)
	if e.modelPath != "" {
		argv = append(argv, "-m", e.modelPath)
	}
	if e.language != "" {
		argv = append(argv, "-l", e.language)
	}
	argv = append(argv, wavPath)

	cmd := exec.CommandContext(ctx, e.command, argv...)
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return "", fmt.Errorf("transcription command failed: %s", strings.TrimSpace(string(ee.Stderr)))
		}
		return "", fmt.Errorf("transcription command failed: %w", err)
	}

	return strings.TrimSpace(string(out)), nil
}
