package engine

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/voicelab/diarize-api/internal/types"
)

//go:embed assets/diarize.py
var diarizeScript []byte

// ErrDiarizerUnavailable is returned when diarization was never initialized
// for this process (no model hub token at startup). It is a degraded mode,
// not a transient failure, and callers are expected to fall back to
// unlabeled output.
var ErrDiarizerUnavailable = errors.New("diarization engine unavailable")

// DiarizationError reports a failed diarization invocation, as opposed to
// the engine being unavailable altogether.
type DiarizationError struct {
	Err    error
	Output []byte
}

func (e *DiarizationError) Error() string {
	if len(e.Output) == 0 {
		return fmt.Sprintf("diarization failed: %v", e.Err)
	}
	return fmt.Sprintf("diarization failed: %v\nOutput: %s", e.Err, e.Output)
}

func (e *DiarizationError) Unwrap() error { return e.Err }

// PyannoteDiarizer runs pyannote speaker diarization through an embedded
// python helper script. The script authenticates against the model hub with
// the token supplied at construction; without a token the diarizer is a
// permanent no-op reporting unavailable.
type PyannoteDiarizer struct {
	token      string
	python     string
	workDir    string
	scriptPath string
}

// NewPyannoteDiarizer creates a diarizer. An empty token yields a handle
// that reports unavailable rather than an error: the service runs degraded
// instead of refusing to start. python defaults to "python3"; workDir holds
// the materialized helper script.
func NewPyannoteDiarizer(token, python, workDir string) (*PyannoteDiarizer, error) {
	if python == "" {
		python = "python3"
	}
	if workDir == "" {
		workDir = os.TempDir()
	}

	d := &PyannoteDiarizer{token: token, python: python, workDir: workDir}
	if token == "" {
		log.Println("HF_TOKEN not found. Diarization will be disabled.")
		return d, nil
	}

	d.scriptPath = filepath.Join(workDir, "pyannote_diarize.py")
	if err := d.ensureScript(); err != nil {
		return nil, err
	}

	log.Println("Pyannote diarization enabled")
	return d, nil
}

// ensureScript materializes the embedded helper script, restoring it if
// something removed it from disk. The engine handle must stay usable for
// the whole process lifetime.
func (d *PyannoteDiarizer) ensureScript() error {
	if _, err := os.Stat(d.scriptPath); err == nil {
		return nil
	}
	if err := os.MkdirAll(d.workDir, 0755); err != nil {
		return fmt.Errorf("create diarizer work dir: %w", err)
	}
	if err := os.WriteFile(d.scriptPath, diarizeScript, 0755); err != nil {
		return fmt.Errorf("write diarizer helper script: %w", err)
	}
	return nil
}

// Available reports whether the engine was initialized with a token.
func (d *PyannoteDiarizer) Available() bool {
	return d.token != ""
}

// Diarize runs speaker diarization on a normalized audio file and returns
// the turns fully materialized and ordered by start time. Speaker-count
// hints are forwarded only when set. Calling an unavailable diarizer
// returns ErrDiarizerUnavailable.
func (d *PyannoteDiarizer) Diarize(ctx context.Context, audioPath string, hints types.DiarizationHints) ([]types.SpeakerTurn, error) {
	if !d.Available() {
		return nil, ErrDiarizerUnavailable
	}
	if err := d.ensureScript(); err != nil {
		return nil, &DiarizationError{Err: err}
	}

	args := []string{d.scriptPath, "--audio", audioPath}
	if hints.MinSpeakers > 0 {
		args = append(args, "--min-speakers", strconv.Itoa(hints.MinSpeakers))
	}
	if hints.MaxSpeakers > 0 {
		args = append(args, "--max-speakers", strconv.Itoa(hints.MaxSpeakers))
	}

	cmd := exec.CommandContext(ctx, d.python, args...)
	cmd.Env = append(os.Environ(), "HF_TOKEN="+d.token)

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &DiarizationError{Err: err, Output: exitErr.Stderr}
		}
		return nil, &DiarizationError{Err: err}
	}

	var turns []types.SpeakerTurn
	if err := json.Unmarshal(out, &turns); err != nil {
		return nil, &DiarizationError{Err: fmt.Errorf("parse diarizer output: %w", err)}
	}
	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].Start < turns[j].Start
	})

	log.Printf("Diarization completed: %d turns", len(turns))
	return turns, nil
}
