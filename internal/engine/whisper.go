// Package engine wraps the two inference engines behind adapters that
// materialize their output into finite, ordered slices. Both engines shell
// out per call, so a single adapter handle is safe to share across
// concurrent requests.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/voicelab/diarize-api/internal/types"
)

// TranscriptionError reports a failed ASR invocation. Output carries the
// engine's combined stdout/stderr.
type TranscriptionError struct {
	Err    error
	Output []byte
}

func (e *TranscriptionError) Error() string {
	if len(e.Output) == 0 {
		return fmt.Sprintf("transcription failed: %v", e.Err)
	}
	return fmt.Sprintf("transcription failed: %v\nOutput: %s", e.Err, e.Output)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// WhisperTranscriber runs OpenAI Whisper through `python -m whisper` and
// parses its JSON output. Constructed once at startup and treated as a
// read-only handle afterwards.
type WhisperTranscriber struct {
	model   string
	python  string
	workDir string
}

// NewWhisperTranscriber creates a transcriber for the given model name
// ("tiny" through "large"). python selects the interpreter, defaulting to
// "python3". workDir holds per-call output directories.
func NewWhisperTranscriber(model, python, workDir string) (*WhisperTranscriber, error) {
	if model == "" {
		model = "medium"
	}
	if python == "" {
		python = "python3"
	}
	if workDir == "" {
		workDir = os.TempDir()
	}
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("create whisper work dir: %w", err)
	}

	log.Printf("Initializing Whisper with model: %s (via %s -m whisper)", model, python)
	return &WhisperTranscriber{
		model:   model,
		python:  python,
		workDir: workDir,
	}, nil
}

// Transcribe runs the ASR engine on a normalized audio file and returns its
// segments fully materialized and ordered by start time. language is an
// optional hint; empty means auto-detect.
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, audioPath, language string) ([]types.TranscriptSegment, error) {
	absAudioPath, err := filepath.Abs(audioPath)
	if err != nil {
		return nil, &TranscriptionError{Err: fmt.Errorf("resolve audio path: %w", err)}
	}

	// Each call gets its own output directory so concurrent requests never
	// collide on the JSON file whisper writes.
	outDir := filepath.Join(wt.workDir, "whisper_"+uuid.New().String())
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, &TranscriptionError{Err: fmt.Errorf("create output dir: %w", err)}
	}
	defer os.RemoveAll(outDir)

	args := []string{
		"-m", "whisper",
		absAudioPath,
		"--model", wt.model,
		"--output_dir", outDir,
		"--output_format", "json",
		"--fp16", "False", // CPU compatibility
	}
	if language != "" {
		args = append(args, "--language", language)
	}

	cmd := exec.CommandContext(ctx, wt.python, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &TranscriptionError{Err: err, Output: output}
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonData, err := os.ReadFile(filepath.Join(outDir, baseName+".json"))
	if err != nil {
		return nil, &TranscriptionError{Err: fmt.Errorf("read whisper output: %w", err), Output: output}
	}

	segments, err := parseWhisperOutput(jsonData)
	if err != nil {
		return nil, &TranscriptionError{Err: err, Output: output}
	}

	log.Printf("Transcription completed: %d segments", len(segments))
	return segments, nil
}

// parseWhisperOutput converts whisper's JSON document into ordered transcript
// segments with trimmed text.
func parseWhisperOutput(data []byte) ([]types.TranscriptSegment, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse whisper JSON: %w", err)
	}

	segments := make([]types.TranscriptSegment, len(out.Segments))
	for i, seg := range out.Segments {
		segments[i] = types.TranscriptSegment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		}
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
	return segments, nil
}

// whisperOutput matches Whisper's JSON output format.
type whisperOutput struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []whisperSegment `json:"segments"`
}

type whisperSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}
