// Package pipeline sequences one transcription request end to end:
// acquire upload, normalize audio, transcribe, diarize when possible, and
// align the two engine outputs into speaker-labeled segments.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/voicelab/diarize-api/internal/align"
	"github.com/voicelab/diarize-api/internal/media"
	"github.com/voicelab/diarize-api/internal/types"
)

// Transcriber is the ASR engine boundary. Implementations materialize the
// engine's output into a finite slice ordered by start time.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) ([]types.TranscriptSegment, error)
}

// Diarizer is the diarization engine boundary. Available reports whether
// the engine initialized at startup; an unavailable diarizer is a
// first-class degraded mode, not an error.
type Diarizer interface {
	Available() bool
	Diarize(ctx context.Context, audioPath string, hints types.DiarizationHints) ([]types.SpeakerTurn, error)
}

// Normalizer converts an uploaded file into the canonical waveform.
type Normalizer interface {
	Normalize(ctx context.Context, inputPath string) (string, error)
}

// Pipeline holds the per-process collaborators. Engines are read-only
// handles shared by all requests; per-request state lives entirely on the
// stack of Process.
type Pipeline struct {
	store       *media.Store
	normalizer  Normalizer
	transcriber Transcriber
	diarizer    Diarizer
	language    string
}

// New assembles a pipeline. language is an optional hint forwarded to every
// transcription call; empty means auto-detect.
func New(store *media.Store, normalizer Normalizer, transcriber Transcriber, diarizer Diarizer, language string) *Pipeline {
	return &Pipeline{
		store:       store,
		normalizer:  normalizer,
		transcriber: transcriber,
		diarizer:    diarizer,
		language:    language,
	}
}

// DiarizerAvailable reports whether the diarization engine initialized.
func (p *Pipeline) DiarizerAvailable() bool {
	return p.diarizer != nil && p.diarizer.Available()
}

// Process runs one request through the pipeline and returns the aligned
// segments in ASR emission order. Both temp artifacts are removed before
// Process returns, on every path. Normalization failures come back as
// *InputError; everything else is a server fault. No stage is retried.
func (p *Pipeline) Process(ctx context.Context, upload io.Reader, filename string, hints types.DiarizationHints) ([]types.AlignedSegment, error) {
	rawPath, err := p.store.Acquire(upload, filename)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	var wavPath string
	defer func() {
		p.store.Release(rawPath, wavPath)
	}()

	wavPath, err = p.normalizer.Normalize(ctx, rawPath)
	if err != nil {
		return nil, &InputError{Err: err}
	}

	log.Printf("Processing %s...", wavPath)

	segments, err := p.transcriber.Transcribe(ctx, wavPath, p.language)
	if err != nil {
		return nil, err
	}

	if !p.DiarizerAvailable() {
		// Degraded mode: no speaker attribution at all, alignment bypassed.
		return labelAll(segments, types.SpeakerNone), nil
	}

	turns, err := p.diarizer.Diarize(ctx, wavPath, hints)
	if err != nil {
		return nil, err
	}

	aligned, err := align.Align(segments, turns)
	if err != nil {
		return nil, err
	}
	return aligned, nil
}

// labelAll attaches the same speaker label to every segment.
func labelAll(segments []types.TranscriptSegment, speaker string) []types.AlignedSegment {
	aligned := make([]types.AlignedSegment, len(segments))
	for i, seg := range segments {
		aligned[i] = types.AlignedSegment{
			Start:   seg.Start,
			End:     seg.End,
			Text:    seg.Text,
			Speaker: speaker,
		}
	}
	return aligned
}
