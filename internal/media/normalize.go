package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// NormalizationError reports a failed conversion to the canonical waveform.
// Output carries the tool's combined stdout/stderr for diagnostics; it is
// never parsed for control flow.
type NormalizationError struct {
	Err    error
	Output []byte
}

func (e *NormalizationError) Error() string {
	if len(e.Output) == 0 {
		return fmt.Sprintf("audio normalization failed: %v", e.Err)
	}
	return fmt.Sprintf("audio normalization failed: %v\nOutput: %s", e.Err, e.Output)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// Normalizer converts arbitrary-format audio into 16kHz mono PCM WAV by
// invoking an external tool, ffmpeg by default.
type Normalizer struct {
	binary string
}

// NewNormalizer creates a normalizer running the given binary. An empty
// binary selects ffmpeg.
func NewNormalizer(binary string) *Normalizer {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Normalizer{binary: binary}
}

// Normalize converts the file at inputPath into a new 16kHz mono WAV next
// to it and returns the new path. A non-zero exit is a *NormalizationError,
// and so is a missing output file on a zero exit — some builds exit 0 while
// silently producing nothing.
func (n *Normalizer) Normalize(ctx context.Context, inputPath string) (string, error) {
	outputPath := inputPath + ".converted.wav"

	cmd := exec.CommandContext(ctx, n.binary,
		"-i", inputPath,
		"-ar", "16000", // 16kHz sample rate
		"-ac", "1", // mono
		"-c:a", "pcm_s16le", // 16-bit PCM
		"-y", // overwrite output
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		// An interrupted encode may have written a partial output file;
		// the caller never sees its path, so remove it here.
		os.Remove(outputPath)
		return "", &NormalizationError{Err: err, Output: output}
	}
	if _, err := os.Stat(outputPath); err != nil {
		return "", &NormalizationError{
			Err:    fmt.Errorf("no output file produced: %w", err),
			Output: output,
		}
	}
	return outputPath, nil
}
