// Package align implements dominant-speaker alignment: each transcript
// segment is assigned the speaker label whose turns overlap it for the
// greatest accumulated duration.
package align

import (
	"fmt"

	"github.com/voicelab/diarize-api/internal/types"
)

// Align merges ASR segments and diarization turns into speaker-labeled
// segments. Segment boundaries and text are passed through untouched; only
// the speaker label is attached. A segment no turn overlaps gets the
// UNKNOWN sentinel.
//
// Ties on accumulated overlap are broken in favor of the speaker first
// encountered in turn order, so the result is deterministic for identical
// inputs. Turns may arrive out of temporal order; every turn is considered
// for every segment, O(S*T).
func Align(segments []types.TranscriptSegment, turns []types.SpeakerTurn) ([]types.AlignedSegment, error) {
	for _, seg := range segments {
		if seg.End < seg.Start {
			return nil, fmt.Errorf("align: segment [%f, %f] has negative duration", seg.Start, seg.End)
		}
	}
	for _, turn := range turns {
		if turn.End < turn.Start {
			return nil, fmt.Errorf("align: turn [%f, %f] for %q has negative duration", turn.Start, turn.End, turn.Speaker)
		}
	}

	aligned := make([]types.AlignedSegment, 0, len(segments))
	for _, seg := range segments {
		aligned = append(aligned, types.AlignedSegment{
			Start:   seg.Start,
			End:     seg.End,
			Text:    seg.Text,
			Speaker: dominantSpeaker(seg, turns),
		})
	}
	return aligned, nil
}

// dominantSpeaker accumulates overlap duration per speaker across all turns
// and returns the label with the largest total. A speaker owning several
// disjoint turns inside the segment wins on the sum, even if no single turn
// of theirs is the longest.
func dominantSpeaker(seg types.TranscriptSegment, turns []types.SpeakerTurn) string {
	overlaps := make(map[string]float64)
	var order []string // first-encounter order, used for the tie-break

	for _, turn := range turns {
		start := max(seg.Start, turn.Start)
		end := min(seg.End, turn.End)
		if end <= start {
			continue
		}
		if _, seen := overlaps[turn.Speaker]; !seen {
			order = append(order, turn.Speaker)
		}
		overlaps[turn.Speaker] += end - start
	}

	if len(order) == 0 {
		return types.SpeakerUnknown
	}

	best := order[0]
	for _, speaker := range order[1:] {
		if overlaps[speaker] > overlaps[best] {
			best = speaker
		}
	}
	return best
}
