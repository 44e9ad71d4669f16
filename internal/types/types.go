package types

// Sentinel speaker labels. SpeakerUnknown marks a segment no diarization
// turn overlapped; SpeakerNone marks a whole response produced while the
// diarization engine was unavailable.
const (
	SpeakerUnknown = "UNKNOWN"
	SpeakerNone    = "N/A"
)

// TranscriptSegment is a timestamped unit of transcript text emitted by the
// ASR engine, ordered by Start. End is always >= Start.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// SpeakerTurn is a time span the diarization engine attributed to one
// speaker. Labels are opaque engine-assigned identifiers (e.g. "SPEAKER_00")
// with no stability across requests.
type SpeakerTurn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// AlignedSegment is a TranscriptSegment annotated with exactly one speaker
// label. Start, End and Text are identical to the segment it was derived
// from; Speaker is never empty (sentinels cover the degraded cases).
type AlignedSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker"`
}

// DiarizationHints carries optional caller-supplied speaker-count bounds.
// A zero field means "not provided" and is not forwarded to the engine.
type DiarizationHints struct {
	MinSpeakers int
	MaxSpeakers int
}

// Valid reports whether the hint combination is acceptable: bounds are
// optional, but when present MinSpeakers must be >= 1 and MaxSpeakers must
// not undercut MinSpeakers.
func (h DiarizationHints) Valid() bool {
	if h.MinSpeakers < 0 || h.MaxSpeakers < 0 {
		return false
	}
	if h.MinSpeakers > 0 && h.MaxSpeakers > 0 && h.MaxSpeakers < h.MinSpeakers {
		return false
	}
	return true
}
