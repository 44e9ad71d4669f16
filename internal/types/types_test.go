package types

import "testing"

func TestDiarizationHintsValid(t *testing.T) {
	tests := []struct {
		name  string
		hints DiarizationHints
		want  bool
	}{
		{"empty", DiarizationHints{}, true},
		{"min only", DiarizationHints{MinSpeakers: 2}, true},
		{"max only", DiarizationHints{MaxSpeakers: 4}, true},
		{"min and max", DiarizationHints{MinSpeakers: 2, MaxSpeakers: 4}, true},
		{"equal bounds", DiarizationHints{MinSpeakers: 3, MaxSpeakers: 3}, true},
		{"max below min", DiarizationHints{MinSpeakers: 3, MaxSpeakers: 2}, false},
		{"negative min", DiarizationHints{MinSpeakers: -1}, false},
		{"negative max", DiarizationHints{MaxSpeakers: -1}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.hints.Valid(); got != tc.want {
				t.Errorf("Valid(%+v) = %v, want %v", tc.hints, got, tc.want)
			}
		})
	}
}
