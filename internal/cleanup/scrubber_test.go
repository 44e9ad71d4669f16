package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSweep(t *testing.T) {
	dir := t.TempDir()

	oldPath := filepath.Join(dir, "orphaned.wav")
	if err := os.WriteFile(oldPath, []byte("x"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	stale := time.Now().Add(-3 * time.Hour)
	if err := os.Chtimes(oldPath, stale, stale); err != nil {
		t.Fatalf("backdate file: %v", err)
	}

	freshPath := filepath.Join(dir, "in-flight.wav")
	if err := os.WriteFile(freshPath, []byte("x"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	s := NewScrubber(dir, time.Minute, 2*time.Hour)
	s.sweep()

	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Error("stale file survived the sweep")
	}
	if _, err := os.Stat(freshPath); err != nil {
		t.Error("fresh file was removed by the sweep")
	}
}
