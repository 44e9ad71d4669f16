// Package cleanup removes orphaned request artifacts. Live requests always
// release their own temp files; the scrubber only catches leftovers from
// crashed or killed processes.
package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// Scrubber periodically deletes temp files past a maximum age.
type Scrubber struct {
	tempDir  string
	interval time.Duration
	maxAge   time.Duration
	stopChan chan struct{}
}

// NewScrubber creates a scrubber for tempDir. Zero interval or maxAge
// fall back to 30 minutes and 2 hours respectively.
func NewScrubber(tempDir string, interval, maxAge time.Duration) *Scrubber {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if maxAge <= 0 {
		maxAge = 2 * time.Hour
	}
	return &Scrubber{
		tempDir:  tempDir,
		interval: interval,
		maxAge:   maxAge,
		stopChan: make(chan struct{}),
	}
}

// Start runs one sweep immediately, then keeps sweeping on the interval
// until Stop is called.
func (s *Scrubber) Start() {
	s.sweep()

	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Temp scrubber started (interval: %s, max age: %s)", s.interval, s.maxAge)
}

// Stop halts the periodic sweeps.
func (s *Scrubber) Stop() {
	close(s.stopChan)
}

// sweep removes files in tempDir older than maxAge.
func (s *Scrubber) sweep() {
	now := time.Now()
	var deleted int

	err := filepath.Walk(s.tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if now.Sub(info.ModTime()) > s.maxAge {
			if err := os.Remove(path); err != nil {
				log.Printf("Failed to delete orphaned file %s: %v", path, err)
			} else {
				deleted++
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("Error during temp sweep: %v", err)
	}
	if deleted > 0 {
		log.Printf("Temp sweep removed %d orphaned files", deleted)
	}
}
