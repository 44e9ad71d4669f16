package media

import (
	"path/filepath"
	"strings"
)

var supportedFormats = []string{
	".mp3", ".wav", ".m4a", ".ogg", ".flac", ".webm", ".aac", ".wma", ".mp4", ".opus",
}

// SupportedFormat checks whether the filename carries a container extension
// the normalization tool accepts. Files without an extension pass: the
// store falls back to a generic audio extension and ffmpeg probes content.
func SupportedFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return true
	}
	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}
