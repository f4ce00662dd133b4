// Package audio persists generated audio to the local filesystem.
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// File and directory permissions.
const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

const (
	maxLabelRunes      = 32
	timestampLayout    = "20060102_150405"
	uniqueSuffixLength = 8
)

// Static errors.
var (
	ErrOutputDirEmpty = errors.New("output directory cannot be empty")
	ErrFileNameEmpty  = errors.New("file name cannot be empty")
	ErrNoAudioData    = errors.New("no audio data to write")
)

// Sink writes audio files into one directory.
type Sink struct {
	dir string
}

// NewSink returns a sink rooted at dir. The directory is created lazily.
func NewSink(dir string) (*Sink, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, ErrOutputDirEmpty
	}

	return &Sink{dir: dir}, nil
}

// Dir returns the sink's root directory.
func (s *Sink) Dir() string {
	return s.dir
}

// Save writes data to name inside the sink directory and returns the full
// path. name must be a bare file name.
func (s *Sink) Save(name string, data []byte) (string, error) {
	if name == "" {
		return "", ErrFileNameEmpty
	}

	if len(data) == 0 {
		return "", ErrNoAudioData
	}

	dirErr := os.MkdirAll(s.dir, dirPermissions)
	if dirErr != nil {
		return "", fmt.Errorf("failed to create output directory: %w", dirErr)
	}

	outputPath := filepath.Join(s.dir, filepath.Base(name))

	writeErr := os.WriteFile(outputPath, data, filePermissions)
	if writeErr != nil {
		return "", fmt.Errorf("failed to write audio file: %w", writeErr)
	}

	return outputPath, nil
}

// FileName derives a unique file name such as
// "tts_hello-world_20250102_150405_1a2b3c4d.mp3".
func FileName(kind, label, ext string, now time.Time) string {
	parts := []string{SanitizeLabel(kind)}

	if cleaned := SanitizeLabel(label); cleaned != "" {
		parts = append(parts, cleaned)
	}

	parts = append(parts,
		now.Format(timestampLayout),
		uuid.NewString()[:uniqueSuffixLength],
	)

	return strings.Join(parts, "_") + "." + strings.TrimPrefix(ext, ".")
}

// SanitizeLabel lowercases label, turns whitespace into dashes, drops
// characters that are unsafe in file names and truncates the result.
func SanitizeLabel(label string) string {
	var builder strings.Builder

	count := 0
	lastDash := false

	for _, char := range strings.ToLower(strings.TrimSpace(label)) {
		if count >= maxLabelRunes {
			break
		}

		switch {
		case unicode.IsLetter(char) || unicode.IsDigit(char):
			builder.WriteRune(char)

			lastDash = false
		case unicode.IsSpace(char) || char == '-' || char == '_':
			if lastDash || builder.Len() == 0 {
				continue
			}

			builder.WriteRune('-')

			lastDash = true
		default:
			continue
		}

		count++
	}

	return strings.TrimRight(builder.String(), "-")
}

// Size units.
const (
	kilobyte = 1024
	megabyte = 1024 * kilobyte
	gigabyte = 1024 * megabyte
)

// FormatSize renders a byte count for humans, e.g. "1.5 MB".
func FormatSize(bytes int) string {
	switch {
	case bytes >= gigabyte:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gigabyte)
	case bytes >= megabyte:
		return fmt.Sprintf("%.1f MB", float64(bytes)/megabyte)
	case bytes >= kilobyte:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kilobyte)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
