package speech

import (
	"fmt"
	"slices"
	"strings"
)

// presets are named VoiceSettings for common delivery styles.
var presets = map[string]VoiceSettings{
	"default": {
		Stability: 0.5, SimilarityBoost: 0.75, Style: 0, UseSpeakerBoost: true, Speed: 1.0,
	},
	"stable": {
		Stability: 0.8, SimilarityBoost: 0.8, Style: 0, UseSpeakerBoost: true, Speed: 1.0,
	},
	"expressive": {
		Stability: 0.3, SimilarityBoost: 0.7, Style: 0.6, UseSpeakerBoost: true, Speed: 1.0,
	},
	"narration": {
		Stability: 0.65, SimilarityBoost: 0.8, Style: 0.15, UseSpeakerBoost: true, Speed: 0.95,
	},
	"conversational": {
		Stability: 0.4, SimilarityBoost: 0.75, Style: 0.3, UseSpeakerBoost: false, Speed: 1.05,
	},
}

// outputFormats maps every accepted output format to its file extension.
var outputFormats = map[string]string{
	"mp3_22050_32":  "mp3",
	"mp3_44100_32":  "mp3",
	"mp3_44100_64":  "mp3",
	"mp3_44100_96":  "mp3",
	"mp3_44100_128": "mp3",
	"mp3_44100_192": "mp3",
	"pcm_8000":      "pcm",
	"pcm_16000":     "pcm",
	"pcm_22050":     "pcm",
	"pcm_24000":     "pcm",
	"pcm_44100":     "pcm",
	"pcm_48000":     "pcm",
	"ulaw_8000":     "ulaw",
	"alaw_8000":     "alaw",
	"opus_48000_64": "opus",
	"opus_48000_96": "opus",
	"wav_44100":     "wav",
}

// Preset returns the named settings. Lookup is case-insensitive.
func Preset(name string) (VoiceSettings, error) {
	settings, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return VoiceSettings{}, fmt.Errorf("%w: %q (available: %s)",
			ErrUnknownPreset, name, strings.Join(PresetNames(), ", "))
	}

	return settings, nil
}

// PresetNames lists the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// ExtensionFor returns the file extension for an output format.
func ExtensionFor(format string) (string, error) {
	ext, ok := outputFormats[format]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	return ext, nil
}

// IsSupportedFormat reports whether format is accepted.
func IsSupportedFormat(format string) bool {
	_, ok := outputFormats[format]

	return ok
}
