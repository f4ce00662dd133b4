package speech_test

import (
	"testing"

	"github.com/book-expert/speech-mcp/internal/speech"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreset(t *testing.T) {
	t.Parallel()

	settings, err := speech.Preset(" Stable ")
	require.NoError(t, err)
	assert.InEpsilon(t, 0.8, settings.Stability, 0.001)

	_, err = speech.Preset("whisper")
	require.ErrorIs(t, err, speech.ErrUnknownPreset)
	assert.Contains(t, err.Error(), "narration")
}

func TestPresetNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"conversational", "default", "expressive", "narration", "stable"},
		speech.PresetNames())
}

func TestExtensionFor(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"mp3_44100_128": "mp3",
		"pcm_24000":     "pcm",
		"ulaw_8000":     "ulaw",
		"opus_48000_64": "opus",
	}

	for format, want := range tests {
		ext, err := speech.ExtensionFor(format)
		require.NoError(t, err)
		assert.Equal(t, want, ext)
	}

	_, err := speech.ExtensionFor("mp4")
	require.ErrorIs(t, err, speech.ErrUnsupportedFormat)
}
