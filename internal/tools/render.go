package tools

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/book-expert/speech-mcp/internal/apiclient"
	"github.com/book-expert/speech-mcp/internal/speech"
)

// describeError renders any failure as a message a tool caller can act on.
func describeError(err error) string {
	var (
		apiErr        *apiclient.APIError
		decodeErr     *apiclient.DecodeError
		validationErr *ValidationError
	)

	switch {
	case errors.As(err, &validationErr):
		return "Error: " + validationErr.Error()
	case errors.As(err, &apiErr) && apiErr.HasStatus():
		return fmt.Sprintf("Error: API request failed with status %d: %s", apiErr.StatusCode, apiErr.Message)
	case errors.As(err, &apiErr):
		return "Error: network failure: " + apiErr.Message
	case errors.As(err, &decodeErr):
		return "Error: unexpected response from the API: " + decodeErr.Err.Error()
	default:
		return "Error: " + err.Error()
	}
}

func filterVoices(voices []speech.Voice, search string) []speech.Voice {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return voices
	}

	filtered := make([]speech.Voice, 0, len(voices))

	for _, voice := range voices {
		if strings.Contains(strings.ToLower(voice.Name), needle) ||
			strings.Contains(strings.ToLower(voice.Category), needle) {
			filtered = append(filtered, voice)
		}
	}

	return filtered
}

func renderVoices(voices []speech.Voice) string {
	if len(voices) == 0 {
		return "No voices found."
	}

	var builder strings.Builder

	fmt.Fprintf(&builder, "Found %d voices:\n", len(voices))

	for _, voice := range voices {
		fmt.Fprintf(&builder, "- %s (id: %s", voice.Name, voice.VoiceID)

		if voice.Category != "" {
			fmt.Fprintf(&builder, ", category: %s", voice.Category)
		}

		builder.WriteString(")\n")
	}

	return strings.TrimRight(builder.String(), "\n")
}

func renderVoice(voice speech.Voice) string {
	lines := []string{
		"Name: " + voice.Name,
		"ID: " + voice.VoiceID,
	}

	if voice.Category != "" {
		lines = append(lines, "Category: "+voice.Category)
	}

	if voice.Description != "" {
		lines = append(lines, "Description: "+voice.Description)
	}

	if len(voice.Labels) > 0 {
		labels := make([]string, 0, len(voice.Labels))
		for key, value := range voice.Labels {
			labels = append(labels, key+"="+value)
		}

		slices.Sort(labels)
		lines = append(lines, "Labels: "+strings.Join(labels, ", "))
	}

	if voice.PreviewURL != "" {
		lines = append(lines, "Preview: "+voice.PreviewURL)
	}

	return strings.Join(lines, "\n")
}

func renderModels(models []speech.Model) string {
	if len(models) == 0 {
		return "No models found."
	}

	var builder strings.Builder

	fmt.Fprintf(&builder, "Found %d models:\n", len(models))

	for _, model := range models {
		fmt.Fprintf(&builder, "- %s (id: %s", model.Name, model.ModelID)

		if !model.CanDoTextToSpeech {
			builder.WriteString(", no text-to-speech")
		}

		if len(model.Languages) > 0 {
			fmt.Fprintf(&builder, ", %d languages", len(model.Languages))
		}

		builder.WriteString(")\n")
	}

	return strings.TrimRight(builder.String(), "\n")
}

func renderSubscription(sub speech.Subscription) string {
	lines := []string{
		"Tier: " + sub.Tier,
		fmt.Sprintf("Characters used: %d / %d (%d remaining)",
			sub.CharacterCount, sub.CharacterLimit, sub.RemainingCharacters()),
	}

	if sub.Status != "" {
		lines = append(lines, "Status: "+sub.Status)
	}

	if sub.NextCharacterCountResetUnix > 0 {
		reset := time.Unix(sub.NextCharacterCountResetUnix, 0).UTC()
		lines = append(lines, "Quota resets: "+reset.Format(time.RFC3339))
	}

	return strings.Join(lines, "\n")
}

func renderPresets() string {
	var builder strings.Builder

	builder.WriteString("Voice presets:\n")

	for _, name := range speech.PresetNames() {
		settings, _ := speech.Preset(name)
		fmt.Fprintf(&builder,
			"- %s: stability %.2f, similarity %.2f, style %.2f, speed %.2f, speaker boost %t\n",
			name, settings.Stability, settings.SimilarityBoost, settings.Style,
			settings.Speed, settings.UseSpeakerBoost)
	}

	return strings.TrimRight(builder.String(), "\n")
}
