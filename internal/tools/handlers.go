// Package tools exposes the speech API as MCP tools. Handlers validate their
// input, apply configured defaults, call the speech service and render a
// text result. Failures are rendered as error results, never returned to the
// MCP runtime, so one bad call cannot take the server down.
package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/book-expert/speech-mcp/internal/audio"
	"github.com/book-expert/speech-mcp/internal/config"
	"github.com/book-expert/speech-mcp/internal/core"
	"github.com/book-expert/speech-mcp/internal/speech"
)

// File name prefixes.
const (
	kindSpeech      = "tts"
	kindSoundEffect = "sfx"
)

// Log formats.
const (
	logFmtAudioSaved = "Saved %s audio to %s (%d bytes)"
	logFmtToolFailed = "Tool %s failed: %v"
)

// Handlers implements every tool.
type Handlers struct {
	speech    core.SpeechService
	sink      *audio.Sink
	defaults  config.SpeechConfig
	validator *Validator
	log       *logger.Logger
	now       func() time.Time
}

// NewHandlers wires the tool handlers.
func NewHandlers(
	service core.SpeechService,
	sink *audio.Sink,
	defaults config.SpeechConfig,
	log *logger.Logger,
) (*Handlers, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, err
	}

	return &Handlers{
		speech:    service,
		sink:      sink,
		defaults:  defaults,
		validator: validator,
		log:       log,
		now:       time.Now,
	}, nil
}

// TextToSpeech synthesizes text and saves the audio file.
func (h *Handlers) TextToSpeech(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TextToSpeechInput,
) (*mcp.CallToolResult, any, error) {
	const tool = "text_to_speech"

	err := h.validator.Validate(input)
	if err != nil {
		return h.failure(tool, err), nil, nil
	}

	req, err := h.synthesisRequest(input)
	if err != nil {
		return h.failure(tool, err), nil, nil
	}

	data, err := h.speech.TextToSpeech(ctx, req)
	if err != nil {
		return h.failure(tool, err), nil, nil
	}

	path, err := h.save(kindSpeech, input.Text, req.OutputFormat, data)
	if err != nil {
		return h.failure(tool, err), nil, nil
	}

	return textResult(fmt.Sprintf(
		"Audio saved to %s (%s, voice %s, model %s, format %s)",
		path, audio.FormatSize(len(data)), req.VoiceID, req.ModelID, req.OutputFormat,
	)), nil, nil
}

// SoundEffect generates a sound effect and saves the audio file.
func (h *Handlers) SoundEffect(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SoundEffectInput,
) (*mcp.CallToolResult, any, error) {
	const tool = "generate_sound_effect"

	err := h.validator.Validate(input)
	if err != nil {
		return h.failure(tool, err), nil, nil
	}

	req := speech.SoundEffectRequest{
		Text:            input.Text,
		OutputFormat:    firstNonEmpty(input.OutputFormat, h.defaults.OutputFormat, config.DefaultOutputFormat),
		DurationSeconds: input.DurationSeconds,
		PromptInfluence: input.PromptInfluence,
	}

	data, err := h.speech.SoundEffect(ctx, req)
	if err != nil {
		return h.failure(tool, err), nil, nil
	}

	path, err := h.save(kindSoundEffect, input.Text, req.OutputFormat, data)
	if err != nil {
		return h.failure(tool, err), nil, nil
	}

	return textResult(fmt.Sprintf("Sound effect saved to %s (%s, format %s)",
		path, audio.FormatSize(len(data)), req.OutputFormat)), nil, nil
}

// ListVoices renders the account's voices, optionally filtered.
func (h *Handlers) ListVoices(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListVoicesInput,
) (*mcp.CallToolResult, any, error) {
	const tool = "list_voices"

	err := h.validator.Validate(input)
	if err != nil {
		return h.failure(tool, err), nil, nil
	}

	voices, err := h.speech.ListVoices(ctx)
	if err != nil {
		return h.failure(tool, err), nil, nil
	}

	return textResult(renderVoices(filterVoices(voices, input.Search))), nil, nil
}

// GetVoice renders one voice.
func (h *Handlers) GetVoice(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetVoiceInput,
) (*mcp.CallToolResult, any, error) {
	const tool = "get_voice"

	err := h.validator.Validate(input)
	if err != nil {
		return h.failure(tool, err), nil, nil
	}

	voice, err := h.speech.GetVoice(ctx, input.VoiceID)
	if err != nil {
		return h.failure(tool, err), nil, nil
	}

	return textResult(renderVoice(*voice)), nil, nil
}

// ListModels renders the synthesis models.
func (h *Handlers) ListModels(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, any, error) {
	models, err := h.speech.ListModels(ctx)
	if err != nil {
		return h.failure("list_models", err), nil, nil
	}

	return textResult(renderModels(models)), nil, nil
}

// Subscription renders the account quota.
func (h *Handlers) Subscription(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, any, error) {
	sub, err := h.speech.Subscription(ctx)
	if err != nil {
		return h.failure("get_subscription", err), nil, nil
	}

	return textResult(renderSubscription(*sub)), nil, nil
}

// VoicePresets renders the preset table.
func (h *Handlers) VoicePresets(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, any, error) {
	return textResult(renderPresets()), nil, nil
}

// synthesisRequest applies configured defaults and resolves voice settings.
func (h *Handlers) synthesisRequest(input TextToSpeechInput) (speech.SynthesisRequest, error) {
	settings, err := voiceSettings(input)
	if err != nil {
		return speech.SynthesisRequest{}, err
	}

	normalize := h.defaults.NormalizeText
	if input.Normalize != nil {
		normalize = *input.Normalize
	}

	return speech.SynthesisRequest{
		Text:          input.Text,
		VoiceID:       firstNonEmpty(input.VoiceID, h.defaults.VoiceID, config.DefaultVoiceID),
		ModelID:       firstNonEmpty(input.ModelID, h.defaults.ModelID),
		OutputFormat:  firstNonEmpty(input.OutputFormat, h.defaults.OutputFormat, config.DefaultOutputFormat),
		VoiceSettings: settings,
		LanguageCode:  strings.ToLower(input.LanguageCode),
		Seed:          input.Seed,
		Normalize:     normalize,
	}, nil
}

// voiceSettings starts from the named preset, or from "default" when only
// individual knobs are given, and applies the overrides. With neither it
// returns nil so the voice's stored settings apply.
func voiceSettings(input TextToSpeechInput) (*speech.VoiceSettings, error) {
	overridden := input.Stability != nil || input.SimilarityBoost != nil ||
		input.Style != nil || input.Speed != nil

	if input.Preset == "" && !overridden {
		return nil, nil
	}

	settings, err := speech.Preset(firstNonEmpty(input.Preset, "default"))
	if err != nil {
		return nil, err
	}

	if input.Stability != nil {
		settings.Stability = *input.Stability
	}

	if input.SimilarityBoost != nil {
		settings.SimilarityBoost = *input.SimilarityBoost
	}

	if input.Style != nil {
		settings.Style = *input.Style
	}

	if input.Speed != nil {
		settings.Speed = *input.Speed
	}

	return &settings, nil
}

func (h *Handlers) save(kind, label, format string, data []byte) (string, error) {
	ext, err := speech.ExtensionFor(format)
	if err != nil {
		return "", err
	}

	path, err := h.sink.Save(audio.FileName(kind, label, ext, h.now()), data)
	if err != nil {
		return "", err
	}

	h.log.Info(logFmtAudioSaved, kind, path, len(data))

	return path, nil
}

func (h *Handlers) failure(tool string, err error) *mcp.CallToolResult {
	h.log.Error(logFmtToolFailed, tool, err)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: describeError(err)}},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}

	return ""
}
