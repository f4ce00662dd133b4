// Package speech exposes the remote speech API as typed operations. Every
// call funnels through the retrying client; this package only builds paths
// and payloads and decodes results.
package speech

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/book-expert/speech-mcp/internal/speech/text"
)

// API paths.
const (
	pathTextToSpeech  = "/text-to-speech/"
	pathSoundEffect   = "/sound-generation"
	pathVoices        = "/voices"
	pathModels        = "/models"
	pathSubscription  = "/user/subscription"
	queryOutputFormat = "output_format"
)

// Static errors.
var (
	ErrTextEmpty         = errors.New("text cannot be empty")
	ErrVoiceIDEmpty      = errors.New("voice id cannot be empty")
	ErrUnknownPreset     = errors.New("unknown voice preset")
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrEmptyAudio        = errors.New("received empty audio data")
)

// API is the subset of the retrying client the service uses.
type API interface {
	Get(ctx context.Context, path string, into any) error
	PostForBytes(ctx context.Context, path string, body any) ([]byte, error)
}

// Service performs speech operations against the remote API.
type Service struct {
	api        API
	normalizer *text.Normalizer
}

// NewService wraps api.
func NewService(api API) *Service {
	return &Service{
		api:        api,
		normalizer: text.NewNormalizer(),
	}
}

// TextToSpeech synthesizes req.Text with req.VoiceID and returns the audio
// bytes exactly as the API produced them.
func (s *Service) TextToSpeech(ctx context.Context, req SynthesisRequest) ([]byte, error) {
	content := req.Text
	if req.Normalize {
		content = s.normalizer.Normalize(content)
	}

	if strings.TrimSpace(content) == "" {
		return nil, ErrTextEmpty
	}

	if strings.TrimSpace(req.VoiceID) == "" {
		return nil, ErrVoiceIDEmpty
	}

	path, err := withOutputFormat(pathTextToSpeech+url.PathEscape(req.VoiceID), req.OutputFormat)
	if err != nil {
		return nil, err
	}

	body := synthesisBody{
		Text:          content,
		ModelID:       req.ModelID,
		VoiceSettings: req.VoiceSettings,
		LanguageCode:  req.LanguageCode,
		Seed:          req.Seed,
	}

	audio, err := s.api.PostForBytes(ctx, path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to generate speech: %w", err)
	}

	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	return audio, nil
}

// SoundEffect generates a sound effect described by req.Text.
func (s *Service) SoundEffect(ctx context.Context, req SoundEffectRequest) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrTextEmpty
	}

	path, err := withOutputFormat(pathSoundEffect, req.OutputFormat)
	if err != nil {
		return nil, err
	}

	body := soundEffectBody{
		Text:            req.Text,
		DurationSeconds: req.DurationSeconds,
		PromptInfluence: req.PromptInfluence,
	}

	audio, err := s.api.PostForBytes(ctx, path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to generate sound effect: %w", err)
	}

	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	return audio, nil
}

// ListVoices returns every voice available to the account.
func (s *Service) ListVoices(ctx context.Context) ([]Voice, error) {
	var resp voicesResponse

	err := s.api.Get(ctx, pathVoices, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}

	return resp.Voices, nil
}

// GetVoice returns one voice by id.
func (s *Service) GetVoice(ctx context.Context, voiceID string) (*Voice, error) {
	if strings.TrimSpace(voiceID) == "" {
		return nil, ErrVoiceIDEmpty
	}

	var voice Voice

	err := s.api.Get(ctx, pathVoices+"/"+url.PathEscape(voiceID), &voice)
	if err != nil {
		return nil, fmt.Errorf("failed to get voice %s: %w", voiceID, err)
	}

	return &voice, nil
}

// ListModels returns the available synthesis models.
func (s *Service) ListModels(ctx context.Context) ([]Model, error) {
	var models []Model

	err := s.api.Get(ctx, pathModels, &models)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	return models, nil
}

// Subscription returns the account's quota summary.
func (s *Service) Subscription(ctx context.Context) (*Subscription, error) {
	var sub Subscription

	err := s.api.Get(ctx, pathSubscription, &sub)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

// withOutputFormat appends the output format selector. An empty format
// leaves the API default in place.
func withOutputFormat(path, format string) (string, error) {
	if format == "" {
		return path, nil
	}

	if !IsSupportedFormat(format) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	query := url.Values{}
	query.Set(queryOutputFormat, format)

	return path + "?" + query.Encode(), nil
}
