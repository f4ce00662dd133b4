// Package core defines the interfaces shared by the speech tool surface and
// the NATS worker.
package core

import (
	"context"

	"github.com/book-expert/speech-mcp/internal/speech"
)

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// Synthesizer turns text into audio bytes.
type Synthesizer interface {
	TextToSpeech(ctx context.Context, req speech.SynthesisRequest) ([]byte, error)
}

// SpeechService is the full remote API surface exposed as tools.
type SpeechService interface {
	Synthesizer
	SoundEffect(ctx context.Context, req speech.SoundEffectRequest) ([]byte, error)
	ListVoices(ctx context.Context) ([]speech.Voice, error)
	GetVoice(ctx context.Context, voiceID string) (*speech.Voice, error)
	ListModels(ctx context.Context) ([]speech.Model, error)
	Subscription(ctx context.Context) (*speech.Subscription, error)
}
