// Package worker runs speech synthesis as a NATS job: text arrives by
// reference in a TextProcessedEvent, audio leaves by reference in an
// AudioChunkCreatedEvent.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/speech-mcp/internal/apiclient"
	"github.com/book-expert/speech-mcp/internal/config"
	"github.com/book-expert/speech-mcp/internal/core"
	"github.com/book-expert/speech-mcp/internal/speech"
)

// Static errors.
var (
	ErrTextKeyEmpty = errors.New("text key cannot be empty")
	ErrSubjectEmpty = errors.New("subject cannot be empty")
	ErrStoreMissing = errors.New("object store cannot be nil")
	ErrSynthMissing = errors.New("synthesizer cannot be nil")
	ErrNegativeSeed = errors.New("seed must be non-negative")
	ErrTextEmpty    = errors.New("downloaded text is empty")
)

// Options configures a NatsWorker.
type Options struct {
	// Subject is the subject TextProcessedEvents arrive on.
	Subject string
	// NotifySubject receives the AudioChunkCreatedEvent when the incoming
	// message carries no reply inbox.
	NotifySubject string
	TextStore     core.ObjectStore
	AudioStore    core.ObjectStore
	Synthesizer   core.Synthesizer
	Defaults      config.SpeechConfig
	// JobTimeout bounds one job from download to upload. It should cover the
	// client's whole retry budget, apiclient.Config.MaxDuration, or later
	// retries are cut off. Zero uses the budget of the default retry settings
	// with Defaults' request timeout.
	JobTimeout    time.Duration
}

// NatsWorker listens for speech jobs on a NATS subject and processes them.
type NatsWorker struct {
	natsConnection *nats.Conn
	opts           Options
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(natsConnection *nats.Conn, opts Options, log *logger.Logger) (*NatsWorker, error) {
	switch {
	case opts.Subject == "":
		return nil, ErrSubjectEmpty
	case opts.TextStore == nil || opts.AudioStore == nil:
		return nil, ErrStoreMissing
	case opts.Synthesizer == nil:
		return nil, ErrSynthMissing
	}

	return &NatsWorker{
		natsConnection: natsConnection,
		opts:           opts,
		log:            log,
	}, nil
}

// Run subscribes and blocks until ctx is cancelled, then drains.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.opts.Subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.opts.Subject, err)
	}

	w.log.Info("Listening for speech jobs on %s", w.opts.Subject)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout())
	defer cancel()

	event, err := parseEvent(msg.Data)
	if err != nil {
		w.log.Error("Failed to parse and validate event: %v", err)

		return
	}

	started := time.Now()

	audioKey, err := w.process(ctx, event)
	if err != nil {
		w.log.Error("Failed to process speech job for workflow %s: %v", event.Header.WorkflowID, err)

		return
	}

	w.log.Info("Workflow %s page %d/%d synthesized to %s in %s",
		event.Header.WorkflowID, event.PageNumber, event.TotalPages, audioKey,
		time.Since(started).Round(time.Millisecond))

	reply := &events.AudioChunkCreatedEvent{
		Header:     event.Header,
		AudioKey:   audioKey,
		PageNumber: event.PageNumber,
		TotalPages: event.TotalPages,
	}

	err = w.publish(msg, reply)
	if err != nil {
		w.log.Error("Failed to publish reply event for workflow %s: %v", event.Header.WorkflowID, err)
	}
}

// process downloads the text, synthesizes it and uploads the audio,
// returning the new audio key.
func (w *NatsWorker) process(ctx context.Context, event *events.TextProcessedEvent) (string, error) {
	textData, err := w.opts.TextStore.Download(ctx, event.TextKey)
	if err != nil {
		return "", fmt.Errorf("failed to download text data for key '%s': %w", event.TextKey, err)
	}

	if strings.TrimSpace(string(textData)) == "" {
		return "", fmt.Errorf("%w: key '%s'", ErrTextEmpty, event.TextKey)
	}

	req := w.synthesisRequest(event, string(textData))

	ext, err := speech.ExtensionFor(req.OutputFormat)
	if err != nil {
		return "", err
	}

	audioData, err := w.opts.Synthesizer.TextToSpeech(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to synthesize speech: %w", err)
	}

	audioKey := uuid.NewString() + "." + ext

	err = w.opts.AudioStore.Upload(ctx, audioKey, audioData)
	if err != nil {
		return "", fmt.Errorf("failed to upload audio data for key '%s': %w", audioKey, err)
	}

	return audioKey, nil
}

// synthesisRequest maps an event onto a request. The event's voice wins over
// the configured one; a zero seed means "not set".
func (w *NatsWorker) synthesisRequest(event *events.TextProcessedEvent, content string) speech.SynthesisRequest {
	defaults := w.opts.Defaults

	voiceID := strings.TrimSpace(event.Voice)
	if voiceID == "" {
		voiceID = defaults.VoiceID
	}

	if voiceID == "" {
		voiceID = config.DefaultVoiceID
	}

	outputFormat := defaults.OutputFormat
	if outputFormat == "" {
		outputFormat = config.DefaultOutputFormat
	}

	var seed *int
	if event.Seed > 0 {
		value := event.Seed
		seed = &value
	}

	return speech.SynthesisRequest{
		Text:          content,
		VoiceID:       voiceID,
		ModelID:       defaults.ModelID,
		OutputFormat:  outputFormat,
		VoiceSettings: nil,
		LanguageCode:  "",
		Seed:          seed,
		Normalize:     defaults.NormalizeText,
	}
}

// publish answers the requester directly, or announces the chunk on the
// notify subject for fire-and-forget producers.
func (w *NatsWorker) publish(msg *nats.Msg, reply *events.AudioChunkCreatedEvent) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	if msg.Reply != "" {
		err = msg.Respond(data)
		if err != nil {
			return fmt.Errorf("failed to respond with reply event: %w", err)
		}

		return nil
	}

	if w.opts.NotifySubject == "" {
		return nil
	}

	err = w.natsConnection.Publish(w.opts.NotifySubject, data)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", w.opts.NotifySubject, err)
	}

	return nil
}

func (w *NatsWorker) jobTimeout() time.Duration {
	if w.opts.JobTimeout > 0 {
		return w.opts.JobTimeout
	}

	return apiclient.Config{
		APIKey:     "",
		MaxRetries: apiclient.DefaultMaxRetries,
		RetryDelay: apiclient.DefaultRetryDelay,
		Timeout:    w.opts.Defaults.Timeout(),
	}.MaxDuration()
}

func parseEvent(data []byte) (*events.TextProcessedEvent, error) {
	var event events.TextProcessedEvent

	err := json.Unmarshal(data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if strings.TrimSpace(event.TextKey) == "" {
		return nil, ErrTextKeyEmpty
	}

	if event.Seed < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNegativeSeed, event.Seed)
	}

	return &event, nil
}
