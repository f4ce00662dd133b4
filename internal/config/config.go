// Package config provides the configuration structure for the speech services.
//
// Secrets and retry tuning live in the environment and are read by the API
// client itself; everything here comes from the project TOML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Built-in defaults used when the project file leaves a value unset.
const (
	DefaultVoiceID        = "21m00Tcm4TlvDq8Ikwcm"
	DefaultModelID        = "eleven_multilingual_v2"
	DefaultOutputFormat   = "mp3_44100_128"
	DefaultTimeoutSeconds = 120
	defaultOutputDirName  = "speech-output"
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                      string `toml:"url"`
	TextProcessedSubject     string `toml:"text_processed_subject"`
	AudioChunkCreatedSubject string `toml:"audio_chunk_created_subject"`
	AudioObjectStoreBucket   string `toml:"audio_object_store_bucket"`
	TextObjectStoreBucket    string `toml:"text_object_store_bucket"`
}

// SpeechConfig holds the defaults applied to tool calls and worker jobs.
type SpeechConfig struct {
	VoiceID        string `toml:"voice_id"`
	ModelID        string `toml:"model_id"`
	OutputFormat   string `toml:"output_format"`
	OutputDir      string `toml:"output_dir"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	NormalizeText  bool   `toml:"normalize_text"`
}

// Timeout returns the per-attempt HTTP timeout.
func (s SpeechConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS   NATSConfig   `toml:"nats"`
	Speech SpeechConfig `toml:"speech"`
	Paths  PathsConfig  `toml:"paths"`
}

// Load loads the project configuration and fills unset values with defaults.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyDefaults()

	return &cfg, nil
}

// Default returns a configuration made only of built-in defaults.
func Default() *Config {
	var cfg Config

	cfg.ApplyDefaults()

	return &cfg
}

// ApplyDefaults fills every unset field that has a sensible default.
// NATS settings have none; the worker validates them separately.
func (c *Config) ApplyDefaults() {
	if c.Speech.VoiceID == "" {
		c.Speech.VoiceID = DefaultVoiceID
	}

	if c.Speech.ModelID == "" {
		c.Speech.ModelID = DefaultModelID
	}

	if c.Speech.OutputFormat == "" {
		c.Speech.OutputFormat = DefaultOutputFormat
	}

	if c.Speech.TimeoutSeconds <= 0 {
		c.Speech.TimeoutSeconds = DefaultTimeoutSeconds
	}

	if c.Speech.OutputDir == "" {
		c.Speech.OutputDir = defaultOutputDir()
	}

	if c.Paths.BaseLogsDir == "" {
		c.Paths.BaseLogsDir = os.TempDir()
	}
}

// ValidateNATS reports the first missing setting the worker depends on.
func (c *Config) ValidateNATS() error {
	settings := []struct {
		key   string
		value string
	}{
		{key: "nats.url", value: c.NATS.URL},
		{key: "nats.text_processed_subject", value: c.NATS.TextProcessedSubject},
		{key: "nats.text_object_store_bucket", value: c.NATS.TextObjectStoreBucket},
		{key: "nats.audio_object_store_bucket", value: c.NATS.AudioObjectStoreBucket},
		{key: "nats.audio_chunk_created_subject", value: c.NATS.AudioChunkCreatedSubject},
	}

	for _, setting := range settings {
		if setting.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingSetting, setting.key)
		}
	}

	return nil
}

func defaultOutputDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), defaultOutputDirName)
	}

	return filepath.Join(homeDir, "Desktop", defaultOutputDirName)
}
