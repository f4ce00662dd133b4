package apiclient

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvAPIKey     = "ELEVENLABS_API_KEY"
	EnvMaxRetries = "ELEVENLABS_MAX_RETRIES"
	EnvRetryDelay = "ELEVENLABS_RETRY_DELAY_MS"
)

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// ConfigFromEnv reads the client settings from the process environment.
// Unset optional values take their defaults; malformed ones are a
// *ConfigurationError.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		APIKey:     strings.TrimSpace(os.Getenv(EnvAPIKey)),
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		Timeout:    DefaultTimeout,
	}

	if cfg.APIKey == "" {
		return Config{}, &ConfigurationError{Field: EnvAPIKey, Reason: "is required"}
	}

	retries, err := envInt(EnvMaxRetries, DefaultMaxRetries)
	if err != nil {
		return Config{}, err
	}

	cfg.MaxRetries = retries

	delayMs, err := envInt(EnvRetryDelay, int(DefaultRetryDelay/time.Millisecond))
	if err != nil {
		return Config{}, err
	}

	cfg.RetryDelay = time.Duration(delayMs) * time.Millisecond

	return cfg, nil
}

func envInt(name string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &ConfigurationError{Field: name, Reason: "must be an integer, got " + strconv.Quote(raw)}
	}

	if value < 0 {
		return 0, &ConfigurationError{Field: name, Reason: "must be non-negative"}
	}

	return value, nil
}

// Default returns the process-wide client, building it from the environment
// on first use. Concurrent first callers all observe the same instance. A
// failed construction is not cached, so a later call may succeed once the
// environment is fixed. opts only apply to the call that builds the client.
func Default(opts ...Option) (*Client, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultClient != nil {
		return defaultClient, nil
	}

	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}

	client, err := NewClient(cfg, opts...)
	if err != nil {
		return nil, err
	}

	defaultClient = client

	return defaultClient, nil
}

// ResetDefault drops the process-wide client so the next Default call
// rebuilds it. Intended for tests.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	defaultClient = nil
}
