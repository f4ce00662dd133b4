// Package apiclient provides the authenticated HTTP client used to reach the
// remote speech API. Every call goes through a single attempt loop that
// absorbs transient failures (transport faults, 429 and 5xx responses) with
// exponential backoff and hands callers either a decoded payload or one
// classified error.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// DefaultBaseURL is the fixed root every request path is appended to.
const DefaultBaseURL = "https://api.elevenlabs.io/v1"

// HTTP headers.
const (
	HeaderAPIKey      = "xi-api-key"
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

// Defaults applied when the environment leaves a setting unset.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1000 * time.Millisecond
	DefaultTimeout    = 120 * time.Second
)

const (
	logFmtRetryStatus    = "Request %s %s returned %d, retrying in %s (attempt %d/%d)"
	logFmtRetryTransport = "Request %s %s failed: %v, retrying in %s (attempt %d/%d)"
	errFmtExhausted      = "request failed after %d attempts: %v"
)

// maxShift is the first exponent at which 1<<attempt leaves int64.
const maxShift = 63

// allowedMethods are the HTTP methods a Request may use.
var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
}

// ResponseType declares how a successful response body is decoded.
type ResponseType int

const (
	// ResponseJSON parses the body as JSON. It is the zero value.
	ResponseJSON ResponseType = iota
	// ResponseBytes returns the body exactly as received.
	ResponseBytes
)

// Logger receives the diagnostic line emitted before each retry sleep.
// *logger.Logger from github.com/book-expert/logger satisfies it.
type Logger interface {
	Warn(format string, args ...any)
}

// Config holds the immutable client settings.
type Config struct {
	APIKey     string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// Request describes one logical call.
type Request struct {
	// Path is appended to the base URL and may carry a query string.
	Path   string
	Method string
	// Body is serialized as JSON when non-nil. It must be nil for GET.
	Body    any
	Headers map[string]string
	// ResponseType selects raw bytes or JSON decoding for 2xx responses.
	ResponseType ResponseType
	// Into, when set, receives the decoded JSON instead of a generic value.
	Into any
}

// Result is a decoded successful response.
type Result struct {
	StatusCode int
	// Bytes holds the unmodified body for ResponseBytes requests.
	Bytes []byte
	// Data holds the decoded body for ResponseJSON requests: Into when it was
	// provided, otherwise the generic decoding (map[string]any, []any, ...).
	Data any
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client performs requests against the remote API. It holds no per-call
// state and is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	config     Config
	baseURL    string
	log        Logger
	sleep      SleepFunc
}

// Option customizes a Client at construction time.
type Option func(*Client)

// WithBaseURL points the client at a different API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the retry diagnostics sink.
func WithLogger(log Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithSleep replaces the backoff wait.
func WithSleep(sleep SleepFunc) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// NewClient validates cfg and builds a Client. A missing API key or a
// negative retry setting yields a *ConfigurationError.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, &ConfigurationError{Field: EnvAPIKey, Reason: "is required"}
	}

	if cfg.MaxRetries < 0 {
		return nil, &ConfigurationError{Field: EnvMaxRetries, Reason: "must be non-negative"}
	}

	if cfg.RetryDelay < 0 {
		return nil, &ConfigurationError{Field: EnvRetryDelay, Reason: "must be non-negative"}
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		baseURL:    DefaultBaseURL,
		log:        nil,
		sleep:      sleepContext,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// MaxDuration is the longest one call can take under cfg: every attempt
// running to its timeout plus every backoff wait. It saturates instead of
// overflowing. A zero Timeout counts as DefaultTimeout.
func (cfg Config) MaxDuration() time.Duration {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	total := time.Duration(0)

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		total = saturatingAdd(total, timeout)

		if attempt < cfg.MaxRetries {
			total = saturatingAdd(total, backoffDelay(cfg.RetryDelay, attempt))
		}

		if total == time.Duration(math.MaxInt64) {
			break
		}
	}

	return total
}

func saturatingAdd(a, b time.Duration) time.Duration {
	if b > 0 && a > time.Duration(math.MaxInt64)-b {
		return time.Duration(math.MaxInt64)
	}

	return a + b
}

// Config returns the settings the client was built with.
func (c *Client) Config() Config {
	return c.config
}

// Get fetches path and decodes the JSON response into into.
func (c *Client) Get(ctx context.Context, path string, into any) error {
	_, err := c.Execute(ctx, Request{
		Path:         path,
		Method:       http.MethodGet,
		Body:         nil,
		Headers:      nil,
		ResponseType: ResponseJSON,
		Into:         into,
	})

	return err
}

// Post sends body to path and decodes the JSON response into into.
func (c *Client) Post(ctx context.Context, path string, body, into any) error {
	_, err := c.Execute(ctx, Request{
		Path:         path,
		Method:       http.MethodPost,
		Body:         body,
		Headers:      nil,
		ResponseType: ResponseJSON,
		Into:         into,
	})

	return err
}

// PostForBytes sends body to path and returns the raw response body.
func (c *Client) PostForBytes(ctx context.Context, path string, body any) ([]byte, error) {
	result, err := c.Execute(ctx, Request{
		Path:         path,
		Method:       http.MethodPost,
		Body:         body,
		Headers:      nil,
		ResponseType: ResponseBytes,
		Into:         nil,
	})
	if err != nil {
		return nil, err
	}

	return result.Bytes, nil
}

// Execute runs req to completion. It makes at most MaxRetries+1 attempts,
// waiting 2^attempt * RetryDelay after each transient failure.
func (c *Client) Execute(ctx context.Context, req Request) (*Result, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	payload, err := c.prepare(req)
	if err != nil {
		return nil, err
	}

	url := c.baseURL + req.Path
	maxRetries := c.config.MaxRetries

	for attempt := 0; ; attempt++ {
		httpReq, err := c.newHTTPRequest(ctx, req, url, payload)
		if err != nil {
			return nil, err
		}

		status, body, faultErr := c.roundTrip(httpReq)
		if faultErr != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("request %s %s aborted: %w", req.Method, req.Path, ctx.Err())
			}

			if attempt >= maxRetries {
				return nil, &APIError{
					StatusCode: 0,
					Message:    fmt.Sprintf(errFmtExhausted, attempt+1, faultErr),
					Terminal:   true,
					Err:        faultErr,
				}
			}

			delay := c.backoff(attempt)
			c.warn(logFmtRetryTransport, req.Method, req.Path, faultErr, delay, attempt+1, maxRetries)

			waitErr := c.sleep(ctx, delay)
			if waitErr != nil {
				return nil, fmt.Errorf("request %s %s aborted: %w", req.Method, req.Path, waitErr)
			}

			continue
		}

		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			if isRetryableStatus(status) && attempt < maxRetries {
				delay := c.backoff(attempt)
				c.warn(logFmtRetryStatus, req.Method, req.Path, status, delay, attempt+1, maxRetries)

				waitErr := c.sleep(ctx, delay)
				if waitErr != nil {
					return nil, fmt.Errorf("request %s %s aborted: %w", req.Method, req.Path, waitErr)
				}

				continue
			}

			return nil, &APIError{
				StatusCode: status,
				Message:    statusMessage(status, body),
				Terminal:   true,
				Err:        nil,
			}
		}

		return decode(req, status, body)
	}
}

// prepare checks preconditions and serializes the body once so every
// attempt sends identical bytes.
func (c *Client) prepare(req Request) ([]byte, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("%w: path cannot be empty", ErrInvalidRequest)
	}

	if !allowedMethods[req.Method] {
		return nil, fmt.Errorf("%w: unsupported method %q", ErrInvalidRequest, req.Method)
	}

	if req.Body == nil {
		return nil, nil
	}

	if req.Method == http.MethodGet {
		return nil, fmt.Errorf("%w: GET %s cannot carry a body", ErrInvalidRequest, req.Path)
	}

	payload, err := json.Marshal(req.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal body: %w", ErrInvalidRequest, err)
	}

	return payload, nil
}

// newHTTPRequest builds one attempt. A failure here is a local defect, such
// as a malformed base URL, and is never retried.
func (c *Client) newHTTPRequest(
	ctx context.Context,
	req Request,
	url string,
	payload []byte,
) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", ErrInvalidRequest, err)
	}

	if payload != nil {
		httpReq.Header.Set(headerContentType, contentTypeJSON)
	}

	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}

	httpReq.Header.Set(HeaderAPIKey, c.config.APIKey)

	return httpReq, nil
}

// roundTrip sends httpReq and reads the whole body. A failure to send or to
// read the body is returned as the fault; the status is only meaningful
// when the fault is nil.
func (c *Client) roundTrip(httpReq *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request to %s: %w", httpReq.URL.Redacted(), err)
	}

	body, err := readBody(resp)
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode, body, nil
}

// backoff returns 2^attempt * RetryDelay, attempt being the zero-based index
// of the attempt that just failed. There is no cap and no jitter; a delay
// that would overflow saturates at the largest representable duration.
func (c *Client) backoff(attempt int) time.Duration {
	return backoffDelay(c.config.RetryDelay, attempt)
}

func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}

	if attempt >= maxShift || base > time.Duration(math.MaxInt64>>attempt) {
		return time.Duration(math.MaxInt64)
	}

	return base << attempt
}

func (c *Client) warn(format string, args ...any) {
	if c.log == nil {
		return
	}

	c.log.Warn(format, args...)
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}

func decode(req Request, status int, body []byte) (*Result, error) {
	result := &Result{StatusCode: status, Bytes: nil, Data: nil}

	if req.ResponseType == ResponseBytes {
		result.Bytes = body

		return result, nil
	}

	// 204 and friends carry nothing to decode.
	if len(bytes.TrimSpace(body)) == 0 {
		return result, nil
	}

	if req.Into != nil {
		err := json.Unmarshal(body, req.Into)
		if err != nil {
			return nil, &DecodeError{Path: req.Path, Err: err}
		}

		result.Data = req.Into

		return result, nil
	}

	var data any

	err := json.Unmarshal(body, &data)
	if err != nil {
		return nil, &DecodeError{Path: req.Path, Err: err}
	}

	result.Data = data

	return result, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsTransportError reports whether err is a classified transport fault.
func IsTransportError(err error) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) && !apiErr.HasStatus()
}
