package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrInvalidRequest is returned when a Request violates its preconditions.
// Such requests are never sent.
var ErrInvalidRequest = errors.New("invalid request")

// statusDescriptions is used only to format error messages.
var statusDescriptions = map[int]string{
	http.StatusBadRequest:          "Bad Request - Invalid parameters",
	http.StatusUnauthorized:        "Unauthorized - Invalid API key",
	http.StatusForbidden:           "Forbidden - Insufficient permissions",
	http.StatusNotFound:            "Not Found - Resource does not exist",
	http.StatusUnprocessableEntity: "Unprocessable Entity - Validation failed",
	http.StatusTooManyRequests:     "Too Many Requests - Rate limit exceeded",
	http.StatusInternalServerError: "Internal Server Error",
	http.StatusBadGateway:          "Bad Gateway",
	http.StatusServiceUnavailable:  "Service Unavailable - The service is temporarily unavailable",
	http.StatusGatewayTimeout:      "Gateway Timeout",
}

// ConfigurationError reports a missing or malformed client setting.
// It is raised when the client is constructed, never at request time.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

// APIError is the classified result of a request that ultimately failed.
//
// StatusCode is zero when the failure was a transport fault (DNS, refused
// connection, timeout) rather than a response from the remote API.
type APIError struct {
	StatusCode int
	Message    string
	// Terminal is true for every APIError handed to a caller: either the
	// status is not retryable or the retry budget was spent.
	Terminal bool
	Err      error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return "network error: " + e.Message
	}

	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// HasStatus reports whether the failure came from an HTTP response.
func (e *APIError) HasStatus() bool {
	return e.StatusCode != 0
}

// DecodeError reports a successful response whose body did not match the
// declared response shape.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response from %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// errorBody mirrors the remote API's structured error payload. Detail is
// either an object carrying a message or a bare string.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type errorDetail struct {
	Message string `json:"message"`
}

// statusMessage builds the human-readable message for a non-2xx response.
func statusMessage(status int, body []byte) string {
	description, ok := statusDescriptions[status]
	if !ok {
		description = fmt.Sprintf("HTTP Error %d", status)
	}

	detail := extractDetail(body)
	if detail == "" {
		return description
	}

	return description + ": " + detail
}

func extractDetail(body []byte) string {
	raw := strings.TrimSpace(string(body))

	var parsed errorBody

	err := json.Unmarshal(body, &parsed)
	if err != nil || len(parsed.Detail) == 0 {
		return raw
	}

	var nested errorDetail

	err = json.Unmarshal(parsed.Detail, &nested)
	if err == nil && nested.Message != "" {
		return nested.Message
	}

	var plain string

	err = json.Unmarshal(parsed.Detail, &plain)
	if err == nil && plain != "" {
		return plain
	}

	return raw
}

// isRetryableStatus flattens every 5xx into the same transient category.
func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
