package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/book-expert/speech-mcp/internal/apiclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey    = "test-key"
	testBaseDelay = 100 * time.Millisecond
)

// sleepRecorder captures backoff waits instead of sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.delays = append(r.delays, d)

	return nil
}

func (r *sleepRecorder) total() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sum time.Duration
	for _, d := range r.delays {
		sum += d
	}

	return sum
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]time.Duration(nil), r.delays...)
}

// recordingLogger collects retry diagnostics.
type recordingLogger struct {
	mu    sync.Mutex
	lines int
}

func (l *recordingLogger) Warn(_ string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lines++
}

func newTestClient(
	t *testing.T,
	baseURL string,
	maxRetries int,
	opts ...apiclient.Option,
) (*apiclient.Client, *sleepRecorder) {
	t.Helper()

	recorder := &sleepRecorder{mu: sync.Mutex{}, delays: nil}

	allOpts := append([]apiclient.Option{
		apiclient.WithBaseURL(baseURL),
		apiclient.WithSleep(recorder.sleep),
		apiclient.WithHTTPClient(&http.Client{
			Timeout:   5 * time.Second,
			Transport: &http.Transport{DisableKeepAlives: true},
		}),
	}, opts...)

	client, err := apiclient.NewClient(apiclient.Config{
		APIKey:     testAPIKey,
		MaxRetries: maxRetries,
		RetryDelay: testBaseDelay,
		Timeout:    5 * time.Second,
	}, allOpts...)
	require.NoError(t, err)

	return client, recorder
}

// statusSequence answers with the given statuses in order, then 200 + body.
func statusSequence(t *testing.T, calls *atomic.Int32, statuses []int, body string) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, _ *http.Request) {
		call := int(calls.Add(1)) - 1
		if call < len(statuses) {
			w.WriteHeader(statuses[call])

			return
		}

		w.WriteHeader(http.StatusOK)

		_, err := io.WriteString(w, body)
		if err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := apiclient.NewClient(apiclient.Config{
		APIKey:     "",
		MaxRetries: 3,
		RetryDelay: time.Second,
		Timeout:    0,
	})
	require.Error(t, err)

	var cfgErr *apiclient.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, apiclient.EnvAPIKey, cfgErr.Field)
}

func TestNewClient_RejectsNegativeRetries(t *testing.T) {
	t.Parallel()

	_, err := apiclient.NewClient(apiclient.Config{
		APIKey:     testAPIKey,
		MaxRetries: -1,
		RetryDelay: time.Second,
		Timeout:    0,
	})

	var cfgErr *apiclient.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestExecute_SuccessFirstAttempt(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/voices", r.URL.Path)
		assert.Equal(t, testAPIKey, r.Header.Get(apiclient.HeaderAPIKey))
		assert.Empty(t, r.Header.Get("Content-Type"))

		_, err := io.WriteString(w, `{"voices":[]}`)
		assert.NoError(t, err)
	}))
	defer server.Close()

	client, recorder := newTestClient(t, server.URL, 3)

	result, err := client.Execute(context.Background(), apiclient.Request{
		Path:         "/voices",
		Method:       http.MethodGet,
		Body:         nil,
		Headers:      nil,
		ResponseType: apiclient.ResponseJSON,
		Into:         nil,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"voices": []any{}}, result.Data)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, recorder.recorded())
}

func TestExecute_RetriesTransientStatuses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		statuses []int
	}{
		{name: "single 429", statuses: []int{http.StatusTooManyRequests}},
		{name: "500 then 503", statuses: []int{http.StatusInternalServerError, http.StatusServiceUnavailable}},
		{name: "502 502 504", statuses: []int{http.StatusBadGateway, http.StatusBadGateway, http.StatusGatewayTimeout}},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32

			server := httptest.NewServer(statusSequence(t, &calls, testCase.statuses, `{"ok":true}`))
			defer server.Close()

			client, recorder := newTestClient(t, server.URL, 3)

			var out struct {
				OK bool `json:"ok"`
			}

			err := client.Get(context.Background(), "/models", &out)
			require.NoError(t, err)

			k := len(testCase.statuses)
			assert.True(t, out.OK)
			assert.Equal(t, int32(k+1), calls.Load())

			var want time.Duration
			for i := range k {
				want += time.Duration(1<<i) * testBaseDelay
			}

			assert.Equal(t, want, recorder.total())
		})
	}
}

func TestExecute_RetryExhaustion(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"detail":{"message":"boom"}}`)
	}))
	defer server.Close()

	log := &recordingLogger{mu: sync.Mutex{}, lines: 0}
	client, recorder := newTestClient(t, server.URL, 2, apiclient.WithLogger(log))

	_, err := client.Execute(context.Background(), apiclient.Request{
		Path:         "/voices",
		Method:       http.MethodGet,
		Body:         nil,
		Headers:      nil,
		ResponseType: apiclient.ResponseJSON,
		Into:         nil,
	})

	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.True(t, apiErr.Terminal)
	assert.Equal(t, "Internal Server Error: boom", apiErr.Message)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{testBaseDelay, 2 * testBaseDelay}, recorder.recorded())
	assert.Equal(t, 2, log.lines)
}

func TestExecute_NonRetryableStatus(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(status)
			}))
			defer server.Close()

			client, recorder := newTestClient(t, server.URL, 5)

			_, err := client.PostForBytes(context.Background(), "/text-to-speech/abc", map[string]string{"text": "hi"})

			var apiErr *apiclient.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, status, apiErr.StatusCode)
			assert.True(t, apiErr.Terminal)
			assert.Equal(t, int32(1), calls.Load())
			assert.Empty(t, recorder.recorded())
		})
	}
}

func TestExecute_ZeroRetriesMakesSingleAttempt(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(statusSequence(t, &calls, []int{http.StatusTooManyRequests}, `{}`))
	defer server.Close()

	client, recorder := newTestClient(t, server.URL, 0)

	err := client.Get(context.Background(), "/user/subscription", nil)

	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "Too Many Requests - Rate limit exceeded", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, recorder.recorded())
}

func TestExecute_TransportFaultRetry(t *testing.T) {
	t.Parallel()

	const failures = 2

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		call := calls.Add(1)
		if call <= failures {
			hijacker, ok := w.(http.Hijacker)
			if !ok {
				t.Errorf("response writer does not support hijacking")

				return
			}

			conn, _, err := hijacker.Hijack()
			if err != nil {
				t.Errorf("hijack failed: %v", err)

				return
			}

			_ = conn.Close()

			return
		}

		_, _ = w.Write([]byte{0x49, 0x44, 0x33})
	}))
	defer server.Close()

	client, recorder := newTestClient(t, server.URL, 3)

	audio, err := client.PostForBytes(context.Background(), "/text-to-speech/v1", map[string]string{"text": "hi"})
	require.NoError(t, err)

	assert.Equal(t, []byte{0x49, 0x44, 0x33}, audio)
	assert.Equal(t, int32(failures+1), calls.Load())
	assert.Equal(t, []time.Duration{testBaseDelay, 2 * testBaseDelay}, recorder.recorded())
}

func TestExecute_TransportFaultExhaustion(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client, recorder := newTestClient(t, baseURL, 1)

	err := client.Get(context.Background(), "/voices", nil)

	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, apiErr.HasStatus())
	assert.True(t, apiErr.Terminal)
	assert.Contains(t, apiErr.Message, "after 2 attempts")
	assert.True(t, apiclient.IsTransportError(err))
	assert.Len(t, recorder.recorded(), 1)
}

func TestExecute_RawBytesPassthrough(t *testing.T) {
	t.Parallel()

	payload := []byte{0xff, 0xfb, 0x00, 0x10, '{', 0x80, 0xfe}

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := calls.Add(1)
		if call == 1 {
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		var body map[string]string

		err := json.NewDecoder(r.Body).Decode(&body)
		assert.NoError(t, err)
		assert.Equal(t, "hi", body["text"])
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	client, recorder := newTestClient(t, server.URL, 3)

	result, err := client.Execute(context.Background(), apiclient.Request{
		Path:         "/text-to-speech/v1",
		Method:       http.MethodPost,
		Body:         map[string]string{"text": "hi"},
		Headers:      nil,
		ResponseType: apiclient.ResponseBytes,
		Into:         nil,
	})
	require.NoError(t, err)

	assert.Equal(t, payload, result.Bytes)
	assert.Nil(t, result.Data)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{testBaseDelay}, recorder.recorded())
}

func TestExecute_ContentTypeOverrideWins(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))
		assert.Equal(t, "custom", r.Header.Get("X-Trace"))
		assert.Equal(t, testAPIKey, r.Header.Get(apiclient.HeaderAPIKey))
		_, _ = io.WriteString(w, `{}`)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, 0)

	_, err := client.Execute(context.Background(), apiclient.Request{
		Path:   "/sound-generation",
		Method: http.MethodPost,
		Body:   map[string]string{"text": "rain"},
		Headers: map[string]string{
			"Content-Type": "text/plain",
			"X-Trace":      "custom",
		},
		ResponseType: apiclient.ResponseJSON,
		Into:         nil,
	})
	require.NoError(t, err)
}

func TestExecute_DecodeErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, "not json")
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, 3)

	err := client.Get(context.Background(), "/models", nil)

	var decodeErr *apiclient.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "/models", decodeErr.Path)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExecute_Preconditions(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, "http://127.0.0.1:1", 0)

	_, err := client.Execute(context.Background(), apiclient.Request{
		Path:         "",
		Method:       http.MethodGet,
		Body:         nil,
		Headers:      nil,
		ResponseType: apiclient.ResponseJSON,
		Into:         nil,
	})
	require.ErrorIs(t, err, apiclient.ErrInvalidRequest)

	_, err = client.Execute(context.Background(), apiclient.Request{
		Path:         "/voices",
		Method:       http.MethodGet,
		Body:         map[string]string{"a": "b"},
		Headers:      nil,
		ResponseType: apiclient.ResponseJSON,
		Into:         nil,
	})
	require.ErrorIs(t, err, apiclient.ErrInvalidRequest)

	for _, method := range []string{"BAD METHOD", http.MethodPatch, http.MethodHead} {
		_, err = client.Execute(context.Background(), apiclient.Request{
			Path:         "/voices",
			Method:       method,
			Body:         nil,
			Headers:      nil,
			ResponseType: apiclient.ResponseJSON,
			Into:         nil,
		})
		require.ErrorIs(t, err, apiclient.ErrInvalidRequest, "method %q", method)
		assert.False(t, apiclient.IsTransportError(err))
	}
}

func TestExecute_RequestBuildFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	client, recorder := newTestClient(t, "http://bad host\x7f", 3)

	err := client.Get(context.Background(), "/voices", nil)
	require.ErrorIs(t, err, apiclient.ErrInvalidRequest)
	assert.False(t, apiclient.IsTransportError(err))
	assert.Empty(t, recorder.recorded())
}

func TestExecute_TruncatedBodyIsTransportFault(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "partial")

		hijacker, ok := w.(http.Hijacker)
		if !ok {
			t.Errorf("response writer does not support hijacking")

			return
		}

		conn, buffered, err := hijacker.Hijack()
		if err != nil {
			t.Errorf("hijack failed: %v", err)

			return
		}

		_ = buffered.Flush()
		_ = conn.Close()
	}))
	defer server.Close()

	client, recorder := newTestClient(t, server.URL, 2)

	_, err := client.PostForBytes(context.Background(), "/text-to-speech/v1", map[string]string{"text": "hi"})

	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, apiErr.HasStatus())
	assert.True(t, apiclient.IsTransportError(err))
	assert.Contains(t, apiErr.Message, "after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{testBaseDelay, 2 * testBaseDelay}, recorder.recorded())
}

func TestExecute_LongRetryBudgetNeverGoesNegative(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	recorder := &sleepRecorder{mu: sync.Mutex{}, delays: nil}

	client, err := apiclient.NewClient(apiclient.Config{
		APIKey:     testAPIKey,
		MaxRetries: 40,
		RetryDelay: time.Second,
		Timeout:    5 * time.Second,
	}, apiclient.WithBaseURL(server.URL), apiclient.WithSleep(recorder.sleep))
	require.NoError(t, err)

	err = client.Get(context.Background(), "/voices", nil)

	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)

	delays := recorder.recorded()
	require.Len(t, delays, 40)
	assert.Equal(t, time.Second<<33, delays[33])

	for i := 1; i < len(delays); i++ {
		assert.GreaterOrEqual(t, delays[i], delays[i-1], "delay %d", i)
	}

	assert.Equal(t, time.Duration(math.MaxInt64), delays[39])
}

func TestPost_DecodesJSONInto(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/voices/add", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Narrator", body["name"])

		_, _ = io.WriteString(w, `{"voice_id":"v-123","requires_verification":false}`)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, 0)

	var out struct {
		VoiceID string `json:"voice_id"`
	}

	err := client.Post(context.Background(), "/voices/add", map[string]string{"name": "Narrator"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "v-123", out.VoiceID)
}

func TestExecute_CancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())

	client, err := apiclient.NewClient(apiclient.Config{
		APIKey:     testAPIKey,
		MaxRetries: 5,
		RetryDelay: time.Hour,
		Timeout:    5 * time.Second,
	},
		apiclient.WithBaseURL(server.URL),
		apiclient.WithSleep(func(sleepCtx context.Context, _ time.Duration) error {
			cancel()
			<-sleepCtx.Done()

			return sleepCtx.Err()
		}),
	)
	require.NoError(t, err)

	err = client.Get(ctx, "/voices", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int32(1), calls.Load())
}

func TestExecute_ConcurrentCallsDoNotBlockEachOther(t *testing.T) {
	t.Parallel()

	slow := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		_, _ = io.WriteString(w, `{"fast":true}`)
	}))
	defer server.Close()

	client, err := apiclient.NewClient(apiclient.Config{
		APIKey:     testAPIKey,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		Timeout:    5 * time.Second,
	},
		apiclient.WithBaseURL(server.URL),
		apiclient.WithSleep(func(_ context.Context, _ time.Duration) error {
			<-slow

			return nil
		}),
	)
	require.NoError(t, err)

	slowDone := make(chan error, 1)

	go func() {
		slowDone <- client.Get(context.Background(), "/slow", nil)
	}()

	err = client.Get(context.Background(), "/fast", nil)
	require.NoError(t, err)

	close(slow)

	var apiErr *apiclient.APIError
	require.ErrorAs(t, <-slowDone, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}
