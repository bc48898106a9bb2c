package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/datar-psa/evalclient/api"
)

const okBody = `{"id": "eval-1", "created": 1717000000, "model": "atla-selene",
	"evaluations": {"recall": {"score": 4, "critique": "Most facts recalled."}},
	"usage": {"evaluation_tokens": 12, "prompt_tokens": 30, "total_tokens": 42}}`

var testRequest = api.EvalRequest{
	Input:    "What is the capital of France?",
	Response: "Paris",
	Metrics:  []string{"recall"},
}

// fakeMetrics records what the client reports
type fakeMetrics struct {
	mu       sync.Mutex
	statuses []string
	usage    []api.Usage
}

func (f *fakeMetrics) ObserveRequest(status string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
}

func (f *fakeMetrics) AddUsage(usage api.Usage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usage = append(f.usage, usage)
}

func newTestClient(t *testing.T, url string, opts ...func(*Options)) *Client {
	t.Helper()
	base := []func(*Options){
		WithAPIKey("test-key"),
		WithBaseURL(url),
		WithRetryWait(time.Millisecond, 5*time.Millisecond),
	}
	c, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func TestClient_Evaluate_Success(t *testing.T) {
	var got api.EvalRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/eval", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okBody))
	}))
	defer server.Close()

	recorder := &fakeMetrics{}
	c := newTestClient(t, server.URL+"/", WithMetrics(recorder))

	ev, err := c.Evaluate(context.Background(), testRequest)
	require.NoError(t, err)

	assert.Equal(t, testRequest, got)
	assert.Equal(t, "atla-selene", ev.Model)
	assert.Equal(t, 4, ev.Evaluations["recall"].Score)
	assert.Equal(t, 42, ev.Usage.TotalTokens)
	require.NotNil(t, ev.ID)
	assert.Equal(t, "eval-1", *ev.ID)

	assert.Equal(t, []string{StatusSuccess}, recorder.statuses)
	assert.Equal(t, []api.Usage{{EvaluationTokens: 12, PromptTokens: 30, TotalTokens: 42}}, recorder.usage)
}

func TestClient_Evaluate_InvalidRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Evaluate(context.Background(), api.EvalRequest{Input: "q", Response: "a"})
	assert.ErrorIs(t, err, api.ErrInvalidRequest)
	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_Evaluate_APIErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		header      map[string]string
		maxRetries  int
		wantType    ErrorType
		wantMessage string
		wantCalls   int32
		wantRetry   bool
	}{
		{
			name:        "unauthorized is not retried",
			status:      http.StatusUnauthorized,
			body:        `{"error": {"message": "invalid api key"}}`,
			maxRetries:  2,
			wantType:    ErrorTypeAuthentication,
			wantMessage: "invalid api key",
			wantCalls:   1,
		},
		{
			name:        "validation detail list",
			status:      http.StatusUnprocessableEntity,
			body:        `{"detail": [{"loc": ["body", "metrics"], "msg": "unknown metric: verbosity"}]}`,
			maxRetries:  2,
			wantType:    ErrorTypeUnprocessable,
			wantMessage: "unknown metric: verbosity",
			wantCalls:   1,
		},
		{
			name:        "detail string",
			status:      http.StatusNotFound,
			body:        `{"detail": "Not Found"}`,
			maxRetries:  2,
			wantType:    ErrorTypeNotFound,
			wantMessage: "Not Found",
			wantCalls:   1,
		},
		{
			name:        "rate limit retried until exhausted",
			status:      http.StatusTooManyRequests,
			body:        `{"message": "slow down"}`,
			maxRetries:  1,
			wantType:    ErrorTypeRateLimit,
			wantMessage: "slow down",
			wantCalls:   2,
			wantRetry:   true,
		},
		{
			name:        "server error with plain body",
			status:      http.StatusBadGateway,
			body:        `upstream unavailable`,
			maxRetries:  2,
			wantType:    ErrorTypeServerError,
			wantMessage: "upstream unavailable",
			wantCalls:   3,
			wantRetry:   true,
		},
		{
			name:        "server asks not to retry",
			status:      http.StatusInternalServerError,
			body:        ``,
			header:      map[string]string{"x-should-retry": "false"},
			maxRetries:  2,
			wantType:    ErrorTypeServerError,
			wantMessage: "Internal Server Error",
			wantCalls:   1,
			wantRetry:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.Header().Set("x-request-id", "req-42")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			recorder := &fakeMetrics{}
			c := newTestClient(t, server.URL, WithMaxRetries(tt.maxRetries), WithMetrics(recorder))

			ev, err := c.Evaluate(context.Background(), testRequest)
			require.Error(t, err)
			assert.Nil(t, ev)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantType, apiErr.Type)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, "req-42", apiErr.RequestID)
			assert.Equal(t, tt.wantRetry, apiErr.IsRetryable())
			assert.Equal(t, tt.wantCalls, calls.Load())
			assert.Equal(t, []string{StatusAPIError}, recorder.statuses)
			assert.Empty(t, recorder.usage)
		})
	}
}

func TestClient_Evaluate_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(okBody))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	ev, err := c.Evaluate(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, "atla-selene", ev.Model)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Evaluate_SchemaMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"evaluations": {}, "usage": {"evaluation_tokens": 1, "prompt_tokens": 1, "total_tokens": 2}}`))
	}))
	defer server.Close()

	recorder := &fakeMetrics{}
	c := newTestClient(t, server.URL, WithMetrics(recorder))

	_, err := c.Evaluate(context.Background(), testRequest)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrSchemaValidation)

	var schemaErr *api.SchemaValidationError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "model", schemaErr.Field)
	assert.Equal(t, []string{StatusInvalidResponse}, recorder.statuses)
}

func TestClient_Evaluate_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Evaluate(ctx, testRequest)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Evaluate_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okBody))
	}))
	defer server.Close()

	recorder := &fakeMetrics{}
	c := newTestClient(t, server.URL, WithRateLimit(rate.Every(time.Hour), 1), WithMetrics(recorder))

	_, err := c.Evaluate(context.Background(), testRequest)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Evaluate(ctx, testRequest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
	assert.Equal(t, []string{StatusSuccess, StatusRateLimited}, recorder.statuses)
}

func TestClient_Evaluate_Logging(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okBody))
	}))
	defer server.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	c := newTestClient(t, server.URL, WithLogger(zap.New(core)))

	_, err := c.Evaluate(context.Background(), testRequest)
	require.NoError(t, err)

	completed := logs.FilterMessage("evaluation completed").All()
	require.Len(t, completed, 1)
	assert.Equal(t, "atla-selene", completed[0].ContextMap()["model"])
	assert.Equal(t, int64(42), completed[0].ContextMap()["total_tokens"])
}

func TestNew(t *testing.T) {
	t.Run("api key from environment", func(t *testing.T) {
		t.Setenv(APIKeyEnv, "env-key")
		t.Setenv(BaseURLEnv, "https://eval.example.com/")
		c, err := New()
		require.NoError(t, err)
		assert.Equal(t, "env-key", c.apiKey)
		assert.Equal(t, "https://eval.example.com", c.baseURL)
	})

	t.Run("default base url", func(t *testing.T) {
		t.Setenv(BaseURLEnv, "")
		c, err := New(WithAPIKey("k"))
		require.NoError(t, err)
		assert.Equal(t, DefaultBaseURL, c.baseURL)
	})

	t.Run("missing api key", func(t *testing.T) {
		t.Setenv(APIKeyEnv, "")
		_, err := New()
		assert.ErrorIs(t, err, ErrEmptyAPIKey)
	})

	t.Run("invalid base url", func(t *testing.T) {
		for _, u := range []string{"ftp://example.com", "example.com", "https://", "://bad"} {
			_, err := New(WithAPIKey("k"), WithBaseURL(u))
			assert.ErrorIs(t, err, ErrInvalidBaseURL, u)
		}
	})
}
