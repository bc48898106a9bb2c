package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status   int
		wantType ErrorType
	}{
		{http.StatusUnauthorized, ErrorTypeAuthentication},
		{http.StatusForbidden, ErrorTypeAuthentication},
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusBadRequest, ErrorTypeBadRequest},
		{http.StatusConflict, ErrorTypeBadRequest},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusUnprocessableEntity, ErrorTypeUnprocessable},
		{http.StatusRequestTimeout, ErrorTypeTimeout},
		{http.StatusServiceUnavailable, ErrorTypeServerError},
		{http.StatusMultipleChoices, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := classifyHTTPError(tt.status, http.Header{}, nil)
			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, http.StatusText(tt.status), err.Message)
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "nested error", body: `{"error": {"message": "bad key", "type": "auth"}}`, want: "bad key"},
		{name: "detail list", body: `{"detail": [{"msg": "field required"}]}`, want: "field required"},
		{name: "detail string", body: `{"detail": "nope"}`, want: "nope"},
		{name: "message", body: `{"message": "try later"}`, want: "try later"},
		{name: "error string", body: `{"error": "boom"}`, want: "boom"},
		{name: "unknown json", body: `{"code": 7}`, want: `{"code": 7}`},
		{name: "empty", body: ``, want: "Bad Request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorMessage(http.StatusBadRequest, []byte(tt.body)))
		})
	}
}

func TestClassifyTransportError(t *testing.T) {
	deadline := classifyTransportError(fmt.Errorf("post: %w", context.DeadlineExceeded))
	assert.Equal(t, ErrorTypeTimeout, deadline.Type)
	assert.True(t, errors.Is(deadline, context.DeadlineExceeded))

	canceled := classifyTransportError(context.Canceled)
	assert.Equal(t, ErrorTypeNetwork, canceled.Type)

	other := classifyTransportError(errors.New("connection refused"))
	assert.Equal(t, ErrorTypeNetwork, other.Type)
	assert.True(t, other.IsRetryable())
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Type: ErrorTypeRateLimit, StatusCode: 429, Message: "slow down"}
	assert.Equal(t, "evaluation API error (HTTP 429) [rate_limit]: slow down", err.Error())

	err = &APIError{Type: ErrorTypeNetwork, WrappedError: errors.New("dial tcp: refused")}
	assert.Equal(t, "evaluation API error [network]: dial tcp: refused", err.Error())
}

func TestRetryPolicy(t *testing.T) {
	ctx := context.Background()

	for status, want := range map[int]bool{
		http.StatusOK:                  false,
		http.StatusBadRequest:          false,
		http.StatusRequestTimeout:      true,
		http.StatusConflict:            true,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusGatewayTimeout:      true,
	} {
		retry, err := retryPolicy(ctx, &http.Response{StatusCode: status, Header: http.Header{}}, nil)
		assert.NoError(t, err)
		assert.Equal(t, want, retry, status)
	}

	header := http.Header{}
	header.Set("x-should-retry", "true")
	retry, _ := retryPolicy(ctx, &http.Response{StatusCode: http.StatusBadRequest, Header: header}, nil)
	assert.True(t, retry)

	retry, _ = retryPolicy(ctx, nil, errors.New("connection reset"))
	assert.True(t, retry)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	retry, err := retryPolicy(canceled, nil, errors.New("anything"))
	assert.False(t, retry)
	assert.ErrorIs(t, err, context.Canceled)
}
