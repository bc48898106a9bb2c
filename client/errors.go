package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrEmptyAPIKey indicates that no API key was configured or found in the environment
	ErrEmptyAPIKey = errors.New("API key cannot be empty")
	// ErrInvalidBaseURL indicates that the configured base URL cannot be used
	ErrInvalidBaseURL = errors.New("invalid base URL")
)

// ErrorType is the category of a failed evaluation call.
// It drives retry decisions and lets callers branch without parsing messages.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeAuthentication covers 401 and 403 responses
	ErrorTypeAuthentication
	ErrorTypeRateLimit
	ErrorTypeBadRequest
	ErrorTypeNotFound
	// ErrorTypeUnprocessable is returned for 422, typically an unsupported metric or model
	ErrorTypeUnprocessable
	ErrorTypeServerError
	// ErrorTypeNetwork indicates the request never produced an HTTP response
	ErrorTypeNetwork
	ErrorTypeTimeout
)

// APIError is returned for any evaluation call that did not yield a 2xx response.
type APIError struct {
	// Type classifies the error into a standard category
	Type ErrorType
	// StatusCode is the HTTP status of the response, 0 for transport failures
	StatusCode int
	// Message is the error message reported by the service or a generic description
	Message string
	// RequestID echoes the x-request-id response header when present
	RequestID string
	// Body is the raw response body
	Body []byte
	// WrappedError holds the underlying transport error, if any
	WrappedError error
}

func (e *APIError) Error() string {
	base := "evaluation API error"
	if e.StatusCode > 0 {
		base += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if t := e.Type.String(); t != "" {
		base += fmt.Sprintf(" [%s]", t)
	}
	if e.Message != "" {
		base += ": " + e.Message
	}
	if e.WrappedError != nil {
		base += fmt.Sprintf(": %v", e.WrappedError)
	}
	return base
}

func (e *APIError) Unwrap() error { return e.WrappedError }

// IsRetryable reports whether the failure is transient
func (e *APIError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeNetwork, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeAuthentication:
		return "authentication"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeBadRequest:
		return "bad_request"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeUnprocessable:
		return "unprocessable"
	case ErrorTypeServerError:
		return "server_error"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return ""
	}
}

// classifyHTTPError builds an APIError from a non-2xx response
func classifyHTTPError(statusCode int, header http.Header, body []byte) *APIError {
	var errType ErrorType
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		errType = ErrorTypeAuthentication
	case http.StatusTooManyRequests:
		errType = ErrorTypeRateLimit
	case http.StatusBadRequest:
		errType = ErrorTypeBadRequest
	case http.StatusNotFound:
		errType = ErrorTypeNotFound
	case http.StatusUnprocessableEntity:
		errType = ErrorTypeUnprocessable
	case http.StatusRequestTimeout:
		errType = ErrorTypeTimeout
	default:
		switch {
		case statusCode >= 500:
			errType = ErrorTypeServerError
		case statusCode >= 400:
			errType = ErrorTypeBadRequest
		default:
			errType = ErrorTypeUnknown
		}
	}

	return &APIError{
		Type:       errType,
		StatusCode: statusCode,
		Message:    errorMessage(statusCode, body),
		RequestID:  header.Get("x-request-id"),
		Body:       body,
	}
}

// errorMessage extracts the service message from the shapes the API is known to use:
// {"error": {"message": ...}}, {"detail": "..."}, {"detail": [{"msg": ...}]}, {"message": ...}, {"error": "..."}
func errorMessage(statusCode int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "detail.0.msg", "detail", "message", "error"} {
			if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 {
		return text
	}
	return http.StatusText(statusCode)
}

// classifyTransportError builds an APIError for a request that produced no response
func classifyTransportError(err error) *APIError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &APIError{Type: ErrorTypeTimeout, Message: "context deadline exceeded", WrappedError: err}
	case errors.Is(err, context.Canceled):
		return &APIError{Type: ErrorTypeNetwork, Message: "request canceled", WrappedError: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &APIError{Type: ErrorTypeTimeout, Message: "request timed out", WrappedError: err}
	default:
		return &APIError{Type: ErrorTypeNetwork, WrappedError: err}
	}
}
