// Package client is an HTTP client for the hosted evaluation endpoint.
// It sends api.EvalRequest values and decodes the response into api.Evaluation.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/datar-psa/evalclient/api"
)

const (
	evalPath = "/v1/eval"

	// maxResponseBytes caps how much of a response body is read
	maxResponseBytes = 10 << 20
)

// Outcome labels passed to MetricsRecorder.ObserveRequest
const (
	StatusSuccess         = "success"
	StatusAPIError        = "api_error"
	StatusNetworkError    = "network_error"
	StatusInvalidResponse = "invalid_response"
	StatusRateLimited     = "rate_limited"
)

// MetricsRecorder receives the outcome of every Evaluate call.
// A Prometheus implementation is provided in the metrics package.
type MetricsRecorder interface {
	ObserveRequest(status string, duration time.Duration)
	AddUsage(usage api.Usage)
}

// Client calls the evaluation endpoint. It is safe for concurrent use.
type Client struct {
	http      *retryablehttp.Client
	baseURL   string
	apiKey    string
	userAgent string
	limiter   *rate.Limiter
	logger    *zap.Logger
	metrics   MetricsRecorder
}

// New creates a Client using functional options.
// Without WithAPIKey the key is read from ATLA_API_KEY; without WithBaseURL the base URL is read
// from ATLA_BASE_URL and falls back to DefaultBaseURL.
func New(opts ...func(*Options)) (*Client, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	if options.apiKey == "" {
		return nil, ErrEmptyAPIKey
	}
	baseURL, err := validateBaseURL(options.baseURL)
	if err != nil {
		return nil, err
	}

	httpClient := options.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: cleanhttp.DefaultPooledTransport(),
			Timeout:   options.timeout,
		}
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = options.maxRetries
	retryClient.RetryWaitMin = options.retryWaitMin
	retryClient.RetryWaitMax = options.retryWaitMax
	retryClient.CheckRetry = retryPolicy
	// keep the last response so a non-2xx body can be classified after retries run out
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = retryLogger{s: options.logger.Sugar()}

	var limiter *rate.Limiter
	if options.rateLimit > 0 {
		limiter = rate.NewLimiter(options.rateLimit, max(options.rateBurst, 1))
	}

	return &Client{
		http:      retryClient,
		baseURL:   baseURL,
		apiKey:    options.apiKey,
		userAgent: options.userAgent,
		limiter:   limiter,
		logger:    options.logger,
		metrics:   options.metrics,
	}, nil
}

// Evaluate sends req to the evaluation endpoint and returns the decoded Evaluation.
//
// Invalid requests fail with api.ErrInvalidRequest before anything is sent. Non-2xx responses and
// transport failures are returned as *APIError; a 2xx body that does not match the response shape
// is returned as a wrapped *api.SchemaValidationError.
func (c *Client) Evaluate(ctx context.Context, req api.EvalRequest) (*api.Evaluation, error) {
	if err := api.ValidateEvalRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()
	ev, status, err := c.evaluate(ctx, req)
	if c.metrics != nil {
		c.metrics.ObserveRequest(status, time.Since(start))
		if ev != nil {
			c.metrics.AddUsage(ev.Usage)
		}
	}
	return ev, err
}

func (c *Client) evaluate(ctx context.Context, req api.EvalRequest) (*api.Evaluation, string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, StatusRateLimited, fmt.Errorf("rate limit: %w", err)
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, StatusNetworkError, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+evalPath, body)
	if err != nil {
		return nil, StatusNetworkError, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug("sending evaluation request",
		zap.Strings("metrics", req.Metrics),
		zap.String("model", req.Model),
	)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		c.logger.Warn("evaluation request failed", zap.Error(err))
		return nil, StatusNetworkError, classifyTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, StatusNetworkError, classifyTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := classifyHTTPError(resp.StatusCode, resp.Header, data)
		c.logger.Warn("evaluation request rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("type", apiErr.Type.String()),
			zap.String("request_id", apiErr.RequestID),
		)
		return nil, StatusAPIError, apiErr
	}

	ev, err := api.DecodeEvaluation(data)
	if err != nil {
		c.logger.Warn("evaluation response did not match schema", zap.Error(err))
		return nil, StatusInvalidResponse, fmt.Errorf("failed to decode evaluation response: %w", err)
	}

	c.logger.Debug("evaluation completed",
		zap.String("model", ev.Model),
		zap.Strings("metrics", ev.Metrics()),
		zap.Int("total_tokens", ev.Usage.TotalTokens),
	)
	return ev, StatusSuccess, nil
}

// validateBaseURL ensures the URL has an http(s) scheme and a host, and strips a trailing slash
func validateBaseURL(baseURL string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidBaseURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidBaseURL)
	}
	return strings.TrimRight(parsed.String(), "/"), nil
}

// Verify that Client implements api.Evaluator
var _ api.Evaluator = (*Client)(nil)
