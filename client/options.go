package client

import (
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the production endpoint of the evaluation service
	DefaultBaseURL = "https://api.atla-ai.com"
	// DefaultTimeout bounds a single HTTP attempt
	DefaultTimeout = 60 * time.Second
	// DefaultMaxRetries is the number of retries after the first attempt
	DefaultMaxRetries = 2

	// APIKeyEnv and BaseURLEnv are read when no explicit option is given
	APIKeyEnv  = "ATLA_API_KEY"
	BaseURLEnv = "ATLA_BASE_URL"
)

// Options configures Client creation
type Options struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	maxRetries   int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	rateLimit    rate.Limit
	rateBurst    int
	logger       *zap.Logger
	metrics      MetricsRecorder
	userAgent    string
}

func defaultOptions() *Options {
	baseURL := os.Getenv(BaseURLEnv)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Options{
		apiKey:       os.Getenv(APIKeyEnv),
		baseURL:      baseURL,
		timeout:      DefaultTimeout,
		maxRetries:   DefaultMaxRetries,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 8 * time.Second,
		logger:       zap.NewNop(),
		userAgent:    "evalclient-go",
	}
}

// WithAPIKey sets the API key sent as a bearer token
func WithAPIKey(key string) func(*Options) {
	return func(opts *Options) {
		opts.apiKey = key
	}
}

// WithBaseURL overrides the service base URL (scheme and host, optionally a path prefix)
func WithBaseURL(baseURL string) func(*Options) {
	return func(opts *Options) {
		opts.baseURL = baseURL
	}
}

// WithHTTPClient sets the underlying HTTP client. Its Timeout takes precedence over WithTimeout.
func WithHTTPClient(client *http.Client) func(*Options) {
	return func(opts *Options) {
		opts.httpClient = client
	}
}

// WithTimeout sets the per-attempt timeout
func WithTimeout(timeout time.Duration) func(*Options) {
	return func(opts *Options) {
		opts.timeout = timeout
	}
}

// WithMaxRetries sets how many times a failed attempt is retried; 0 disables retries
func WithMaxRetries(n int) func(*Options) {
	return func(opts *Options) {
		if n >= 0 {
			opts.maxRetries = n
		}
	}
}

// WithRetryWait sets the backoff bounds between retries
func WithRetryWait(minWait, maxWait time.Duration) func(*Options) {
	return func(opts *Options) {
		opts.retryWaitMin = minWait
		opts.retryWaitMax = maxWait
	}
}

// WithRateLimit paces requests with a token bucket of the given rate and burst
func WithRateLimit(limit rate.Limit, burst int) func(*Options) {
	return func(opts *Options) {
		opts.rateLimit = limit
		opts.rateBurst = burst
	}
}

// WithLogger sets the logger used for request and retry diagnostics
func WithLogger(logger *zap.Logger) func(*Options) {
	return func(opts *Options) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

// WithMetrics sets a recorder notified after every Evaluate call
func WithMetrics(recorder MetricsRecorder) func(*Options) {
	return func(opts *Options) {
		opts.metrics = recorder
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(userAgent string) func(*Options) {
	return func(opts *Options) {
		opts.userAgent = userAgent
	}
}
