package client

import (
	"context"
	"crypto/x509"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"slices"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

var (
	// net/http does not type these errors, so they are matched on the message
	redirectsErrorRe = regexp.MustCompile(`stopped after \d+ redirects\z`)
	schemeErrorRe    = regexp.MustCompile(`unsupported protocol scheme`)

	retryableStatusCodes = []int{
		http.StatusRequestTimeout,
		http.StatusConflict,
		http.StatusTooManyRequests,
	}
)

// retryPolicy retries transport failures, 408/409/429 and any 5xx.
// The service can override the decision with an x-should-retry header.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			if redirectsErrorRe.MatchString(urlErr.Error()) {
				return false, nil
			}
			if schemeErrorRe.MatchString(urlErr.Error()) {
				return false, nil
			}
			var unknownAuthority x509.UnknownAuthorityError
			if errors.As(urlErr.Err, &unknownAuthority) {
				return false, nil
			}
		}
		return true, nil
	}

	switch resp.Header.Get("x-should-retry") {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}

	return isRetryableStatus(resp.StatusCode), nil
}

func isRetryableStatus(status int) bool {
	return status >= 500 || slices.Contains(retryableStatusCodes, status)
}

// retryLogger routes retryablehttp diagnostics to zap
type retryLogger struct {
	s *zap.SugaredLogger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}

var _ retryablehttp.LeveledLogger = retryLogger{}
