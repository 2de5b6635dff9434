package httputils

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter ratelimit.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.limiter.Take()
	return t.base.RoundTrip(req)
}

// leveledLogger routes retryablehttp logging to logrus at trace level and up.
type leveledLogger struct {
	log *logrus.Entry
}

func (l leveledLogger) fields(keysAndValues []interface{}) *logrus.Entry {
	entry := l.log
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if k, ok := keysAndValues[i].(string); ok {
			entry = entry.WithField(k, keysAndValues[i+1])
		}
	}
	return entry
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Error(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Warn(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Trace(msg)
}

// NewRetryableHttpClient returns a standard client that retries failed requests
// and waits on rl before every attempt.
func NewRetryableHttpClient(timeout time.Duration, rl ratelimit.Limiter, log *logrus.Entry) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = leveledLogger{log: log}

	base := retryClient.HTTPClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	retryClient.HTTPClient.Timeout = timeout
	retryClient.HTTPClient.Transport = &rateLimitedTransport{base: base, limiter: rl}

	return retryClient.StandardClient()
}
