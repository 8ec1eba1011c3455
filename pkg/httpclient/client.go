package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/ioevents/pkg/observability"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxRetries        int           `json:"max_retries" yaml:"max_retries"`
	InitialDelay      time.Duration `json:"initial_delay" yaml:"initial_delay"`
	MaxDelay          time.Duration `json:"max_delay" yaml:"max_delay"`
	BackoffMultiplier float64       `json:"backoff_multiplier" yaml:"backoff_multiplier"`
}

// DefaultRetryConfig returns the default retry configuration: no retries,
// backoff starting at one second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        0,
		InitialDelay:      1 * time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = def.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.BackoffMultiplier <= 1.0 {
		c.BackoffMultiplier = def.BackoffMultiplier
	}
	return c
}

// Options configures a Client
type Options struct {
	// HTTPClient is the underlying client; its transport is wrapped with otelhttp.
	HTTPClient *http.Client
	Timeout    time.Duration
	Retry      RetryConfig
	Logger     *logrus.Logger
	Metrics    *observability.Metrics
}

// Client sends HTTP requests, retrying on network errors, 429 and 5xx
type Client struct {
	http    *http.Client
	retry   RetryConfig
	logger  *logrus.Logger
	metrics *observability.Metrics
}

// New creates a retrying client
func New(opts Options) *Client {
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{}
	}

	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	wrapped := *base
	wrapped.Transport = otelhttp.NewTransport(transport)
	if opts.Timeout > 0 {
		wrapped.Timeout = opts.Timeout
	}

	return &Client{
		http:    &wrapped,
		retry:   opts.Retry.withDefaults(),
		logger:  observability.OrDefault(opts.Logger),
		metrics: opts.Metrics,
	}
}

// ShouldRetry reports whether a response or transport error is worth retrying.
// Context cancellation is never retried.
func ShouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil {
		return false
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
}

var errRetryableStatus = errors.New("retryable status")

// Do sends req, retrying up to MaxRetries times. The request body is replayed
// through req.GetBody, so bodies must come from http.NewRequest with a
// bytes/strings reader. After the last attempt the final response is returned
// as is, whatever its status.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	start := time.Now()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retry.InitialDelay
	policy.MaxInterval = c.retry.MaxDelay
	policy.Multiplier = c.retry.BackoffMultiplier
	policy.MaxElapsedTime = 0

	var (
		resp    *http.Response
		attempt int
	)

	operation := func() error {
		attempt++
		attemptReq, err := rewind(req, attempt)
		if err != nil {
			return backoff.Permanent(err)
		}

		r, err := c.http.Do(attemptReq)
		if err != nil {
			if !ShouldRetry(nil, err) {
				return backoff.Permanent(err)
			}
			return err
		}

		if ShouldRetry(r, nil) && attempt <= c.retry.MaxRetries {
			drain(r)
			return fmt.Errorf("%w: %s", errRetryableStatus, r.Status)
		}

		resp = r
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.metrics.IncClientRetry()
		c.logger.WithFields(logrus.Fields{
			"method":  req.Method,
			"url":     redactURL(req),
			"attempt": attempt,
			"wait":    wait,
		}).WithError(err).Debug("Retrying request")
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.retry.MaxRetries)), ctx)
	err := backoff.RetryNotify(operation, b, notify)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.metrics.ObserveClientRequest(req.Method, status, time.Since(start))

	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, redactURL(req), err)
	}
	return resp, nil
}

// rewind returns the request to send for the given attempt.
// The first attempt reuses req; later ones get a fresh body.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed for retry")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewind request body: %w", err)
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// redactURL drops the query string, which may carry journal positions or credentials
func redactURL(req *http.Request) string {
	if req.URL == nil {
		return ""
	}
	u := *req.URL
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
