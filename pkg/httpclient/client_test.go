package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/ioevents/pkg/observability"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func fastRetry(n int) RetryConfig {
	return RetryConfig{MaxRetries: n, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.InitialDelay)
	assert.Equal(t, 2.0, cfg.BackoffMultiplier)

	fixed := RetryConfig{MaxRetries: -1}.withDefaults()
	assert.Equal(t, 0, fixed.MaxRetries)
	assert.Equal(t, time.Second, fixed.InitialDelay)
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name     string
		resp     *http.Response
		err      error
		expected bool
	}{
		{"network error", nil, errors.New("connection reset"), true},
		{"canceled", nil, context.Canceled, false},
		{"deadline", nil, context.DeadlineExceeded, false},
		{"200", &http.Response{StatusCode: 200}, nil, false},
		{"204", &http.Response{StatusCode: 204}, nil, false},
		{"400", &http.Response{StatusCode: 400}, nil, false},
		{"404", &http.Response{StatusCode: 404}, nil, false},
		{"429", &http.Response{StatusCode: 429}, nil, true},
		{"500", &http.Response{StatusCode: 500}, nil, true},
		{"503", &http.Response{StatusCode: 503}, nil, true},
		{"nil response", nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldRetry(tt.resp, tt.err))
		})
	}
}

func TestClient_Do_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	client := New(Options{Retry: fastRetry(3), Logger: quietLogger(), Metrics: metrics})

	req, err := http.NewRequest(http.MethodPost, server.URL, strings.NewReader(`{"a":1}`))
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []string{`{"a":1}`, `{"a":1}`, `{"a":1}`}, bodies, "body replayed on every attempt")
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.HTTPClientRetriesTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.HTTPClientRequestsTotal.WithLabelValues("POST", "200")))
}

func TestClient_Do_ReturnsLastResponseWhenExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(Options{Retry: fastRetry(2), Logger: quietLogger()})
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_Do_NoRetryByDefault(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(Options{Logger: quietLogger()})
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_Do_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(Options{Retry: fastRetry(3), Logger: quietLogger()})
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_Do_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := New(Options{Retry: fastRetry(1), Logger: quietLogger()})
	req, _ := http.NewRequest(http.MethodGet, url+"/path?token=secret", nil)

	_, err := client.Do(req)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret")
}

func TestClient_Do_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(Options{
		Retry:  RetryConfig{MaxRetries: 5, InitialDelay: time.Hour, MaxDelay: time.Hour},
		Logger: quietLogger(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)

	start := time.Now()
	_, err := client.Do(req)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRewind_NonReplayableBody(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "http://example.com", bytes.NewReader([]byte("x")))
	req.GetBody = nil

	_, err := rewind(req, 2)
	assert.Error(t, err)

	same, err := rewind(req, 1)
	require.NoError(t, err)
	assert.Same(t, req, same)
}

func TestNewStatusError(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusForbidden,
		Header:     http.Header{"X-Request-Id": []string{"req-1"}},
		Body:       io.NopCloser(strings.NewReader(`{"error":"nope"}`)),
	}

	err := NewStatusError(resp)
	assert.Equal(t, http.StatusForbidden, err.StatusCode)
	assert.Equal(t, "403 Forbidden", err.Status)
	assert.Equal(t, "req-1", err.RequestID)
	assert.Equal(t, `unexpected status 403 Forbidden: {"error":"nope"}`, err.Error())
}
