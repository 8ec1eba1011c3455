package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics.
// A nil *Metrics is valid and records nothing, so components can take it optionally.
type Metrics struct {
	// Outbound API metrics
	HTTPClientRequestsTotal   *prometheus.CounterVec
	HTTPClientRequestDuration *prometheus.HistogramVec
	HTTPClientRetriesTotal    prometheus.Counter

	// Journal metrics
	JournalPollsTotal  *prometheus.CounterVec
	JournalEventsTotal prometheus.Counter
	JournalSubscribers prometheus.Gauge

	// Signature metrics
	SignatureVerificationsTotal *prometheus.CounterVec
	KeyCacheLookupsTotal        *prometheus.CounterVec
	KeyFetchDuration            prometheus.Histogram

	// Webhook receiver metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPClientRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ioevents_http_client_requests_total",
				Help: "Total number of requests sent to the events API",
			},
			[]string{"method", "status"},
		),
		HTTPClientRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ioevents_http_client_request_duration_seconds",
				Help:    "Events API request duration in seconds, including retries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		HTTPClientRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ioevents_http_client_retries_total",
				Help: "Total number of retried events API requests",
			},
		),

		JournalPollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ioevents_journal_polls_total",
				Help: "Total number of journal fetches by outcome",
			},
			[]string{"outcome"},
		),
		JournalEventsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ioevents_journal_events_total",
				Help: "Total number of journal events delivered to subscribers",
			},
		),
		JournalSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ioevents_journal_subscribers",
				Help: "Number of journal subscribers currently attached",
			},
		),

		SignatureVerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ioevents_signature_verifications_total",
				Help: "Total number of webhook signature verifications by result",
			},
			[]string{"result"},
		),
		KeyCacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ioevents_keycache_lookups_total",
				Help: "Total number of public key cache lookups by result",
			},
			[]string{"result"},
		),
		KeyFetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ioevents_key_fetch_duration_seconds",
				Help:    "Public key download duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ioevents_http_requests_total",
				Help: "Total number of webhook receiver requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ioevents_http_request_duration_seconds",
				Help:    "Webhook receiver request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	registry.MustRegister(
		m.HTTPClientRequestsTotal,
		m.HTTPClientRequestDuration,
		m.HTTPClientRetriesTotal,
		m.JournalPollsTotal,
		m.JournalEventsTotal,
		m.JournalSubscribers,
		m.SignatureVerificationsTotal,
		m.KeyCacheLookupsTotal,
		m.KeyFetchDuration,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// ObserveClientRequest records one logical API call (after retries)
func (m *Metrics) ObserveClientRequest(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	statusLabel := "error"
	if status > 0 {
		statusLabel = strconv.Itoa(status)
	}
	m.HTTPClientRequestsTotal.WithLabelValues(method, statusLabel).Inc()
	m.HTTPClientRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// IncClientRetry counts one retried attempt
func (m *Metrics) IncClientRetry() {
	if m == nil {
		return
	}
	m.HTTPClientRetriesTotal.Inc()
}

// ObservePoll counts a journal fetch; outcome is one of events, empty, error
func (m *Metrics) ObservePoll(outcome string, events int) {
	if m == nil {
		return
	}
	m.JournalPollsTotal.WithLabelValues(outcome).Inc()
	if events > 0 {
		m.JournalEventsTotal.Add(float64(events))
	}
}

// SetSubscribers records the current subscriber count
func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.JournalSubscribers.Set(float64(n))
}

// ObserveVerification counts a signature verification result
func (m *Metrics) ObserveVerification(valid bool) {
	if m == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.SignatureVerificationsTotal.WithLabelValues(result).Inc()
}

// ObserveKeyLookup counts a key cache lookup; result is one of hit, miss, error
func (m *Metrics) ObserveKeyLookup(result string) {
	if m == nil {
		return
	}
	m.KeyCacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveKeyFetch records a public key download
func (m *Metrics) ObserveKeyFetch(duration time.Duration) {
	if m == nil {
		return
	}
	m.KeyFetchDuration.Observe(duration.Seconds())
}

// RouteLabel returns the matched gorilla/mux path template, falling back to
// the raw path for requests that matched no route
func RouteLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

type statusCapture struct {
	http.ResponseWriter
	status int
}

func (sc *statusCapture) WriteHeader(code int) {
	sc.status = code
	sc.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware counts and times requests by method, route template
// and status. A nil metrics returns next unchanged.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sc := &statusCapture{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sc, r)

			route := RouteLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sc.status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
