package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics keeps Prometheus collectors for scraping plus in-memory counters
// for the system-info endpoint.
type Metrics struct {
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	denialsTotal    *prometheus.CounterVec

	mu           sync.Mutex
	startedAt    time.Time
	totalLatency time.Duration
	requestCount map[string]int64
	errorCount   map[string]int64
	denials      map[int]int64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	StartedAt      time.Time        `json:"startedAt"`
	Uptime         string           `json:"uptime"`
	TotalRequests  int64            `json:"totalRequests"`
	AverageLatency string           `json:"averageLatency"`
	Requests       map[string]int64 `json:"requests"`
	Errors         map[string]int64 `json:"errors"`
	Unauthorized   int64            `json:"unauthorized"`
	Forbidden      int64            `json:"forbidden"`
}

// NewMetrics initializes the registry and counters.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "user_service_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "user_service_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	denials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "user_service_auth_denials_total",
		Help: "Requests rejected by the authentication (401) or authorization (403) filters.",
	}, []string{"code"})
	registry.MustRegister(requests, duration, denials)

	return &Metrics{
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		denialsTotal:    denials,
		startedAt:       time.Now().UTC(),
		requestCount:    make(map[string]int64),
		errorCount:      make(map[string]int64),
		denials:         make(map[int]int64),
	}
}

// Handler returns the Prometheus exposition handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestsTotal.WithLabelValues(path, method, code).Inc()
	m.requestDuration.WithLabelValues(path).Observe(duration.Seconds())
	denied := status == http.StatusUnauthorized || status == http.StatusForbidden
	if denied {
		m.denialsTotal.WithLabelValues(code).Inc()
	}

	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.totalLatency += duration
	if denied {
		m.denials[status]++
	}
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{Requests: map[string]int64{}, Errors: map[string]int64{}}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		StartedAt:    m.startedAt,
		Uptime:       time.Since(m.startedAt).Truncate(time.Second).String(),
		Requests:     make(map[string]int64, len(m.requestCount)),
		Errors:       make(map[string]int64, len(m.errorCount)),
		Unauthorized: m.denials[http.StatusUnauthorized],
		Forbidden:    m.denials[http.StatusForbidden],
	}
	for k, v := range m.requestCount {
		snap.Requests[k] = v
		snap.TotalRequests += v
	}
	for k, v := range m.errorCount {
		snap.Errors[k] = v
	}
	var avg time.Duration
	if snap.TotalRequests > 0 {
		avg = m.totalLatency / time.Duration(snap.TotalRequests)
	}
	snap.AverageLatency = avg.String()
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
