// Package metricsx holds the Prometheus collectors shared by the identity
// provider and the protected API.
package metricsx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a private registry plus the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	tokens   *prometheus.CounterVec
	authn    *prometheus.CounterVec
}

// New registers the collectors for service under a fresh registry, so tests
// and multiple servers in one process do not collide.
func New(service string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	constLabels := prometheus.Labels{"service": service}
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "docsauth",
			Name:        "http_requests_total",
			Help:        "HTTP requests by route and status code.",
			ConstLabels: constLabels,
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "docsauth",
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency by route.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "docsauth",
			Name:        "tokens_issued_total",
			Help:        "Tokens issued by grant type and client.",
			ConstLabels: constLabels,
		}, []string{"grant_type", "client_id"}),
		authn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "docsauth",
			Name:        "bearer_authentications_total",
			Help:        "Bearer token checks by strategy and outcome.",
			ConstLabels: constLabels,
		}, []string{"strategy", "outcome"}),
	}
	reg.MustRegister(m.requests, m.duration, m.tokens, m.authn)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// TokenIssued counts one successful token response.
func (m *Metrics) TokenIssued(grantType, clientID string) {
	if m == nil {
		return
	}
	m.tokens.WithLabelValues(grantType, clientID).Inc()
}

// BearerChecked counts one bearer token verification.
func (m *Metrics) BearerChecked(strategy string, ok bool) {
	if m == nil {
		return
	}
	outcome := "rejected"
	if ok {
		outcome = "accepted"
	}
	m.authn.WithLabelValues(strategy, outcome).Inc()
}

// Middleware records request counts and latency. The route label is the
// matched pattern (ServeMux) or the value returned by route, so path
// parameters do not explode cardinality.
func (m *Metrics) Middleware(route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			name := r.Pattern
			if route != nil {
				name = route(r)
			}
			if name == "" {
				name = "unmatched"
			}
			m.requests.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
			m.duration.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Unwrap() http.ResponseWriter { return w.ResponseWriter }
