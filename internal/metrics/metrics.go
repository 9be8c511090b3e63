package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build several instances.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry   *prom.Registry
	authEvents *prom.CounterVec
	emails     *prom.CounterVec
	requests   *prom.CounterVec
	latency    *prom.HistogramVec
}

func New() *Metrics {
	registry := prom.NewRegistry()
	m := &Metrics{
		registry: registry,
		authEvents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "lhc",
			Name:      "auth_events_total",
			Help:      "Authentication and account events by outcome.",
		}, []string{"event", "result"}),
		emails: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "lhc",
			Name:      "emails_total",
			Help:      "Outbound emails by kind and outcome.",
		}, []string{"kind", "result"}),
		requests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "lhc",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		latency: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "lhc",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prom.DefBuckets,
		}, []string{"method", "route"}),
	}
	registry.MustRegister(
		m.authEvents, m.emails, m.requests, m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prom.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// AuthEvent counts an auth or account event, e.g. ("login", "failure").
func (m *Metrics) AuthEvent(event, result string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(event, result).Inc()
}

// Email counts a delivery attempt of the given kind.
func (m *Metrics) Email(kind string, err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.emails.WithLabelValues(kind, result).Inc()
}

// Middleware records request counts and latency by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
