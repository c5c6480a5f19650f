package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles prometheus collectors used by the web server.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	LandingViews       prometheus.Counter
	LandingNotModified prometheus.Counter
	RenderErrors       prometheus.Counter
	RateLimitDropped   prometheus.Counter
	PanicsRecovered    prometheus.Counter
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "infofi_web_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "infofi_web_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		LandingViews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "infofi_web_landing_views_total",
			Help: "Total number of landing page renders served with 200.",
		}),
		LandingNotModified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "infofi_web_landing_not_modified_total",
			Help: "Total number of landing page requests answered with 304.",
		}),
		RenderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "infofi_web_render_errors_total",
			Help: "Total number of failed page renders.",
		}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "infofi_web_ratelimit_dropped_total",
			Help: "Total number of requests dropped by rate limiter.",
		}),
		PanicsRecovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "infofi_web_panics_recovered_total",
			Help: "Total number of handler panics recovered.",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.LandingViews,
		m.LandingNotModified,
		m.RenderErrors,
		m.RateLimitDropped,
		m.PanicsRecovered,
	)

	return m
}

func (m *Metrics) ObserveLandingView()        { m.LandingViews.Inc() }
func (m *Metrics) ObserveLandingNotModified() { m.LandingNotModified.Inc() }
func (m *Metrics) ObserveRenderError()        { m.RenderErrors.Inc() }
func (m *Metrics) ObserveRateLimitDrop()      { m.RateLimitDropped.Inc() }
func (m *Metrics) ObservePanic()              { m.PanicsRecovered.Inc() }

// Handler отдает метрики в формате prometheus exposition.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

// normalizeRoute ограничивает кардинальность label route.
func normalizeRoute(path string) string {
	switch {
	case path == "/":
		return "/"
	case path == "/healthz", path == "/readyz", path == "/health":
		return "/health"
	case path == "/metrics":
		return "/metrics"
	case path == "/api/status":
		return "/api/status"
	case strings.HasPrefix(path, "/static/"):
		return "/static/*"
	default:
		return "other"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Hijack passes connection upgrades through wrapped ResponseWriter.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// Flush keeps streaming behavior for handlers that require it.
func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
