package kit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelService  = "service"
	labelMethod   = "method"
	labelPath     = "path"
	labelStatus   = "status"
	labelOutcome  = "outcome"
	labelCategory = "category"
	labelResult   = "result"

	defaultStatusCode = http.StatusOK
)

type Metrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{labelService, labelMethod, labelPath, labelStatus},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP latency",
			},
			[]string{labelService, labelMethod, labelPath},
		),
	}

	reg.MustRegister(m.Requests, m.Latency)
	return m
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (m *Metrics) Middleware(service string, pathLabel func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{
				ResponseWriter: w,
				status:         defaultStatusCode,
			}

			start := time.Now()
			next.ServeHTTP(sw, r)

			path := pathLabel(r)
			m.Latency.WithLabelValues(service, r.Method, path).
				Observe(time.Since(start).Seconds())

			m.Requests.WithLabelValues(service, r.Method, path, strconv.Itoa(sw.status)).
				Inc()
		})
	}
}

// EngineMetrics covers the catalog refresh cycle and the lookup caches.
type EngineMetrics struct {
	RefreshAttempts *prometheus.CounterVec
	CatalogEntries  prometheus.Gauge
	CacheLookups    *prometheus.CounterVec
}

func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		RefreshAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_refresh_attempts_total",
				Help: "Catalog fetch attempts by outcome",
			},
			[]string{labelOutcome},
		),
		CatalogEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "catalog_entries",
				Help: "Entries in the installed catalog index",
			},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_lookups_total",
				Help: "TTL cache lookups by category and result",
			},
			[]string{labelCategory, labelResult},
		),
	}

	reg.MustRegister(m.RefreshAttempts, m.CatalogEntries, m.CacheLookups)
	return m
}

func (m *EngineMetrics) ObserveRefreshAttempt(outcome string) {
	m.RefreshAttempts.WithLabelValues(outcome).Inc()
}

func (m *EngineMetrics) ObserveCatalogSize(n int) {
	m.CatalogEntries.Set(float64(n))
}

func (m *EngineMetrics) CacheLookup(category string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(category, result).Inc()
}
