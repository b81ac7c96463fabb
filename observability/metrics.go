package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	rldomain "github.com/inlines/g-stx-api/middleware/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implementa os observadores de admissão (rldomain.StatsStore),
// de cache (cache.Observer) e de autenticação.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	admissions    *prometheus.CounterVec
	admissionWait prometheus.Histogram
	cacheRequests *prometheus.CounterVec
	logins        *prometheus.CounterVec
	registrations prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"method", "path", "status"}),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_decisions_total",
			Help: "Admission decisions by limiter scope and outcome.",
		}, []string{"scope", "outcome"}),
		admissionWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "admission_wait_seconds",
			Help:    "Wait attached to a rejection: time to the next token, or time spent queued for a slot.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Cache lookups by cache name and outcome.",
		}, []string{"cache", "outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by outcome and failure reason.",
		}, []string{"outcome", "reason"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Successful registrations.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.admissions,
		m.admissionWait,
		m.cacheRequests,
		m.logins,
		m.registrations,
	)
	return m
}

// Registry expõe o registry para testes e coletores extras.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serve o formato de exposição do prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, path, code).Inc()
	m.httpDuration.WithLabelValues(method, path, code).Observe(d.Seconds())
}

var _ rldomain.StatsStore = (*Metrics)(nil)

// Record conta uma decisão de admissão. Nunca falha.
func (m *Metrics) Record(_ context.Context, ev rldomain.StatsEvent) error {
	if ev.Bypassed {
		m.admissions.WithLabelValues("none", "bypass").Inc()
		return nil
	}
	if ev.Allowed {
		m.admissions.WithLabelValues("none", "admit").Inc()
		return nil
	}
	m.admissions.WithLabelValues(string(ev.Scope), "reject").Inc()
	m.admissionWait.Observe(ev.Wait.Seconds())
	return nil
}

func (m *Metrics) CacheResult(name string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheRequests.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) LoginResult(success bool, reason string) {
	if success {
		m.logins.WithLabelValues("success", "").Inc()
		return
	}
	m.logins.WithLabelValues("failure", reason).Inc()
}

func (m *Metrics) Registered() { m.registrations.Inc() }
