// Package server monta o roteador HTTP: cadeia de middlewares, rotas de
// catálogo e conta, /metrics e /health.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/inlines/g-stx-api/httpjson"
	"github.com/inlines/g-stx-api/middleware/ratelimit"
	rldomain "github.com/inlines/g-stx-api/middleware/ratelimit/domain"
	rlinfra "github.com/inlines/g-stx-api/middleware/ratelimit/infra"
	"github.com/inlines/g-stx-api/observability"

	"github.com/go-chi/chi/v5"
)

// RouteGroup registra rotas num chi.Router (catalog.Handler, account.Handler).
type RouteGroup interface {
	Routes(r chi.Router)
}

// Pinger é o store autoritativo visto pelo /health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Logger  *slog.Logger
	Metrics *observability.Metrics

	Admission   ratelimit.Options
	Concurrency ratelimit.ConcurrencyOptions
	// AdmissionStats, se presente, é servido em /metrics/admission.
	AdmissionStats *rlinfra.MemoryStatsStore

	DB     Pinger
	Routes []RouteGroup
}

// NewRouter aplica, de fora para dentro: request id, métricas, admissão,
// concorrência e por fim as rotas.
func NewRouter(d Deps) http.Handler {
	if d.Admission.Logger == nil {
		d.Admission.Logger = d.Logger
	}
	// sem configuração própria, a concorrência segue a admissão
	c := &d.Concurrency
	if c.Logger == nil {
		c.Logger = d.Admission.Logger
	}
	if c.Whitelist == nil {
		c.Whitelist = d.Admission.Whitelist
	}
	if c.Stats == nil {
		c.Stats = d.Admission.Stats
	}
	if c.KeyFn == nil {
		c.KeyFn = d.Admission.KeyFn
	}

	r := chi.NewRouter()
	r.Use(observability.RequestID)
	if d.Metrics != nil {
		r.Use(observability.HTTPMiddleware(d.Metrics))
	}
	r.Use(ratelimit.Middleware(d.Admission))
	r.Use(ratelimit.ConcurrencyMiddleware(d.Concurrency))

	r.Get("/health", health(d.DB))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	if d.AdmissionStats != nil {
		r.Get("/metrics/admission", admissionStats(d.AdmissionStats))
	}

	for _, g := range d.Routes {
		g.Routes(r)
	}
	return r
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				httpjson.Write(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func admissionStats(s *rlinfra.MemoryStatsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]any{
			"total":         s.Total(),
			"denied_global": s.DeniedBy(rldomain.ScopeGlobal),
			"denied_key":    s.DeniedBy(rldomain.ScopeKey),
			"denied_busy":   s.DeniedBy(rldomain.ScopeConcurrency),
			"by_route":      s.ByRoute(),
		}
		if s.TracksKeys() {
			body["by_key"] = s.ByKey()
		}
		httpjson.Write(w, http.StatusOK, body)
	}
}
