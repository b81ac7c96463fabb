package ratelimit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/inlines/g-stx-api/middleware/ratelimit/application"
	"github.com/inlines/g-stx-api/middleware/ratelimit/domain"
)

type Options struct {
	// Global é o limiter do processo inteiro (opcional).
	Global domain.Limiter
	// Store entrega o limiter por chave de cliente (opcional).
	Store     domain.LimiterStore
	Whitelist []string
	Stats     domain.StatsStore
	KeyFn     KeyFunc
	// RejectStatus padrão: 429.
	RejectStatus        int
	AddRateLimitHeaders bool
	Logger              *slog.Logger
}

type rateInfo interface {
	RPS() float64
	Burst() int
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	svc := application.Service{
		Global:    opts.Global,
		PerKey:    opts.Store,
		Whitelist: domain.Whitelist(opts.Whitelist),
	}
	if !svc.Enabled() {
		return func(next http.Handler) http.Handler { return next }
	}

	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.KeyFn == nil {
		opts.KeyFn = ClientKey
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if svc.Whitelist.Matches(path) {
				record(r, opts.Stats, logger, domain.StatsEvent{Allowed: true, Bypassed: true})
				next.ServeHTTP(w, r)
				return
			}

			key := opts.KeyFn(r)
			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", key)
				if ri, ok := opts.Store.(rateInfo); ok {
					w.Header().Set("X-RateLimit-RPS", formatFloat(ri.RPS()))
					w.Header().Set("X-RateLimit-Burst", formatInt(ri.Burst()))
				}
			}

			dec := svc.Decide(path, domain.Key(key))
			record(r, opts.Stats, logger, domain.StatsEvent{
				Key:     domain.Key(key),
				Allowed: dec.Allowed,
				Scope:   dec.Scope,
				Wait:    dec.Wait,
			})
			if !dec.Allowed {
				secs := int(dec.RetryAfter / time.Second)
				logger.WarnContext(r.Context(), "rate limit exceeded",
					"scope", string(dec.Scope),
					"key", key,
					"path", path,
					"wait", dec.Wait,
				)
				w.Header().Set("Retry-After", formatInt(secs))
				http.Error(w, rejectMessage(dec.Scope, secs), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// record completa método, path e instante e registra ev. Melhor esforço.
func record(r *http.Request, stats domain.StatsStore, logger *slog.Logger, ev domain.StatsEvent) {
	if stats == nil {
		return
	}
	ev.Method = r.Method
	ev.Path = r.URL.Path
	ev.At = time.Now()
	if err := stats.Record(r.Context(), ev); err != nil {
		logger.DebugContext(r.Context(), "admission stats not recorded", "error", err)
	}
}

func rejectMessage(scope domain.Scope, secs int) string {
	prefix := "Rate limit exceeded"
	if scope == domain.ScopeGlobal {
		prefix = "Global rate limit exceeded"
	}
	return prefix + ". Please try again in " + formatInt(secs) + " seconds."
}
