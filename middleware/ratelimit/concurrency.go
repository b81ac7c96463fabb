package ratelimit

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/inlines/g-stx-api/middleware/ratelimit/application"
	"github.com/inlines/g-stx-api/middleware/ratelimit/domain"
	"github.com/inlines/g-stx-api/middleware/ratelimit/infra"
)

// StatusClientClosedRequest marca requests cujo cliente desistiu na fila
// (convenção do nginx). Ninguém lê a resposta; o status serve a logs e métricas.
const StatusClientClosedRequest = 499

// ConcurrencyOptions limita requests em andamento. Max <= 0 desliga o middleware.
type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	// Whitelist isenta prefixos de path (ex.: /health continua respondendo sob carga).
	Whitelist []string
	Stats     domain.StatsStore
	KeyFn     KeyFunc
	Logger    *slog.Logger
}

func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.KeyFn == nil {
		opts.KeyFn = ClientKey
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	whitelist := domain.Whitelist(opts.Whitelist)
	gate := application.SlotGate{
		Pool:           infra.NewSlotSemaphore(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if whitelist.Matches(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			release, err := gate.Acquire(r.Context())
			if errors.Is(err, domain.ErrAbandoned) {
				w.WriteHeader(StatusClientClosedRequest)
				return
			}
			if err != nil {
				key := opts.KeyFn(r)
				record(r, opts.Stats, logger, domain.StatsEvent{
					Key:   domain.Key(key),
					Scope: domain.ScopeConcurrency,
					Wait:  time.Since(start),
				})
				logger.WarnContext(r.Context(), "concurrency limit reached",
					"max", opts.Max,
					"key", key,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Server busy. Please try again in 1 seconds.", opts.RejectStatus)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
