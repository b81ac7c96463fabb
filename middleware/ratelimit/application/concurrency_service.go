package application

import (
	"context"
	"time"

	"github.com/inlines/g-stx-api/middleware/ratelimit/domain"
)

// SlotGate adquire vagas de um SlotPool com timeout opcional, sem saber de HTTP.
type SlotGate struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire devolve release e nil em caso de sucesso. Sem timeout, espera até
// o ctx da request encerrar. O erro distingue saturação (ErrSaturated) de
// cliente que desistiu (ErrAbandoned).
func (g SlotGate) Acquire(ctx context.Context) (func(), error) {
	if g.Pool == nil {
		return func() {}, nil
	}

	acqCtx := ctx
	if g.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, g.AcquireTimeout)
		defer cancel()
	}

	release, ok := g.Pool.Acquire(acqCtx)
	if ok {
		return release, nil
	}
	if ctx.Err() != nil {
		return nil, domain.ErrAbandoned
	}
	return nil, domain.ErrSaturated
}
