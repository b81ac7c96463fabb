package infra

import (
	"context"
	"sync"

	"github.com/inlines/g-stx-api/middleware/ratelimit/domain"
)

// SlotSemaphore é um SlotPool sobre channel bufferizado.
type SlotSemaphore struct {
	sem chan struct{}
}

var _ domain.SlotPool = (*SlotSemaphore)(nil)

func NewSlotSemaphore(max int) *SlotSemaphore {
	return &SlotSemaphore{sem: make(chan struct{}, max)}
}

func (p *SlotSemaphore) Acquire(ctx context.Context) (func(), bool) {
	// ctx já encerrado não disputa vaga, mesmo havendo uma livre
	if ctx.Err() != nil {
		return nil, false
	}
	select {
	case p.sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-p.sem }) }, true
	case <-ctx.Done():
		return nil, false
	}
}

func (p *SlotSemaphore) InFlight() int { return len(p.sem) }
func (p *SlotSemaphore) Cap() int      { return cap(p.sem) }
