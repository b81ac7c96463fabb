package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend é o Backend em processo, usado quando o redis não está
// disponível e nos testes. Entradas expiradas são removidas na leitura.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

type MemoryOption func(*MemoryBackend)

// WithNow troca a fonte de tempo (testes).
func WithNow(now func() time.Time) MemoryOption {
	return func(b *MemoryBackend) { b.now = now }
}

func NewMemoryBackend(opts ...MemoryOption) *MemoryBackend {
	b := &MemoryBackend{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *MemoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ent, ok := b.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if !b.now().Before(ent.expiresAt) {
		delete(b.entries, key)
		return nil, ErrMiss
	}
	out := make([]byte, len(ent.value))
	copy(out, ent.value)
	return out, nil
}

func (b *MemoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	b.mu.Lock()
	b.entries[key] = memoryEntry{value: stored, expiresAt: b.now().Add(ttl)}
	b.mu.Unlock()
	return nil
}

// Sweep remove entradas expiradas e devolve quantas removeu.
func (b *MemoryBackend) Sweep() int {
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for k, ent := range b.entries {
		if !now.Before(ent.expiresAt) {
			delete(b.entries, k)
			removed++
		}
	}
	return removed
}

// StartJanitor chama Sweep a cada every até ctx encerrar.
func (b *MemoryBackend) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				b.Sweep()
			}
		}
	}()
}

// Len devolve o número de entradas, incluindo expiradas ainda não lidas.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
