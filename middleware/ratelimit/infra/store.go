package infra

import (
	"sync"
	"time"

	"github.com/inlines/g-stx-api/middleware/ratelimit/domain"

	"github.com/cespare/xxhash/v2"
)

const storeShards = 64

// Store mantém um Bucket por chave, criado cheio no primeiro acesso.
//
// O mapa é particionado em shards (xxhash da chave) para que clientes distintos
// não disputem o mesmo mutex. Chaves inativas há mais de idleTTL são removidas
// pelo janitor.
type Store struct {
	shards       [storeShards]storeShard
	rps          float64
	burst        int
	clock        domain.Clock
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type storeShard struct {
	mu      sync.Mutex
	entries map[string]*storeEntry
}

type storeEntry struct {
	bucket   *Bucket
	lastSeen time.Time
}

type StoreOption func(*Store)

func WithIdleTTL(d time.Duration) StoreOption {
	return func(s *Store) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *Store) { s.cleanupEvery = d }
}

func WithClock(c domain.Clock) StoreOption {
	return func(s *Store) { s.clock = c }
}

func NewStore(rps float64, burst int, opts ...StoreOption) *Store {
	if burst <= 0 {
		burst = DefaultBurst(rps)
	}
	s := &Store{
		rps:          rps,
		burst:        burst,
		clock:        SystemClock{},
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	for i := range s.shards {
		s.shards[i].entries = make(map[string]*storeEntry)
	}
	return s
}

func (s *Store) RPS() float64 { return s.rps }
func (s *Store) Burst() int   { return s.burst }

// Get implementa domain.LimiterStore.
func (s *Store) Get(key domain.Key) domain.Limiter {
	return s.GetString(string(key))
}

func (s *Store) GetString(key string) *Bucket {
	now := s.clock.Now()
	sh := s.shard(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if ent, ok := sh.entries[key]; ok {
		ent.lastSeen = now
		return ent.bucket
	}

	b := NewBucket(s.rps, s.burst, s.clock)
	sh.entries[key] = &storeEntry{bucket: b, lastSeen: now}
	return b
}

// Len devolve o número de chaves rastreadas.
func (s *Store) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

// Cleanup remove chaves sem acesso há mais de idleTTL cujo bucket já voltou
// a ficar cheio, e devolve quantas removeu. Um bucket ainda em recarga fica:
// recriá-lo cheio admitiria o cliente antes do próximo token.
func (s *Store) Cleanup() int {
	now := s.clock.Now()
	cutoff := now.Add(-s.idleTTL)
	removed := 0

	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for k, ent := range sh.entries {
			if ent.lastSeen.Before(cutoff) && ent.bucket.fullAt(now) {
				delete(sh.entries, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *Store) StartJanitor(ctx DoneContext) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

func (s *Store) shard(key string) *storeShard {
	return &s.shards[xxhash.Sum64String(key)%storeShards]
}

// DoneContext é o mínimo necessário para aceitar context.Context sem importar context aqui.
type DoneContext interface {
	Done() <-chan struct{}
}
