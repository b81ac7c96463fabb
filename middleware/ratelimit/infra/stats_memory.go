package infra

import (
	"context"
	"maps"
	"sync"

	"github.com/inlines/g-stx-api/middleware/ratelimit/domain"
)

type Counters struct {
	Allowed  int64 `json:"allowed"`
	Denied   int64 `json:"denied"`
	Bypassed int64 `json:"bypassed,omitempty"`
}

func (c *Counters) add(ev domain.StatsEvent) {
	switch {
	case ev.Bypassed:
		c.Bypassed++
	case ev.Allowed:
		c.Allowed++
	default:
		c.Denied++
	}
}

// MemoryStatsStore guarda contadores do processo para /metrics/admission.
// Nada expira: rotas entram como "METHOD path" e chaves de cliente só são
// guardadas com WithTrackKeys.
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[string]Counters
	byKey   map[string]Counters
	byScope map[domain.Scope]int64

	trackKeys bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byRoute: make(map[string]Counters),
		byKey:   make(map[string]Counters),
		byScope: make(map[domain.Scope]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	route := ev.Method + " " + ev.Path

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev)
	c := s.byRoute[route]
	c.add(ev)
	s.byRoute[route] = c
	// bypass não extrai chave
	if s.trackKeys && !ev.Bypassed {
		k := s.byKey[string(ev.Key)]
		k.add(ev)
		s.byKey[string(ev.Key)] = k
	}
	if !ev.Allowed {
		s.byScope[ev.Scope]++
	}
	return nil
}

// TracksKeys indica se ByKey é alimentado.
func (s *MemoryStatsStore) TracksKeys() bool { return s.trackKeys }

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// DeniedBy devolve quantas rejeições vieram de um escopo.
func (s *MemoryStatsStore) DeniedBy(scope domain.Scope) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byScope[scope]
}

func (s *MemoryStatsStore) ByRoute() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.byRoute)
}

func (s *MemoryStatsStore) ByKey() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.byKey)
}
