package infra

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/inlines/g-stx-api/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore agrega decisões de admissão em memória e as descarrega em
// hashes do Redis de tempos em tempos. Record nunca fala com o Redis, então
// um Redis lento não atrasa a admissão.
//
// Layout (prefixo padrão "gstx:admission"):
//
//	<prefix>:total            allowed, denied, denied:<scope>   (sem expiração)
//	<prefix>:minute:<YYYYmmddHHMM>  allowed, denied               (expira em ttl)
type RedisStatsStore struct {
	rdb     redis.UniversalClient
	prefix  string
	ttl     time.Duration
	every   time.Duration
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]map[string]int64
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.prefix = strings.Trim(prefix, ":") }
}

// WithStatsTTL define a expiração das séries por minuto.
func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsFlushEvery(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.every = d }
}

func WithStatsLogger(l *slog.Logger) RedisStatsOption {
	return func(s *RedisStatsStore) { s.logger = l }
}

func NewRedisStatsStore(rdb redis.UniversalClient, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:     rdb,
		prefix:  "gstx:admission",
		ttl:     24 * time.Hour,
		every:   5 * time.Second,
		timeout: time.Second,
		logger:  slog.Default(),
		pending: make(map[string]map[string]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := "denied"
	switch {
	case ev.Bypassed:
		field = "bypassed"
	case ev.Allowed:
		field = "allowed"
	}
	total := s.prefix + ":total"
	minute := s.prefix + ":minute:" + at.UTC().Format("200601021504")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(total, field)
	s.add(minute, field)
	if !ev.Allowed && ev.Scope != domain.ScopeNone {
		s.add(total, "denied:"+string(ev.Scope))
	}
	return nil
}

func (s *RedisStatsStore) add(key, field string) {
	h := s.pending[key]
	if h == nil {
		h = make(map[string]int64)
		s.pending[key] = h
	}
	h[field]++
}

// Flush envia os contadores acumulados num único pipeline. Em caso de erro
// os deltas voltam para o acumulador e entram no próximo flush.
func (s *RedisStatsStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = make(map[string]map[string]int64)
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pipe := s.rdb.Pipeline()
	for key, fields := range batch {
		for field, n := range fields {
			pipe.HIncrBy(ctx, key, field, n)
		}
		if s.ttl > 0 && key != s.prefix+":total" {
			pipe.Expire(ctx, key, s.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.restore(batch)
		return err
	}
	return nil
}

func (s *RedisStatsStore) restore(batch map[string]map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, fields := range batch {
		for field, n := range fields {
			h := s.pending[key]
			if h == nil {
				h = make(map[string]int64)
				s.pending[key] = h
			}
			h[field] += n
		}
	}
}

// Pending devolve uma cópia do que ainda não foi enviado.
func (s *RedisStatsStore) Pending() map[string]map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]map[string]int64, len(s.pending))
	for key, fields := range s.pending {
		cp := make(map[string]int64, len(fields))
		for f, n := range fields {
			cp[f] = n
		}
		out[key] = cp
	}
	return out
}

// StartFlusher descarrega periodicamente até ctx encerrar. O flush final
// fica com quem encerra o processo, antes de fechar o cliente.
func (s *RedisStatsStore) StartFlusher(ctx context.Context) {
	if s.every <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(s.every)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if err := s.Flush(ctx); err != nil {
					s.logger.Warn("admission stats flush failed", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
