package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// ErrMiss é devolvido pelo Backend quando a chave não existe ou expirou.
var ErrMiss = errors.New("cache: miss")

// Backend é um key/value com expiração.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Observer recebe um evento hit/miss por Get.
type Observer interface {
	CacheResult(name string, hit bool)
}

// Store envolve um Backend com JSON, timeout por chamada e prefixo de chave.
// Um *Store nil sempre dá miss e nunca escreve.
type Store struct {
	backend  Backend
	timeout  time.Duration
	prefix   string
	logger   *slog.Logger
	observer Observer
}

type Option func(*Store)

// WithTimeout limita cada chamada ao backend, incluindo a espera por conexão do pool.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		timeout: 300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Get lê e decodifica key. name rotula o evento hit/miss (ex.: "products").
// Chave ausente, erro do backend ou payload que não decodifica como T: miss.
func Get[T any](ctx context.Context, s *Store, name, key string) (T, bool) {
	var zero T
	if s == nil || s.backend == nil {
		return zero, false
	}

	raw, err := s.get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			s.logger.Warn("cache read failed", "cache", name, "key", key, "error", err)
		}
		s.observe(name, false)
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		s.logger.Warn("cache entry does not decode, treating as miss", "cache", name, "key", key, "error", err)
		s.observe(name, false)
		return zero, false
	}
	s.observe(name, true)
	return v, true
}

// Set codifica e grava value por ttl. Melhor esforço: falhas só são logadas.
//
// A escrita não herda o cancelamento do chamador (cliente que desconecta não
// impede o preenchimento), mas continua limitada pelo timeout do store.
func Set[T any](ctx context.Context, s *Store, name, key string, value T, ttl time.Duration) {
	if s == nil || s.backend == nil {
		return
	}
	if ttl <= 0 {
		s.logger.Warn("cache write skipped, non-positive ttl", "cache", name, "key", key, "ttl", ttl)
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache entry does not encode", "cache", name, "key", key, "error", err)
		return
	}

	ctx, cancel := s.bound(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.backend.Set(ctx, s.prefix+key, raw, ttl); err != nil {
		s.logger.Warn("cache write failed", "cache", name, "key", key, "error", err)
	}
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.backend.Get(ctx, s.prefix+key)
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) observe(name string, hit bool) {
	if s.observer != nil {
		s.observer.CacheResult(name, hit)
	}
}
