package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig reúne endereço e limites de pool do cliente de cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	PoolSize int
	// PoolTimeout limita a espera por conexão livre com o pool esgotado.
	PoolTimeout  time.Duration
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisClient cria um cliente go-redis com todos os pontos de espera limitados.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		PoolTimeout:  orDefault(cfg.PoolTimeout, 500*time.Millisecond),
		DialTimeout:  orDefault(cfg.DialTimeout, time.Second),
		ReadTimeout:  orDefault(cfg.ReadTimeout, 300*time.Millisecond),
		WriteTimeout: orDefault(cfg.WriteTimeout, 300*time.Millisecond),
		// miss sai mais barato que retry
		MaxRetries: 1,
	}
	return redis.NewClient(opts)
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// RedisBackend grava payloads com SET key value EX ttl.
type RedisBackend struct {
	rdb redis.UniversalClient
}

func NewRedisBackend(rdb redis.UniversalClient) *RedisBackend {
	return &RedisBackend{rdb: rdb}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := b.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return raw, err
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.rdb.Set(ctx, key, value, ttl).Err()
}
