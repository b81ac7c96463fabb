// Package config lê a configuração do processo a partir do ambiente
// (opcionalmente de um arquivo .env).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string
	LogLevel   string

	DatabaseURL    string
	DBMaxConns     int
	DBMaxIdle      int
	DBQueryTimeout time.Duration

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisPoolSize    int
	RedisPoolTimeout time.Duration
	CacheTimeout     time.Duration
	CachePrefix      string

	Rate        RateConfig
	Concurrency ConcurrencyConfig

	JWTSecret string
	JWTTTL    time.Duration

	ListTTLFirstPage  time.Duration
	ListTTLOtherPages time.Duration
	DetailTTL         time.Duration
	DetailFreshBids   bool
	PlatformsTTL      time.Duration
	CoverBaseURL      string
}

type RateConfig struct {
	// RPS <= 0 desliga o limiter correspondente.
	GlobalRPS   float64
	GlobalBurst int
	PerIPRPS    float64
	PerIPBurst  int

	Whitelist         []string
	KeyHeader         string
	TrustProxyHeaders bool
	IdleTTL           time.Duration
	CleanupEvery      time.Duration
	AddHeaders        bool
	StatsRedis        bool
	// StatsMemory liga /metrics/admission (contadores por rota em memória).
	StatsMemory bool
	// StatsTrackKeys acrescenta contadores por chave de cliente (by_key).
	StatsTrackKeys bool
}

type ConcurrencyConfig struct {
	Max     int
	Timeout time.Duration
}

var DefaultWhitelist = []string{"/ws/", "/metrics", "/health", "/favicon.ico"}

// Load carrega .env (se existir) sem sobrescrever variáveis já definidas e
// devolve a configuração validada.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv lê e valida a configuração apenas do ambiente atual.
func FromEnv() (Config, error) {
	cfg := Config{}
	e := &envReader{}
	cfg.ListenAddr = e.stringDefault("LISTEN_ADDR", ":8080")
	cfg.LogLevel = e.stringDefault("LOG_LEVEL", "info")

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.DBMaxConns = e.intDefault("DB_MAX_CONNS", 20)
	cfg.DBMaxIdle = e.intDefault("DB_MAX_IDLE", 5)
	cfg.DBQueryTimeout = e.durationDefault("DB_QUERY_TIMEOUT", 5*time.Second)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = e.intDefault("REDIS_DB", 0)
	cfg.RedisPoolSize = e.intDefault("REDIS_POOL_SIZE", 20)
	cfg.RedisPoolTimeout = e.durationDefault("REDIS_POOL_TIMEOUT", 500*time.Millisecond)
	cfg.CacheTimeout = e.durationDefault("CACHE_TIMEOUT", 300*time.Millisecond)
	cfg.CachePrefix = e.stringDefault("CACHE_PREFIX", "gstx")

	r := &cfg.Rate
	r.GlobalRPS = e.floatDefault("RATE_GLOBAL_RPS", 0)
	r.PerIPRPS = e.floatDefault("RATE_PER_IP_RPS", 0)
	// burst ausente = capacidade igual à taxa (ver infra.DefaultBurst)
	if b, ok := e.int("RATE_GLOBAL_BURST"); ok {
		r.GlobalBurst = b
	}
	if b, ok := e.int("RATE_PER_IP_BURST"); ok {
		r.PerIPBurst = b
	}
	r.Whitelist = e.list("RATE_WHITELIST", DefaultWhitelist)
	r.KeyHeader = os.Getenv("RATE_KEY_HEADER")
	r.TrustProxyHeaders = e.boolDefault("TRUST_PROXY_HEADERS", true)
	r.IdleTTL = e.durationDefault("RATE_IDLE_TTL", 15*time.Minute)
	r.CleanupEvery = e.durationDefault("RATE_CLEANUP_EVERY", 2*time.Minute)
	r.AddHeaders = e.boolDefault("ADD_RATELIMIT_HEADERS", false)
	r.StatsRedis = e.boolDefault("RATE_STATS_REDIS", false)
	r.StatsMemory = e.boolDefault("RATE_STATS_MEMORY", false)
	r.StatsTrackKeys = e.boolDefault("RATE_STATS_TRACK_KEYS", false)

	cfg.Concurrency.Max = e.intDefault("CONCURRENCY_MAX", 0)
	cfg.Concurrency.Timeout = e.durationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.JWTTTL = e.durationDefault("JWT_TTL", 24*time.Hour)

	cfg.ListTTLFirstPage = e.durationDefault("LIST_TTL_FIRST_PAGE", 300*time.Second)
	cfg.ListTTLOtherPages = e.durationDefault("LIST_TTL_OTHER_PAGES", 60*time.Second)
	cfg.DetailTTL = e.durationDefault("DETAIL_TTL", 6*time.Hour)
	cfg.DetailFreshBids = e.boolDefault("DETAIL_FRESH_BIDS", true)
	cfg.PlatformsTTL = e.durationDefault("PLATFORMS_TTL", 10*time.Minute)
	cfg.CoverBaseURL = e.stringDefault("COVER_BASE_URL", "//89.104.66.193/static/covers-full/")

	if err := cfg.validate(e.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate junta os erros de conversão do ambiente às regras de consistência.
func (c Config) validate(parseErrs ...error) error {
	errs := append([]error(nil), parseErrs...)
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be > 0"))
	}
	if c.DBMaxConns <= 0 {
		errs = append(errs, errors.New("DB_MAX_CONNS must be > 0"))
	}
	if c.DBQueryTimeout <= 0 {
		errs = append(errs, errors.New("DB_QUERY_TIMEOUT must be > 0"))
	}
	if c.CacheTimeout <= 0 {
		errs = append(errs, errors.New("CACHE_TIMEOUT must be > 0"))
	}
	if c.Rate.GlobalRPS < 0 || c.Rate.PerIPRPS < 0 {
		errs = append(errs, errors.New("RATE_GLOBAL_RPS and RATE_PER_IP_RPS must be >= 0"))
	}
	if c.Rate.GlobalBurst < 0 || c.Rate.PerIPBurst < 0 {
		errs = append(errs, errors.New("RATE_GLOBAL_BURST and RATE_PER_IP_BURST must be >= 0"))
	}
	if c.Rate.PerIPRPS > 0 && c.Rate.IdleTTL <= 0 {
		errs = append(errs, errors.New("RATE_IDLE_TTL must be > 0 when RATE_PER_IP_RPS is set"))
	}
	if c.Rate.StatsTrackKeys && !c.Rate.StatsMemory {
		errs = append(errs, errors.New("RATE_STATS_TRACK_KEYS requires RATE_STATS_MEMORY=true"))
	}
	if c.Rate.StatsRedis && c.RedisAddr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required when RATE_STATS_REDIS=true"))
	}
	if c.Concurrency.Max < 0 {
		errs = append(errs, errors.New("CONCURRENCY_MAX must be >= 0"))
	}
	for name, d := range map[string]time.Duration{
		"LIST_TTL_FIRST_PAGE":  c.ListTTLFirstPage,
		"LIST_TTL_OTHER_PAGES": c.ListTTLOtherPages,
		"DETAIL_TTL":           c.DetailTTL,
		"PLATFORMS_TTL":        c.PlatformsTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0", name))
		}
	}
	return errors.Join(errs...)
}
