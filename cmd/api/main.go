package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inlines/g-stx-api/account"
	accapp "github.com/inlines/g-stx-api/account/application"
	accinfra "github.com/inlines/g-stx-api/account/infra"
	"github.com/inlines/g-stx-api/cache"
	"github.com/inlines/g-stx-api/catalog"
	catapp "github.com/inlines/g-stx-api/catalog/application"
	catinfra "github.com/inlines/g-stx-api/catalog/infra"
	"github.com/inlines/g-stx-api/config"
	"github.com/inlines/g-stx-api/middleware/ratelimit"
	rldomain "github.com/inlines/g-stx-api/middleware/ratelimit/domain"
	rlinfra "github.com/inlines/g-stx-api/middleware/ratelimit/infra"
	"github.com/inlines/g-stx-api/observability"
	"github.com/inlines/g-stx-api/server"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	level, err := observability.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := observability.NewLogger(os.Stdout, level)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	metrics := observability.NewMetrics()

	// cache: redis quando configurado e alcançável, senão memória do processo
	var (
		backend cache.Backend
		rdb     *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb = cache.NewRedisClient(cache.RedisConfig{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			PoolSize:    cfg.RedisPoolSize,
			PoolTimeout: cfg.RedisPoolTimeout,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancelPing()
		if err != nil {
			logger.Warn("redis unavailable, using in-memory cache", "addr", cfg.RedisAddr, "error", err)
		} else {
			backend = cache.NewRedisBackend(rdb)
		}
	}
	if backend == nil {
		mem := cache.NewMemoryBackend()
		mem.StartJanitor(ctx, time.Minute)
		backend = mem
	}
	store := cache.New(backend,
		cache.WithTimeout(cfg.CacheTimeout),
		cache.WithPrefix(cfg.CachePrefix+":"),
		cache.WithLogger(logger),
		cache.WithObserver(metrics),
	)

	tokens, err := accinfra.NewJWT([]byte(cfg.JWTSecret), cfg.JWTTTL)
	if err != nil {
		return err
	}
	auth := account.NewAuthenticator(tokens)

	catalogSvc := catapp.NewService(
		catinfra.NewRepository(db,
			catinfra.WithQueryTimeout(cfg.DBQueryTimeout),
			catinfra.WithCoverBaseURL(cfg.CoverBaseURL),
		),
		store,
		catapp.WithTTLPolicy(catapp.TTLPolicy{
			FirstPage:  cfg.ListTTLFirstPage,
			OtherPages: cfg.ListTTLOtherPages,
			Detail:     cfg.DetailTTL,
			Platforms:  cfg.PlatformsTTL,
		}),
		catapp.WithFreshBids(cfg.DetailFreshBids),
		catapp.WithLogger(logger),
	)
	accountSvc := accapp.NewService(
		accinfra.NewRepository(db, cfg.DBQueryTimeout),
		accinfra.NewArgon2Hasher(),
		tokens,
		accapp.WithObserver(metrics),
		accapp.WithLogger(logger),
	)

	adm := buildAdmission(cfg, metrics, rdb, logger)
	if adm.perKey != nil {
		adm.perKey.StartJanitor(ctx)
	}
	if adm.redisStats != nil {
		adm.redisStats.StartFlusher(ctx)
		defer func() {
			if err := adm.redisStats.Flush(context.Background()); err != nil {
				logger.Warn("admission stats final flush failed", "error", err)
			}
		}()
	}

	h := server.NewRouter(server.Deps{
		Logger:    logger,
		Metrics:   metrics,
		Admission: adm.opts,
		Concurrency: ratelimit.ConcurrencyOptions{
			Max:            cfg.Concurrency.Max,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: cfg.Concurrency.Timeout,
		},
		AdmissionStats: adm.memStats,
		DB:             db,
		Routes: []server.RouteGroup{
			catalog.NewHandler(catalogSvc, auth.Viewer),
			account.NewHandler(accountSvc, auth),
		},
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	// só fecha banco e redis (defers acima) depois de drenar as requests
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
	}()

	logger.Info("api listening", "addr", cfg.ListenAddr, "cache", fmt.Sprintf("%T", backend))
	logger.Info("rate",
		"global_rps", cfg.Rate.GlobalRPS, "global_burst", cfg.Rate.GlobalBurst,
		"per_ip_rps", cfg.Rate.PerIPRPS, "per_ip_burst", cfg.Rate.PerIPBurst,
		"whitelist", cfg.Rate.Whitelist, "trust_proxy_headers", cfg.Rate.TrustProxyHeaders,
	)
	logger.Info("concurrency", "max", cfg.Concurrency.Max, "acquire_timeout", cfg.Concurrency.Timeout)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	<-drained
	logger.Info("api stopped")
	return nil
}

func openDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxConns)
	db.SetMaxIdleConns(cfg.DBMaxIdle)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}
	return db, nil
}

type admission struct {
	opts       ratelimit.Options
	perKey     *rlinfra.Store
	memStats   *rlinfra.MemoryStatsStore
	redisStats *rlinfra.RedisStatsStore
}

// buildAdmission monta os limiters a partir da configuração. RPS zerado
// desliga o limiter correspondente e o campo fica nil (nunca um *Bucket nil).
func buildAdmission(cfg config.Config, metrics *observability.Metrics, rdb *redis.Client, logger *slog.Logger) admission {
	rc := cfg.Rate
	a := admission{opts: ratelimit.Options{
		Whitelist:           rc.Whitelist,
		KeyFn:               ratelimit.DefaultKeyFunc(rc.KeyHeader, rc.TrustProxyHeaders),
		RejectStatus:        http.StatusTooManyRequests,
		AddRateLimitHeaders: rc.AddHeaders,
		Logger:              logger,
	}}

	if rc.GlobalRPS > 0 {
		a.opts.Global = rlinfra.NewBucket(rc.GlobalRPS, rc.GlobalBurst, rlinfra.SystemClock{})
	}
	if rc.PerIPRPS > 0 {
		a.perKey = rlinfra.NewStore(rc.PerIPRPS, rc.PerIPBurst,
			rlinfra.WithIdleTTL(rc.IdleTTL),
			rlinfra.WithCleanupEvery(rc.CleanupEvery),
		)
		a.opts.Store = a.perKey
	}

	stores := []rldomain.StatsStore{metrics}
	if rc.StatsMemory {
		a.memStats = rlinfra.NewMemoryStatsStore(rlinfra.WithTrackKeys(rc.StatsTrackKeys))
		stores = append(stores, a.memStats)
	}
	if rc.StatsRedis && rdb != nil {
		a.redisStats = rlinfra.NewRedisStatsStore(rdb,
			rlinfra.WithStatsPrefix(cfg.CachePrefix+":admission"),
			rlinfra.WithStatsLogger(logger),
		)
		stores = append(stores, a.redisStats)
	}
	a.opts.Stats = rlinfra.NewMultiStatsStore(stores...)
	return a
}
