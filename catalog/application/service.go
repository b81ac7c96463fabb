package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/inlines/g-stx-api/cache"
	"github.com/inlines/g-stx-api/catalog/domain"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Service serve o catálogo a partir do cache, caindo no Repository em caso de miss.
type Service struct {
	repo      domain.Repository
	cache     *cache.Store
	ttl       TTLPolicy
	freshBids bool
	logger    *slog.Logger

	// misses concorrentes para a mesma chave viram uma única ida ao banco
	group singleflight.Group
}

type Option func(*Service)

func WithTTLPolicy(p TTLPolicy) Option {
	return func(s *Service) { s.ttl = p }
}

// WithFreshBids faz o detalhe reler os lances do banco a cada requisição,
// sobrepondo o snapshot guardado no registro estável.
func WithFreshBids(on bool) Option {
	return func(s *Service) { s.freshBids = on }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService aceita store nil: sem cache, toda leitura vai ao repositório.
func NewService(repo domain.Repository, store *cache.Store, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		cache:     store,
		ttl:       DefaultTTLPolicy(),
		freshBids: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ListProducts devolve a página pedida e o total coerente com ela.
func (s *Service) ListProducts(ctx context.Context, q domain.ListQuery) (domain.ProductList, error) {
	q = q.Normalize()
	key := ListCacheKey(q)

	if list, ok := cache.Get[domain.ProductList](ctx, s.cache, cacheProducts, key); ok {
		return list, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		// a carga é compartilhada entre quem esperava; o cancelamento de um
		// chamador não derruba os outros (o repositório tem timeout próprio)
		lctx := context.WithoutCancel(ctx)
		list, err := s.loadList(lctx, q)
		if err != nil {
			return nil, err
		}
		cache.Set(lctx, s.cache, cacheProducts, key, list, s.ttl.ListTTL(q.Offset))
		return list, nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "catalog list failed", "key", key, "error", err)
		return domain.ProductList{}, err
	}
	return v.(domain.ProductList), nil
}

func (s *Service) loadList(ctx context.Context, q domain.ListQuery) (domain.ProductList, error) {
	var (
		items []domain.ProductListItem
		total int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.repo.ListProducts(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountProducts(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.ProductList{}, fmt.Errorf("list products: %w", err)
	}

	if items == nil {
		items = []domain.ProductListItem{}
	}
	return domain.ProductList{Items: items, TotalCount: total}, nil
}

// GetProduct monta o detalhe para viewer (login do chamador, vazio se anônimo).
//
// A parte estável vem do cache ou do banco; em ambos os caminhos o login do
// próprio viewer é removido das listas de lance antes de devolver.
func (s *Service) GetProduct(ctx context.Context, productID int64, viewer string) (domain.ProductDetail, error) {
	key := DetailCacheKey(productID)

	rec, cached := cache.Get[domain.StableRecord](ctx, s.cache, cacheProductDetail, key)
	if !cached {
		v, err, _ := s.group.Do(key, func() (any, error) {
			lctx := context.WithoutCancel(ctx)
			rec, err := s.loadStable(lctx, productID)
			if err != nil {
				return nil, err
			}
			cache.Set(lctx, s.cache, cacheProductDetail, key, rec, s.ttl.Detail)
			return rec, nil
		})
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				s.logger.ErrorContext(ctx, "catalog detail failed", "product_id", productID, "error", err)
			}
			return domain.ProductDetail{}, err
		}
		rec = v.(domain.StableRecord)
	}

	// recém-carregado do banco o snapshot já está fresco
	if cached && s.freshBids {
		bids, err := s.repo.BidLogins(ctx, productID)
		if err != nil {
			s.logger.ErrorContext(ctx, "catalog bids failed", "product_id", productID, "error", err)
			return domain.ProductDetail{}, fmt.Errorf("load bids: %w", err)
		}
		rec = rec.WithBids(bids)
	}

	return rec.Personalize(viewer), nil
}

func (s *Service) loadStable(ctx context.Context, productID int64) (domain.StableRecord, error) {
	product, err := s.repo.Product(ctx, productID)
	if err != nil {
		return domain.StableRecord{}, fmt.Errorf("load product %d: %w", productID, err)
	}

	var (
		releases    []domain.Release
		screenshots []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		releases, err = s.repo.Releases(gctx, productID)
		return err
	})
	g.Go(func() error {
		var err error
		screenshots, err = s.repo.Screenshots(gctx, productID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.StableRecord{}, fmt.Errorf("load product %d: %w", productID, err)
	}

	if releases == nil {
		releases = []domain.Release{}
	}
	if screenshots == nil {
		screenshots = []string{}
	}
	return domain.StableRecord{Product: product, Releases: releases, Screenshots: screenshots}, nil
}

// Platforms lista as plataformas ativas, ordenadas por nome.
func (s *Service) Platforms(ctx context.Context) ([]domain.Platform, error) {
	if list, ok := cache.Get[[]domain.Platform](ctx, s.cache, cachePlatforms, platformsKey); ok {
		return list, nil
	}

	v, err, _ := s.group.Do(platformsKey, func() (any, error) {
		lctx := context.WithoutCancel(ctx)
		list, err := s.repo.Platforms(lctx)
		if err != nil {
			return nil, fmt.Errorf("load platforms: %w", err)
		}
		if list == nil {
			list = []domain.Platform{}
		}
		cache.Set(lctx, s.cache, cachePlatforms, platformsKey, list, s.ttl.Platforms)
		return list, nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "catalog platforms failed", "error", err)
		return nil, err
	}
	return v.([]domain.Platform), nil
}
