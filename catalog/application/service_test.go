package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/inlines/g-stx-api/cache"
	"github.com/inlines/g-stx-api/catalog/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu sync.Mutex

	items    []domain.ProductListItem
	product  *domain.ProductProperties
	releases []domain.Release
	bids     domain.BidLogins
	err      error

	listCalls     int
	countCalls    int
	productCalls  int
	bidCalls      int
	platformCalls int
}

func (r *fakeRepo) ListProducts(_ context.Context, q domain.ListQuery) ([]domain.ProductListItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.err != nil {
		return nil, r.err
	}
	end := q.Offset + q.Limit
	if end > int64(len(r.items)) {
		end = int64(len(r.items))
	}
	if q.Offset >= end {
		return nil, nil
	}
	return r.items[q.Offset:end], nil
}

func (r *fakeRepo) CountProducts(context.Context, domain.ListQuery) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.countCalls++
	if r.err != nil {
		return 0, r.err
	}
	return int64(len(r.items)), nil
}

func (r *fakeRepo) Product(_ context.Context, id int64) (domain.ProductProperties, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.productCalls++
	if r.err != nil {
		return domain.ProductProperties{}, r.err
	}
	if r.product == nil || int64(r.product.ID) != id {
		return domain.ProductProperties{}, domain.ErrNotFound
	}
	return *r.product, nil
}

func (r *fakeRepo) Releases(context.Context, int64) ([]domain.Release, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Release, len(r.releases))
	for i, rel := range r.releases {
		rel.BidUserLogins = append([]string{}, r.bids[rel.ReleaseID]...)
		out[i] = rel
	}
	return out, nil
}

func (r *fakeRepo) Screenshots(context.Context, int64) ([]string, error) {
	return []string{"//img/1.jpg"}, nil
}

func (r *fakeRepo) BidLogins(context.Context, int64) (domain.BidLogins, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bidCalls++
	if r.err != nil {
		return nil, r.err
	}
	out := make(domain.BidLogins, len(r.bids))
	for k, v := range r.bids {
		out[k] = append([]string{}, v...)
	}
	return out, nil
}

func (r *fakeRepo) Platforms(context.Context) ([]domain.Platform, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.platformCalls++
	return []domain.Platform{{ID: 19, Abbreviation: "SNES", Name: "Super Nintendo"}}, nil
}

func (r *fakeRepo) setBids(b domain.BidLogins) {
	r.mu.Lock()
	r.bids = b
	r.mu.Unlock()
}

type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeNow) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeNow) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(repo domain.Repository, now *fakeNow, opts ...Option) *Service {
	backend := cache.NewMemoryBackend(cache.WithNow(now.Now))
	store := cache.New(backend, cache.WithLogger(quietLogger()))
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewService(repo, store, opts...)
}

func games(n int) []domain.ProductListItem {
	out := make([]domain.ProductListItem, n)
	for i := range out {
		out[i] = domain.ProductListItem{ID: int32(i + 1), Name: "game"}
	}
	return out
}

func TestListProducts_SecondIdenticalRequestIsCacheHit(t *testing.T) {
	repo := &fakeRepo{items: games(3)}
	svc := newTestService(repo, &fakeNow{t: time.Unix(0, 0)})
	q := domain.ListQuery{Category: 19, Offset: 0, Text: "mario"}

	first, err := svc.ListProducts(context.Background(), q)
	require.NoError(t, err)
	second, err := svc.ListProducts(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.listCalls)
	assert.Equal(t, 1, repo.countCalls)
	assert.Equal(t, int64(3), second.TotalCount)
	assert.Len(t, second.Items, 3)
}

// gatedRepo segura ListProducts até release fechar.
type gatedRepo struct {
	*fakeRepo
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedRepo) ListProducts(ctx context.Context, q domain.ListQuery) ([]domain.ProductListItem, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.fakeRepo.ListProducts(ctx, q)
}

func TestListProducts_ConcurrentMissesShareOneLoad(t *testing.T) {
	repo := &gatedRepo{
		fakeRepo: &fakeRepo{items: games(5)},
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	svc := newTestService(repo, &fakeNow{t: time.Unix(1_700_000_000, 0)})
	q := domain.ListQuery{Category: 19, Limit: 2}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]domain.ProductList, callers)
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			list, err := svc.ListProducts(context.Background(), q)
			assert.NoError(t, err)
			results[i] = list
		}()
	}

	<-repo.entered
	time.Sleep(20 * time.Millisecond)
	close(repo.release)
	wg.Wait()

	assert.Equal(t, 1, repo.listCalls)
	for _, r := range results {
		assert.Len(t, r.Items, 2)
		assert.Equal(t, int64(5), r.TotalCount)
	}
}

func TestListProducts_TTLDependsOnOffset(t *testing.T) {
	repo := &fakeRepo{items: games(150)}
	now := &fakeNow{t: time.Unix(0, 0)}
	svc := newTestService(repo, now)
	ctx := context.Background()

	firstPage := domain.ListQuery{Category: 19}
	secondPage := domain.ListQuery{Category: 19, Offset: 100}

	_, err := svc.ListProducts(ctx, firstPage)
	require.NoError(t, err)
	_, err = svc.ListProducts(ctx, secondPage)
	require.NoError(t, err)
	require.Equal(t, 2, repo.listCalls)

	now.Advance(61 * time.Second)
	_, _ = svc.ListProducts(ctx, firstPage)
	_, _ = svc.ListProducts(ctx, secondPage)
	assert.Equal(t, 3, repo.listCalls, "only the second page expires after 60s")

	now.Advance(240 * time.Second)
	_, _ = svc.ListProducts(ctx, firstPage)
	assert.Equal(t, 4, repo.listCalls, "first page expires after 300s")
}

func TestListProducts_StoreFailureIsErrorAndNotCached(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection reset")}
	svc := newTestService(repo, &fakeNow{t: time.Unix(0, 0)})
	q := domain.ListQuery{Category: 19}

	_, err := svc.ListProducts(context.Background(), q)
	require.Error(t, err)

	_, err = svc.ListProducts(context.Background(), q)
	require.Error(t, err)
	assert.Equal(t, 2, repo.listCalls)
}

func TestListProducts_WithoutCache(t *testing.T) {
	repo := &fakeRepo{items: games(2)}
	svc := NewService(repo, nil, WithLogger(quietLogger()))

	list, err := svc.ListProducts(context.Background(), domain.ListQuery{Category: 1})
	require.NoError(t, err)
	_, err = svc.ListProducts(context.Background(), domain.ListQuery{Category: 1})
	require.NoError(t, err)

	assert.Len(t, list.Items, 2)
	assert.Equal(t, 2, repo.listCalls)
}

func TestListProducts_EmptyPageIsNotNull(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, &fakeNow{t: time.Unix(0, 0)})

	list, err := svc.ListProducts(context.Background(), domain.ListQuery{Category: 1})
	require.NoError(t, err)
	assert.NotNil(t, list.Items)
	assert.Equal(t, int64(0), list.TotalCount)
}

func TestListCacheKey(t *testing.T) {
	base := domain.ListQuery{Category: 19, Limit: 100, Offset: 0, Text: "zelda", IgnoreDigital: false, Sort: domain.SortByName}

	assert.Equal(t, ListCacheKey(base), ListCacheKey(base))
	assert.Equal(t, `products:cat_19:limit_100:offset_0:q_"zelda":dig_false:sort_name`, ListCacheKey(base))

	variants := map[string]func(q *domain.ListQuery){
		"category": func(q *domain.ListQuery) { q.Category = 20 },
		"limit":    func(q *domain.ListQuery) { q.Limit = 50 },
		"offset":   func(q *domain.ListQuery) { q.Offset = 100 },
		"text":     func(q *domain.ListQuery) { q.Text = "zeld" },
		"digital":  func(q *domain.ListQuery) { q.IgnoreDigital = true },
		"sort":     func(q *domain.ListQuery) { q.Sort = domain.SortByDate },
	}
	for name, mutate := range variants {
		t.Run(name, func(t *testing.T) {
			q := base
			mutate(&q)
			assert.NotEqual(t, ListCacheKey(base), ListCacheKey(q))
		})
	}
}

func TestListCacheKey_TextCannotForgeOtherFields(t *testing.T) {
	a := domain.ListQuery{Category: 1, Limit: 10, Text: `x":dig_true`}
	b := domain.ListQuery{Category: 1, Limit: 10, Text: "x", IgnoreDigital: true}
	assert.NotEqual(t, ListCacheKey(a), ListCacheKey(b))
}

func detailRepo() *fakeRepo {
	return &fakeRepo{
		product:  &domain.ProductProperties{ID: 42, Name: "Chrono Trigger"},
		releases: []domain.Release{{ReleaseID: 7, PlatformName: "SNES"}},
		bids:     domain.BidLogins{7: {"alice", "bob"}},
	}
}

func TestGetProduct_ExcludesCallerOnEveryPath(t *testing.T) {
	for _, fresh := range []bool{true, false} {
		repo := detailRepo()
		svc := newTestService(repo, &fakeNow{t: time.Unix(0, 0)}, WithFreshBids(fresh))
		ctx := context.Background()

		// miss: carrega do repositório
		got, err := svc.GetProduct(ctx, 42, "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, got.Releases[0].BidUserLogins)

		// hit
		got, err = svc.GetProduct(ctx, 42, "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, got.Releases[0].BidUserLogins)

		got, err = svc.GetProduct(ctx, 42, "bob")
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, got.Releases[0].BidUserLogins)

		got, err = svc.GetProduct(ctx, 42, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, got.Releases[0].BidUserLogins)

		assert.Equal(t, 1, repo.productCalls)
	}
}

func TestGetProduct_FreshBidsOverlayCachedRecord(t *testing.T) {
	repo := detailRepo()
	svc := newTestService(repo, &fakeNow{t: time.Unix(0, 0)})
	ctx := context.Background()

	_, err := svc.GetProduct(ctx, 42, "")
	require.NoError(t, err)
	assert.Equal(t, 0, repo.bidCalls, "a fresh load already carries current bids")

	repo.setBids(domain.BidLogins{7: {"alice", "bob", "carol"}})

	got, err := svc.GetProduct(ctx, 42, "carol")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, got.Releases[0].BidUserLogins)
	assert.Equal(t, 1, repo.bidCalls)
	assert.Equal(t, 1, repo.productCalls)
}

func TestGetProduct_SnapshotBidsWhenFreshDisabled(t *testing.T) {
	repo := detailRepo()
	svc := newTestService(repo, &fakeNow{t: time.Unix(0, 0)}, WithFreshBids(false))
	ctx := context.Background()

	_, err := svc.GetProduct(ctx, 42, "")
	require.NoError(t, err)
	repo.setBids(domain.BidLogins{7: {"carol"}})

	got, err := svc.GetProduct(ctx, 42, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, got.Releases[0].BidUserLogins)
	assert.Equal(t, 0, repo.bidCalls)
}

func TestGetProduct_NotFound(t *testing.T) {
	repo := detailRepo()
	svc := newTestService(repo, &fakeNow{t: time.Unix(0, 0)})

	_, err := svc.GetProduct(context.Background(), 99, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetProduct(context.Background(), 99, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 2, repo.productCalls)
}

func TestGetProduct_BidFailureOnCachedPathIsError(t *testing.T) {
	repo := detailRepo()
	svc := newTestService(repo, &fakeNow{t: time.Unix(0, 0)})
	ctx := context.Background()

	_, err := svc.GetProduct(ctx, 42, "")
	require.NoError(t, err)

	repo.mu.Lock()
	repo.err = errors.New("pool exhausted")
	repo.mu.Unlock()

	_, err = svc.GetProduct(ctx, 42, "")
	assert.Error(t, err)
}

func TestPlatforms_Cached(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, &fakeNow{t: time.Unix(0, 0)})

	first, err := svc.Platforms(context.Background())
	require.NoError(t, err)
	second, err := svc.Platforms(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.platformCalls)
}

func TestTTLPolicy_ListTTL(t *testing.T) {
	p := DefaultTTLPolicy()
	assert.Equal(t, 300*time.Second, p.ListTTL(0))
	assert.Equal(t, 60*time.Second, p.ListTTL(100))
}
