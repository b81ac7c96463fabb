package infra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/inlines/g-stx-api/catalog/domain"

	"github.com/lib/pq"
)

const DefaultCoverBaseURL = "//89.104.66.193/static/covers-full/"

// Repository lê o catálogo do Postgres. Cada consulta roda com o seu próprio
// timeout, além do contexto do chamador.
type Repository struct {
	db           *sql.DB
	timeout      time.Duration
	coverBaseURL string
}

type Option func(*Repository)

func WithQueryTimeout(d time.Duration) Option {
	return func(r *Repository) { r.timeout = d }
}

func WithCoverBaseURL(u string) Option {
	return func(r *Repository) { r.coverBaseURL = u }
}

func NewRepository(db *sql.DB, opts ...Option) *Repository {
	r := &Repository{
		db:           db,
		timeout:      5 * time.Second,
		coverBaseURL: DefaultCoverBaseURL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ domain.Repository = (*Repository)(nil)

func (r *Repository) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *Repository) ListProducts(ctx context.Context, q domain.ListQuery) ([]domain.ProductListItem, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query, args := listSQL(q)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	items := make([]domain.ProductListItem, 0, q.Limit)
	for rows.Next() {
		var (
			it      domain.ProductListItem
			date    sql.NullInt32
			rating  sql.NullFloat64
			gtype   sql.NullInt32
			parent  sql.NullInt32
			coverID sql.NullInt64
		)
		if err := rows.Scan(&it.ID, &it.Name, &date, &rating, &gtype, &parent, &coverID); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		it.FirstReleaseDate = int32Ptr(date)
		it.TotalRating = float64Ptr(rating)
		it.GameType = int32Ptr(gtype)
		it.ParentGame = int32Ptr(parent)
		it.ImageURL = coverURL(r.coverBaseURL, int64Ptr(coverID))
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return items, nil
}

func (r *Repository) CountProducts(ctx context.Context, q domain.ListQuery) (int64, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query, args := countSQL(q)
	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

func (r *Repository) Product(ctx context.Context, id int64) (domain.ProductProperties, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	const query = `SELECT prod.id, prod.name, COALESCE(prod.summary, ''), prod.first_release_date, cov.id
		FROM products AS prod
		LEFT JOIN covers AS cov ON prod.cover_id = cov.id
		WHERE prod.id = $1`

	var (
		p       domain.ProductProperties
		date    sql.NullInt32
		coverID sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Summary, &date, &coverID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProductProperties{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ProductProperties{}, fmt.Errorf("query product: %w", err)
	}
	p.FirstReleaseDate = int32Ptr(date)
	p.ImageURL = coverURL(r.coverBaseURL, int64Ptr(coverID))
	return p, nil
}

func (r *Repository) Releases(ctx context.Context, productID int64) ([]domain.Release, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	const query = `SELECT
			r.id,
			r.release_date,
			reg.name,
			p.name,
			p.id,
			r.release_status,
			COALESCE(ARRAY_AGG(uhb.user_login ORDER BY uhb.user_login) FILTER (WHERE uhb.user_login IS NOT NULL), ARRAY[]::text[]),
			r.digital_only,
			r.serial
		FROM releases AS r
		LEFT JOIN platforms AS p ON r.platform = p.id
		INNER JOIN regions AS reg ON reg.id = r.release_region
		LEFT JOIN users_have_bids AS uhb ON uhb.release_id = r.id
		WHERE r.product_id = $1 AND p.active = true
		GROUP BY r.id, r.release_date, r.release_status, r.digital_only, r.serial, reg.name, p.name, p.id
		ORDER BY p.name, r.id`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("query releases: %w", err)
	}
	defer rows.Close()

	releases := []domain.Release{}
	for rows.Next() {
		var (
			rel    domain.Release
			date   sql.NullInt32
			status sql.NullInt32
			bids   pq.StringArray
			serial pq.StringArray
		)
		if err := rows.Scan(&rel.ReleaseID, &date, &rel.ReleaseRegion, &rel.PlatformName, &rel.PlatformID,
			&status, &bids, &rel.DigitalOnly, &serial); err != nil {
			return nil, fmt.Errorf("scan release: %w", err)
		}
		rel.ReleaseDate = int32Ptr(date)
		rel.ReleaseStatus = int32Ptr(status)
		rel.BidUserLogins = append([]string{}, bids...)
		if serial != nil {
			rel.Serial = []string(serial)
		}
		releases = append(releases, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate releases: %w", err)
	}
	return releases, nil
}

func (r *Repository) Screenshots(ctx context.Context, productID int64) ([]string, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT image_url FROM screenshots WHERE game = $1 ORDER BY image_url`, productID)
	if err != nil {
		return nil, fmt.Errorf("query screenshots: %w", err)
	}
	defer rows.Close()

	urls := []string{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan screenshot: %w", err)
		}
		urls = append(urls, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate screenshots: %w", err)
	}
	return urls, nil
}

func (r *Repository) BidLogins(ctx context.Context, productID int64) (domain.BidLogins, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	const query = `SELECT uhb.release_id, uhb.user_login
		FROM users_have_bids AS uhb
		INNER JOIN releases AS r ON r.id = uhb.release_id
		WHERE r.product_id = $1
		ORDER BY uhb.release_id, uhb.user_login`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("query bids: %w", err)
	}
	defer rows.Close()

	bids := domain.BidLogins{}
	for rows.Next() {
		var (
			releaseID int32
			login     string
		)
		if err := rows.Scan(&releaseID, &login); err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids[releaseID] = append(bids[releaseID], login)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bids: %w", err)
	}
	return bids, nil
}

func (r *Repository) Platforms(ctx context.Context) ([]domain.Platform, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	const query = `SELECT id, abbreviation, name, generation, total_games
		FROM platforms
		WHERE active = true
		ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query platforms: %w", err)
	}
	defer rows.Close()

	platforms := []domain.Platform{}
	for rows.Next() {
		var (
			p   domain.Platform
			gen sql.NullInt32
		)
		if err := rows.Scan(&p.ID, &p.Abbreviation, &p.Name, &gen, &p.TotalGames); err != nil {
			return nil, fmt.Errorf("scan platform: %w", err)
		}
		p.Generation = int32Ptr(gen)
		platforms = append(platforms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate platforms: %w", err)
	}
	return platforms, nil
}

func int32Ptr(v sql.NullInt32) *int32 {
	if !v.Valid {
		return nil
	}
	return &v.Int32
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func float64Ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
