package infra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/inlines/g-stx-api/account/domain"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Repository persiste usuários e as listas de releases no Postgres.
type Repository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewRepository(db *sql.DB, timeout time.Duration) *Repository {
	return &Repository{db: db, timeout: timeout}
}

var _ domain.Repository = (*Repository)(nil)

// tabelas fixas por lista; nunca vêm da requisição
var listTables = map[domain.ListKind]string{
	domain.KindCollection: "users_have_releases",
	domain.KindWishlist:   "users_have_wishes",
	domain.KindBids:       "users_have_bids",
}

func tableFor(kind domain.ListKind) (string, error) {
	t, ok := listTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown list kind %q", kind)
	}
	return t, nil
}

func (r *Repository) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *Repository) CreateUser(ctx context.Context, u domain.User) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (user_login, password_hash) VALUES ($1, $2)`,
		u.Login, u.PasswordHash)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *Repository) UserByLogin(ctx context.Context, login string) (domain.User, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var u domain.User
	err := r.db.QueryRowContext(ctx,
		`SELECT user_login, password_hash FROM users WHERE user_login = $1 LIMIT 1`,
		login).Scan(&u.Login, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

func releasesSQL(table string) string {
	return `SELECT
			l.release_id,
			r.release_date,
			p.name,
			prod.id,
			prod.name,
			cover.image_url,
			reg.name
		FROM ` + table + ` AS l
		INNER JOIN releases AS r ON l.release_id = r.id
		INNER JOIN platforms AS p ON r.platform = p.id
		INNER JOIN products AS prod ON r.product_id = prod.id
		LEFT JOIN covers AS cover ON cover.id = prod.cover_id
		LEFT JOIN regions AS reg ON reg.id = r.release_region
		WHERE l.user_login = $1
		ORDER BY prod.name, l.release_id`
}

func (r *Repository) Releases(ctx context.Context, kind domain.ListKind, login string) ([]domain.ReleaseItem, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.bound(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, releasesSQL(table), login)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer rows.Close()

	items := []domain.ReleaseItem{}
	for rows.Next() {
		var (
			it     domain.ReleaseItem
			date   sql.NullInt32
			image  sql.NullString
			region sql.NullString
		)
		if err := rows.Scan(&it.ReleaseID, &date, &it.PlatformName, &it.ProductID, &it.ProductName, &image, &region); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		if date.Valid {
			it.ReleaseDate = &date.Int32
		}
		if image.Valid {
			it.ImageURL = &image.String
		}
		if region.Valid {
			it.RegionName = &region.String
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}
	return items, nil
}

func (r *Repository) AddRelease(ctx context.Context, kind domain.ListKind, login string, releaseID int32) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	ctx, cancel := r.bound(ctx)
	defer cancel()

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO `+table+` (release_id, user_login) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		releaseID, login)
	if err != nil {
		return fmt.Errorf("insert %s: %w", kind, err)
	}
	return nil
}

func (r *Repository) RemoveRelease(ctx context.Context, kind domain.ListKind, login string, releaseID int32) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	ctx, cancel := r.bound(ctx)
	defer cancel()

	_, err = r.db.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE release_id = $1 AND user_login = $2`,
		releaseID, login)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	return nil
}

func (r *Repository) Collectors(ctx context.Context, exclude string) ([]domain.Collector, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	const query = `SELECT u.user_login, COUNT(uhr.release_id) AS release_count
		FROM users u
		INNER JOIN users_have_releases uhr ON u.user_login = uhr.user_login
		WHERE u.user_login <> $1
		GROUP BY u.user_login
		HAVING COUNT(uhr.release_id) > 0
		ORDER BY release_count DESC, u.user_login ASC`

	rows, err := r.db.QueryContext(ctx, query, exclude)
	if err != nil {
		return nil, fmt.Errorf("query collectors: %w", err)
	}
	defer rows.Close()

	out := []domain.Collector{}
	for rows.Next() {
		var c domain.Collector
		if err := rows.Scan(&c.UserLogin, &c.ReleaseCount); err != nil {
			return nil, fmt.Errorf("scan collector: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collectors: %w", err)
	}
	return out, nil
}
