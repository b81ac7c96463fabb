package domain

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

const (
	DefaultLimit = 100
	MaxLimit     = 100
)

type SortOrder string

const (
	SortByName SortOrder = "name"
	SortByDate SortOrder = "date"
)

// ParseSort aceita "name" e "date"; qualquer outro valor ordena por nome.
func ParseSort(s string) SortOrder {
	if SortOrder(s) == SortByDate {
		return SortByDate
	}
	return SortByName
}

// ListQuery é o formato de uma busca paginada no catálogo.
type ListQuery struct {
	Category      int64
	Limit         int64
	Offset        int64
	Text          string
	IgnoreDigital bool
	Sort          SortOrder
}

// Normalize aplica defaults e limites: limit em [1, MaxLimit], offset >= 0.
func (q ListQuery) Normalize() ListQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	q.Sort = ParseSort(string(q.Sort))
	return q
}

type ProductListItem struct {
	ID               int32    `json:"id"`
	Name             string   `json:"name"`
	FirstReleaseDate *int32   `json:"first_release_date"`
	ImageURL         *string  `json:"image_url"`
	ParentGame       *int32   `json:"parent_game"`
	GameType         *int32   `json:"game_type"`
	TotalRating      *float64 `json:"total_rating"`
}

// ProductList é uma página mais o total de itens que casam com o mesmo filtro.
type ProductList struct {
	Items      []ProductListItem `json:"items"`
	TotalCount int64             `json:"total_count"`
}

type ProductProperties struct {
	ID               int32   `json:"id"`
	Name             string  `json:"name"`
	Summary          string  `json:"summary"`
	FirstReleaseDate *int32  `json:"first_release_date"`
	ImageURL         *string `json:"image_url"`
}

type Release struct {
	ReleaseID     int32    `json:"release_id"`
	ReleaseDate   *int32   `json:"release_date"`
	ReleaseRegion string   `json:"release_region"`
	PlatformName  string   `json:"platform_name"`
	PlatformID    int32    `json:"platform_id"`
	ReleaseStatus *int32   `json:"release_status"`
	BidUserLogins []string `json:"bid_user_logins"`
	DigitalOnly   bool     `json:"digital_only"`
	Serial        []string `json:"serial"`
}

type Platform struct {
	ID           int32  `json:"id"`
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`
	Generation   *int32 `json:"generation"`
	TotalGames   int32  `json:"total_games"`
}

// BidLogins mapeia release_id para os logins com lance naquele release.
type BidLogins map[int32][]string

// Repository é o store autoritativo do catálogo.
//
// ListProducts e CountProducts devem aplicar exatamente o mesmo filtro, para
// que total_count seja coerente com a página.
type Repository interface {
	ListProducts(ctx context.Context, q ListQuery) ([]ProductListItem, error)
	CountProducts(ctx context.Context, q ListQuery) (int64, error)

	// Product devolve ErrNotFound quando o id não existe.
	Product(ctx context.Context, id int64) (ProductProperties, error)
	Releases(ctx context.Context, productID int64) ([]Release, error)
	Screenshots(ctx context.Context, productID int64) ([]string, error)
	BidLogins(ctx context.Context, productID int64) (BidLogins, error)

	Platforms(ctx context.Context) ([]Platform, error)
}
