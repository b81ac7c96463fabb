package domain

import (
	"context"
	"errors"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidLogin       = errors.New("login must contain only latin letters and digits")
	ErrEmptyPassword      = errors.New("password must not be empty")
	ErrInvalidToken       = errors.New("invalid token")
)

type User struct {
	Login        string
	PasswordHash string
}

// ValidLogin aceita apenas letras latinas e dígitos ASCII, com ao menos um caractere.
func ValidLogin(login string) bool {
	if login == "" {
		return false
	}
	for i := 0; i < len(login); i++ {
		c := login[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// ListKind identifica uma das listas de releases do usuário.
type ListKind string

const (
	KindCollection ListKind = "collection"
	KindWishlist   ListKind = "wishlist"
	KindBids       ListKind = "bids"
)

func (k ListKind) Valid() bool {
	switch k {
	case KindCollection, KindWishlist, KindBids:
		return true
	}
	return false
}

type ReleaseItem struct {
	ReleaseID    int32   `json:"release_id"`
	ReleaseDate  *int32  `json:"release_date"`
	PlatformName string  `json:"platform_name"`
	ProductID    int32   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	ImageURL     *string `json:"image_url"`
	RegionName   *string `json:"region_name"`
}

type Collector struct {
	UserLogin    string `json:"user_login"`
	ReleaseCount int64  `json:"release_count"`
}

type Repository interface {
	// CreateUser devolve ErrUserExists se o login já existe.
	CreateUser(ctx context.Context, u User) error
	// UserByLogin devolve ErrNotFound se o login não existe.
	UserByLogin(ctx context.Context, login string) (User, error)

	Releases(ctx context.Context, kind ListKind, login string) ([]ReleaseItem, error)
	// AddRelease é idempotente.
	AddRelease(ctx context.Context, kind ListKind, login string, releaseID int32) error
	RemoveRelease(ctx context.Context, kind ListKind, login string, releaseID int32) error

	// Collectors lista os usuários com ao menos um release, exceto exclude,
	// do maior para o menor acervo.
	Collectors(ctx context.Context, exclude string) ([]Collector, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

type TokenIssuer interface {
	Issue(login string) (string, error)
}

// TokenVerifier devolve o login dono do token, ou ErrInvalidToken.
type TokenVerifier interface {
	Verify(token string) (string, error)
}
