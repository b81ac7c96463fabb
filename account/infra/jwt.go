package infra

import (
	"errors"
	"fmt"
	"time"

	"github.com/inlines/g-stx-api/account/domain"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// JWT emite e valida tokens HS256 com sub = login e exp = agora + ttl.
type JWT struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type JWTOption func(*JWT)

// WithJWTClock troca a fonte de tempo (testes).
func WithJWTClock(now func() time.Time) JWTOption {
	return func(j *JWT) { j.now = now }
}

func NewJWT(secret []byte, ttl time.Duration, opts ...JWTOption) (*JWT, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("jwt ttl must be positive")
	}
	j := &JWT{secret: secret, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

var (
	_ domain.TokenIssuer   = (*JWT)(nil)
	_ domain.TokenVerifier = (*JWT)(nil)
)

func (j *JWT) Issue(login string) (string, error) {
	now := j.now()
	token, err := jwt.NewBuilder().
		Subject(login).
		IssuedAt(now).
		Expiration(now.Add(j.ttl)).
		Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, j.secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return string(signed), nil
}

func (j *JWT) Verify(token string) (string, error) {
	parsed, err := jwt.Parse(
		[]byte(token),
		jwt.WithKey(jwa.HS256, j.secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(j.now)),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if parsed.Subject() == "" {
		return "", fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}
	return parsed.Subject(), nil
}
