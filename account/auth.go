package account

import (
	"context"
	"net/http"
	"strings"

	"github.com/inlines/g-stx-api/account/domain"
)

type contextKey string

const userContextKey contextKey = "user_login"

// BearerToken extrai o token de "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// Authenticator resolve o usuário da requisição a partir do Bearer.
type Authenticator struct {
	tokens domain.TokenVerifier
}

func NewAuthenticator(tokens domain.TokenVerifier) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// Viewer devolve o login do token, ou "" quando ausente ou inválido.
func (a *Authenticator) Viewer(r *http.Request) string {
	token, ok := BearerToken(r)
	if !ok {
		return ""
	}
	login, err := a.tokens.Verify(token)
	if err != nil {
		return ""
	}
	return login
}

// Require rejeita com 401 requisições sem token válido e guarda o login no contexto.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		login := a.Viewer(r)
		if login == "" {
			http.Error(w, "Invalid or missing token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, login)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFrom devolve o login guardado por Require.
func UserFrom(ctx context.Context) (string, bool) {
	login, ok := ctx.Value(userContextKey).(string)
	return login, ok && login != ""
}
