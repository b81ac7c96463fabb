package account

import (
	"context"
	"errors"
	"net/http"

	"github.com/inlines/g-stx-api/account/domain"
	"github.com/inlines/g-stx-api/httpjson"

	"github.com/go-chi/chi/v5"
)

// Accounts é o que os handlers consomem; *application.Service implementa.
type Accounts interface {
	Register(ctx context.Context, login, password string) error
	Login(ctx context.Context, login, password string) (string, error)
	Releases(ctx context.Context, kind domain.ListKind, login string) ([]domain.ReleaseItem, error)
	AddRelease(ctx context.Context, kind domain.ListKind, login string, releaseID int32) error
	RemoveRelease(ctx context.Context, kind domain.ListKind, login string, releaseID int32) error
	Collectors(ctx context.Context, viewer string) ([]domain.Collector, error)
}

type Handler struct {
	accounts Accounts
	auth     *Authenticator
}

func NewHandler(accounts Accounts, auth *Authenticator) *Handler {
	return &Handler{accounts: accounts, auth: auth}
}

type credentials struct {
	UserLogin string `json:"user_login"`
	Password  string `json:"password"`
}

type releaseRequest struct {
	ReleaseID int32 `json:"release_id"`
}

// listRoutes: GET da lista e os POSTs de inclusão/remoção de cada tipo.
var listRoutes = []struct {
	kind           domain.ListKind
	list, add, rem string
}{
	{domain.KindCollection, "/collection", "/add_release", "/remove_release"},
	{domain.KindWishlist, "/wishlist", "/add_wish", "/remove_wish"},
	{domain.KindBids, "/bids", "/add_bid", "/remove_bid"},
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.Require)
		for _, lr := range listRoutes {
			r.Get(lr.list, h.listReleases(lr.kind))
			r.Post(lr.add, h.addRelease(lr.kind))
			r.Post(lr.rem, h.removeRelease(lr.kind))
		}
		r.Get("/collectors", h.collectors)
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.accounts.Register(r.Context(), req.UserLogin, req.Password)
	switch {
	case errors.Is(err, domain.ErrInvalidLogin), errors.Is(err, domain.ErrEmptyPassword):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUserExists):
		http.Error(w, "User already exists", http.StatusConflict)
	case err != nil:
		httpjson.Error(w, http.StatusInternalServerError, "internal server error")
	default:
		w.WriteHeader(http.StatusCreated)
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.accounts.Login(r.Context(), req.UserLogin, req.Password)
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
	case err != nil:
		httpjson.Error(w, http.StatusInternalServerError, "internal server error")
	default:
		httpjson.Write(w, http.StatusOK, map[string]string{"token": token})
	}
}

func (h *Handler) listReleases(kind domain.ListKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		login, _ := UserFrom(r.Context())
		items, err := h.accounts.Releases(r.Context(), kind, login)
		if err != nil {
			httpjson.Error(w, http.StatusInternalServerError, "internal server error")
			return
		}
		httpjson.Write(w, http.StatusOK, items)
	}
}

func (h *Handler) addRelease(kind domain.ListKind) http.HandlerFunc {
	return h.mutateRelease(kind, h.accounts.AddRelease)
}

func (h *Handler) removeRelease(kind domain.ListKind) http.HandlerFunc {
	return h.mutateRelease(kind, h.accounts.RemoveRelease)
}

func (h *Handler) mutateRelease(kind domain.ListKind, op func(context.Context, domain.ListKind, string, int32) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req releaseRequest
		if err := httpjson.Decode(w, r, &req); err != nil || req.ReleaseID <= 0 {
			httpjson.Error(w, http.StatusBadRequest, "release_id is required")
			return
		}

		login, _ := UserFrom(r.Context())
		if err := op(r.Context(), kind, login, req.ReleaseID); err != nil {
			httpjson.Error(w, http.StatusInternalServerError, "internal server error")
			return
		}
		httpjson.Write(w, http.StatusOK, struct{}{})
	}
}

func (h *Handler) collectors(w http.ResponseWriter, r *http.Request) {
	login, _ := UserFrom(r.Context())
	out, err := h.accounts.Collectors(r.Context(), login)
	if err != nil {
		httpjson.Error(w, http.StatusInternalServerError, "Database error")
		return
	}
	httpjson.Write(w, http.StatusOK, out)
}
