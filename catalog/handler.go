package catalog

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/inlines/g-stx-api/catalog/domain"
	"github.com/inlines/g-stx-api/httpjson"

	"github.com/go-chi/chi/v5"
)

// Catalog é o que os handlers consomem; *application.Service implementa.
type Catalog interface {
	ListProducts(ctx context.Context, q domain.ListQuery) (domain.ProductList, error)
	GetProduct(ctx context.Context, productID int64, viewer string) (domain.ProductDetail, error)
	Platforms(ctx context.Context) ([]domain.Platform, error)
}

// ViewerFunc devolve o login autenticado da requisição, ou "" se anônima.
type ViewerFunc func(r *http.Request) string

type Handler struct {
	catalog Catalog
	viewer  ViewerFunc
}

func NewHandler(c Catalog, viewer ViewerFunc) *Handler {
	if viewer == nil {
		viewer = func(*http.Request) string { return "" }
	}
	return &Handler{catalog: c, viewer: viewer}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/platforms", h.platforms)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.catalog.ListProducts(r.Context(), q)
	if err != nil {
		httpjson.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	httpjson.Write(w, http.StatusOK, list)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	detail, err := h.catalog.GetProduct(r.Context(), id, h.viewer(r))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		httpjson.Error(w, http.StatusNotFound, "Product not found")
		return
	case err != nil:
		httpjson.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	httpjson.Write(w, http.StatusOK, detail)
}

func (h *Handler) platforms(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.Platforms(r.Context())
	if err != nil {
		httpjson.Error(w, http.StatusInternalServerError, "Failed to load platforms")
		return
	}
	httpjson.Write(w, http.StatusOK, list)
}
