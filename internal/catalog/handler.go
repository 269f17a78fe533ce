package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stockpilot/stockpilot/internal/platform/httpx"
)

// Reader describes the catalog queries served over HTTP.
type Reader interface {
	Get(ctx context.Context, id int64) (Product, error)
	ListActive(ctx context.Context) ([]Product, error)
}

// Handler wires HTTP endpoints for the product catalog.
type Handler struct {
	logger *slog.Logger
	repo   Reader
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, repo Reader) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.handleList)
	r.Get("/products/{productID}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.ListActive(r.Context())
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product id must be a positive integer")
		return
	}
	product, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("get product", slog.Int64("product_id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}
