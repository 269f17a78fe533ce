package reorder

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stockpilot/stockpilot/internal/catalog"
	"github.com/stockpilot/stockpilot/internal/platform/httpx"
)

// Handler serves reorder recommendations over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the reorder handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers recommendation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products/{productID}/recommendation", h.handleRecommendation)
	r.Get("/recommendations", h.handleRecommendAll)
}

func (h *Handler) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product id must be a positive integer")
		return
	}
	rec, err := h.service.Recommend(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("recommend", slog.Int64("product_id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleRecommendAll(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.RecommendAll(r.Context())
	if err != nil {
		h.logger.Error("recommend all", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}
