package purchase

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stockpilot/stockpilot/internal/platform/httpx"
)

// Handler serves purchase order endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the purchase handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers purchase order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/purchase-orders/from-recommendations", h.handleCreateFromRecommendations)
	r.Get("/purchase-orders", h.handleList)
	r.Get("/purchase-orders/{orderID}", h.handleGet)
}

func (h *Handler) handleCreateFromRecommendations(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.CreateFromRecommendations(r.Context())
	if err != nil {
		h.logger.Error("create orders from recommendations", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	status := http.StatusOK
	if len(report.Orders) > 0 {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, report)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	orders, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list purchase orders", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "order id must be a positive integer")
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("get purchase order", slog.Int64("order_id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}
