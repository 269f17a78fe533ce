package sales

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockpilot/stockpilot/internal/platform/httpx"
)

// Recorder stores observations.
type Recorder interface {
	Record(ctx context.Context, obs Observation) error
}

// Invalidator is notified when new history arrives so cached forecasts
// are not served against stale data.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Handler wires HTTP endpoints for sales ingest.
type Handler struct {
	logger      *slog.Logger
	repo        Recorder
	invalidator Invalidator
	validate    *validator.Validate
}

// NewHandler constructs the sales handler. Logger may be nil.
func NewHandler(logger *slog.Logger, repo Recorder, invalidator Invalidator) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, repo: repo, invalidator: invalidator, validate: validator.New()}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sales", h.handleRecord)
}

type recordRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	Quantity  int64   `json:"quantity" validate:"gte=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	obs := Observation{ProductID: req.ProductID, Date: date, Quantity: req.Quantity, UnitPrice: req.UnitPrice}
	if err := h.repo.Record(r.Context(), obs); err != nil {
		h.logger.Error("record sale", slog.Int64("product_id", req.ProductID), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if h.invalidator != nil {
		if err := h.invalidator.Bump(r.Context()); err != nil {
			h.logger.Warn("bump forecast cache", slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusCreated, obs)
}
