package alerting

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stockpilot/stockpilot/internal/platform/httpx"
)

// Handler wires HTTP endpoints for alerts.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the alerting handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers alert routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/alerts", h.handleList)
	r.Post("/alerts/generate", h.handleGenerate)
	r.Post("/alerts/{alertID}/acknowledge", h.handleAcknowledge)
	r.Post("/alerts/{alertID}/dismiss", h.handleDismiss)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	status := Status(r.URL.Query().Get("status"))
	switch status {
	case "", StatusActive, StatusAcknowledged, StatusDismissed:
	default:
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown status filter")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	alerts, err := h.service.List(r.Context(), status, limit)
	if err != nil {
		h.logger.Error("list alerts", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GenerateAlerts(r.Context())
	if err != nil {
		h.logger.Error("generate alerts", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Acknowledge)
}

func (h *Handler) handleDismiss(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Dismiss)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id uuid.UUID) (Alert, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "alertID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "alert id must be a UUID")
		return
	}
	alert, err := apply(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		case errors.Is(err, ErrInvalidTransition):
			httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
		default:
			h.logger.Error("alert transition", slog.String("alert_id", id.String()), slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, alert)
}
