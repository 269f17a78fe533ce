package forecast

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stockpilot/stockpilot/internal/platform/httpx"
)

// Handler wires HTTP endpoints for forecasting.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the forecast handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers forecast routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/forecasts/generate", h.handleGenerateAll)
	r.Post("/forecasts/{productID}", h.handleGenerate)
	r.Get("/forecasts/{productID}", h.handleLatest)
}

type forecastResponse struct {
	ProductID            int64     `json:"product_id"`
	ModelName            string    `json:"model_name"`
	GeneratedAt          time.Time `json:"generated_at"`
	HorizonDays          int       `json:"horizon_days"`
	Points               []Point   `json:"points"`
	TotalPredictedDemand float64   `json:"total_predicted_demand"`
	AvgDailyDemand       float64   `json:"avg_daily_demand"`
	PeakDate             time.Time `json:"peak_date"`
	PeakQuantity         float64   `json:"peak_quantity"`
}

func toResponse(f Forecast) forecastResponse {
	peakDate, peakQty := f.Peak()
	return forecastResponse{
		ProductID:            f.ProductID,
		ModelName:            f.ModelName,
		GeneratedAt:          f.GeneratedAt,
		HorizonDays:          f.HorizonDays,
		Points:               f.Points,
		TotalPredictedDemand: f.TotalDemand(),
		AvgDailyDemand:       f.AvgDailyDemand(),
		PeakDate:             peakDate,
		PeakQuantity:         peakQty,
	}
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}
	horizon, ok := parseHorizon(w, r)
	if !ok {
		return
	}
	f, err := h.service.Forecast(r.Context(), productID, horizon)
	if err != nil {
		h.respondError(w, productID, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(f))
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}
	f, err := h.service.Latest(r.Context(), productID)
	if err != nil {
		if errors.Is(err, ErrNoForecast) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.respondError(w, productID, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(f))
}

type batchItem struct {
	Forecast *forecastResponse `json:"forecast,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func (h *Handler) handleGenerateAll(w http.ResponseWriter, r *http.Request) {
	horizon, ok := parseHorizon(w, r)
	if !ok {
		return
	}
	results, err := h.service.GenerateForAll(r.Context(), horizon)
	if err != nil {
		h.logger.Error("generate all forecasts", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	payload := make(map[string]batchItem, len(results))
	for productID, res := range results {
		item := batchItem{}
		if res.Err != nil {
			item.Error = res.Err.Error()
		} else {
			resp := toResponse(*res.Forecast)
			item.Forecast = &resp
		}
		payload[strconv.FormatInt(productID, 10)] = item
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) respondError(w http.ResponseWriter, productID int64, err error) {
	switch {
	case errors.Is(err, ErrUnknownProduct):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInsufficientHistory):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient History", err.Error())
	case errors.Is(err, ErrTimeout):
		httpx.Problem(w, http.StatusGatewayTimeout, "Timeout", err.Error())
	default:
		h.logger.Error("forecast", slog.Int64("product_id", productID), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func parseProductID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product id must be a positive integer")
		return 0, false
	}
	return id, true
}

func parseHorizon(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("horizon")
	if raw == "" {
		return 0, true
	}
	horizon, err := strconv.Atoi(raw)
	if err != nil || horizon <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "horizon must be a positive integer")
		return 0, false
	}
	return horizon, true
}
