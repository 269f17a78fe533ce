package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockpilot/stockpilot/internal/alerting"
	"github.com/stockpilot/stockpilot/internal/catalog"
	"github.com/stockpilot/stockpilot/internal/forecast"
	"github.com/stockpilot/stockpilot/internal/observability"
	"github.com/stockpilot/stockpilot/internal/purchase"
	"github.com/stockpilot/stockpilot/internal/reorder"
	"github.com/stockpilot/stockpilot/internal/sales"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Pool            *pgxpool.Pool
	CatalogHandler  *catalog.Handler
	SalesHandler    *sales.Handler
	ForecastHandler *forecast.Handler
	AlertHandler    *alerting.Handler
	ReorderHandler  *reorder.Handler
	PurchaseHandler *purchase.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if params.Pool != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := params.Pool.Ping(ctx); err != nil {
				http.Error(w, "database unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if params.CatalogHandler != nil {
			params.CatalogHandler.MountRoutes(r)
		}
		if params.SalesHandler != nil {
			params.SalesHandler.MountRoutes(r)
		}
		if params.ForecastHandler != nil {
			params.ForecastHandler.MountRoutes(r)
		}
		if params.AlertHandler != nil {
			params.AlertHandler.MountRoutes(r)
		}
		if params.ReorderHandler != nil {
			params.ReorderHandler.MountRoutes(r)
		}
		if params.PurchaseHandler != nil {
			params.PurchaseHandler.MountRoutes(r)
		}
	})

	return r
}
