package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rimworks/rimworks/internal/customers"
	"github.com/rimworks/rimworks/internal/inventory"
	"github.com/rimworks/rimworks/internal/invoices"
	"github.com/rimworks/rimworks/internal/observability"
	"github.com/rimworks/rimworks/internal/payments"
	"github.com/rimworks/rimworks/internal/quotes"
	"github.com/rimworks/rimworks/internal/reporting"
	"github.com/rimworks/rimworks/internal/shared"
	"github.com/rimworks/rimworks/internal/workshop"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Pool             *pgxpool.Pool
	CustomersHandler *customers.Handler
	QuotesHandler    *quotes.Handler
	InvoicesHandler  *invoices.Handler
	PaymentsHandler  *payments.Handler
	WorkshopHandler  *workshop.Handler
	InventoryHandler *inventory.Handler
	ReportingHandler *reporting.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router. Every business route sits behind the
// actor middleware; health and metrics do not.
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
			if err := params.Pool.Ping(req.Context()); err != nil {
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(shared.ActorMiddleware)

		api.Route("/customers", params.CustomersHandler.MountRoutes)
		api.Route("/quotes", params.QuotesHandler.MountRoutes)
		api.Route("/invoices", params.InvoicesHandler.MountRoutes)
		api.Route("/payments", params.PaymentsHandler.MountRoutes)
		api.Route("/jobs", params.WorkshopHandler.MountRoutes)
		api.Route("/inventory", params.InventoryHandler.MountRoutes)
		api.Route("/reports", params.ReportingHandler.MountRoutes)
	})

	return r
}
