package reporting

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rimworks/rimworks/internal/platform/httpx"
	"github.com/rimworks/rimworks/internal/runner"
)

// Handler exposes the dashboard endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers reporting routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/summary", h.daySummary)
}

func (h *Handler) daySummary(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.BadRequest(w, "invalid date", nil)
			return
		}
		date = parsed
	}

	summary, problem := runner.Run(r.Context(), h.logger, "reporting.day_summary", func(ctx context.Context) (*Summary, error) {
		return h.service.DaySummary(ctx, date)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
