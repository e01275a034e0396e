package inventory

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rimworks/rimworks/internal/platform/httpx"
	"github.com/rimworks/rimworks/internal/runner"
	"github.com/rimworks/rimworks/internal/shared"
)

// Handler exposes the reconciliation endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers inventory routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/eod", h.createEOD)
	r.Post("/sod", h.createSOD)
}

type createRecordBody struct {
	RecordDate string `json:"record_date" validate:"required,datetime=2006-01-02"`
	RimCount   int    `json:"rim_count" validate:"gte=0"`
	Notes      string `json:"notes"`
}

func (h *Handler) createEOD(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRecord(w, r)
	if !ok {
		return
	}

	rec, problem := runner.Run(r.Context(), h.logger, "inventory.create_eod", func(ctx context.Context) (*InventoryRecord, error) {
		return h.service.CreateEOD(ctx, req)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) createSOD(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRecord(w, r)
	if !ok {
		return
	}

	rec, problem := runner.Run(r.Context(), h.logger, "inventory.create_sod", func(ctx context.Context) (*InventoryRecord, error) {
		return h.service.CreateSOD(ctx, req)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) decodeRecord(w http.ResponseWriter, r *http.Request) (CreateRecordRequest, bool) {
	var body createRecordBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body", nil)
		return CreateRecordRequest{}, false
	}
	if err := h.validate.Struct(body); err != nil {
		httpx.BadRequest(w, "validation failed", validationDetail(err))
		return CreateRecordRequest{}, false
	}

	date, _ := time.Parse("2006-01-02", body.RecordDate)
	actor := shared.ActorFromContext(r.Context())
	return CreateRecordRequest{
		RecordDate: date,
		RimCount:   body.RimCount,
		Notes:      body.Notes,
		RecordedBy: actor.UserID,
	}, true
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	req := ListRecordsRequest{Limit: limit, Offset: offset}
	if raw := r.URL.Query().Get("type"); raw != "" {
		typ := RecordType(raw)
		req.Type = &typ
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			req.From = &t
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			req.To = &t
		}
	}

	list, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list inventory records", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, httpx.ErrorBody{Code: "INTERNAL", Message: "internal error"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"records": list, "total": total})
}

func validationDetail(err error) map[string]any {
	detail := make(map[string]any)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			detail[fe.Field()] = fe.Tag()
		}
	}
	return detail
}
