package quotes

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

// Handler exposes the quote endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers quote routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
}

type createQuoteItemBody struct {
	Vehicle     string   `json:"vehicle" validate:"required"`
	Damage      string   `json:"damage"`
	Quantity    int      `json:"quantity" validate:"required,gt=0"`
	UnitCost    int64    `json:"unit_cost" validate:"gte=0"`
	JobTypes    []string `json:"job_types"`
	Description string   `json:"description"`
	SortOrder   int      `json:"sort_order"`
}

type createQuoteBody struct {
	CustomerID      int64                 `json:"customer_id" validate:"required,gt=0"`
	DiscountPercent int                   `json:"discount_percent" validate:"gte=0,lte=100"`
	ValidUntil      string                `json:"valid_until" validate:"omitempty,datetime=2006-01-02"`
	Items           []createQuoteItemBody `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var body createQuoteBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		httpx.BadRequest(w, "validation failed", validationDetail(err))
		return
	}

	actor := shared.ActorFromContext(r.Context())

	req := CreateQuoteRequest{
		CustomerID:      body.CustomerID,
		DiscountPercent: body.DiscountPercent,
	}
	if body.ValidUntil != "" {
		req.ValidUntil, _ = time.Parse("2006-01-02", body.ValidUntil)
	}
	for _, it := range body.Items {
		req.Items = append(req.Items, CreateQuoteItemRequest{
			Vehicle:     it.Vehicle,
			Damage:      it.Damage,
			Quantity:    it.Quantity,
			UnitCost:    it.UnitCost,
			JobTypes:    it.JobTypes,
			Description: it.Description,
			SortOrder:   it.SortOrder,
		})
	}

	quote, problem := runner.Run(r.Context(), h.logger, "quotes.create", func(ctx context.Context) (*Quote, error) {
		return h.service.Create(ctx, req, actor.UserID)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusCreated, quote)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid quote id", nil)
		return
	}

	quote, problem := runner.Run(r.Context(), h.logger, "quotes.get", func(ctx context.Context) (*Quote, error) {
		return h.service.Get(ctx, id)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	req := ListQuotesRequest{Limit: limit, Offset: offset}
	if raw := r.URL.Query().Get("customer_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			req.CustomerID = &id
		}
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := QuoteStatus(raw)
		req.Status = &status
	}

	list, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list quotes", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, httpx.ErrorBody{Code: "INTERNAL", Message: "internal error"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"quotes": list, "total": total})
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
