package customers

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
)

// Handler exposes the customer endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers customer routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
}

type createCustomerBody struct {
	Name            string  `json:"name" validate:"required"`
	Phone           string  `json:"phone" validate:"required,min=6"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Birthday        *string `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
	IsVIP           bool    `json:"is_vip"`
	DiscountPercent int     `json:"discount_percent" validate:"gte=0,lte=100"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var body createCustomerBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		httpx.BadRequest(w, "validation failed", validationDetail(err))
		return
	}

	req := CreateCustomerRequest{
		Name:            body.Name,
		Phone:           body.Phone,
		Email:           body.Email,
		IsVIP:           body.IsVIP,
		DiscountPercent: body.DiscountPercent,
	}
	if body.Birthday != nil {
		t, _ := time.Parse("2006-01-02", *body.Birthday)
		req.Birthday = &t
	}

	customer, problem := runner.Run(r.Context(), h.logger, "customers.create", func(ctx context.Context) (*Customer, error) {
		return h.service.Create(ctx, req)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusCreated, customer)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid customer id", nil)
		return
	}

	customer, problem := runner.Run(r.Context(), h.logger, "customers.get", func(ctx context.Context) (*Customer, error) {
		return h.service.Get(ctx, id)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, total, err := h.service.List(r.Context(), ListCustomersRequest{
		Search: r.URL.Query().Get("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.logger.Error("list customers", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, httpx.ErrorBody{Code: "INTERNAL", Message: "internal error"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"customers": list, "total": total})
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
