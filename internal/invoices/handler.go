package invoices

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rimworks/rimworks/internal/platform/httpx"
	"github.com/rimworks/rimworks/internal/runner"
	"github.com/rimworks/rimworks/internal/shared"
)

// Handler exposes the invoice endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers invoice routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/from-quote/{quoteID}", h.createFromQuote)
	r.Get("/{id}", h.show)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/recalc-status", h.recalcStatus)
	r.Patch("/{id}/items/{itemID}/cost", h.updateItemCost)
}

func (h *Handler) createFromQuote(w http.ResponseWriter, r *http.Request) {
	quoteID, err := strconv.ParseInt(chi.URLParam(r, "quoteID"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid quote id", nil)
		return
	}
	actor := shared.ActorFromContext(r.Context())

	invoice, problem := runner.Run(r.Context(), h.logger, "invoices.create_from_quote", func(ctx context.Context) (*Invoice, error) {
		return h.service.CreateFromQuote(ctx, quoteID, actor.UserID)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

type updateInvoiceBody struct {
	Notes    *string `json:"notes"`
	Discount *int64  `json:"discount" validate:"omitempty,gte=0"`
	Tax      *int64  `json:"tax" validate:"omitempty,gte=0"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid invoice id", nil)
		return
	}

	var body updateInvoiceBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		httpx.BadRequest(w, "validation failed", validationDetail(err))
		return
	}

	invoice, problem := runner.Run(r.Context(), h.logger, "invoices.update", func(ctx context.Context) (*Invoice, error) {
		return h.service.Update(ctx, id, UpdateInvoiceRequest{
			Notes:    body.Notes,
			Discount: body.Discount,
			Tax:      body.Tax,
		})
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

type updateItemCostBody struct {
	UnitCost int64 `json:"unit_cost" validate:"gte=0"`
}

func (h *Handler) updateItemCost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid invoice id", nil)
		return
	}
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid item id", nil)
		return
	}

	var body updateItemCostBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		httpx.BadRequest(w, "validation failed", validationDetail(err))
		return
	}

	invoice, problem := runner.Run(r.Context(), h.logger, "invoices.update_item_cost", func(ctx context.Context) (*Invoice, error) {
		return h.service.UpdateItemCost(ctx, id, itemID, body.UnitCost)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid invoice id", nil)
		return
	}
	actor := shared.ActorFromContext(r.Context())

	_, problem := runner.Run(r.Context(), h.logger, "invoices.delete", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.service.Delete(ctx, id, actor.UserID)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recalcStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid invoice id", nil)
		return
	}

	status, problem := runner.Run(r.Context(), h.logger, "invoices.recalc_status", func(ctx context.Context) (InvoiceStatus, error) {
		return h.service.RecalcStatus(ctx, id)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoice_id": id, "status": status})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid invoice id", nil)
		return
	}

	invoice, problem := runner.Run(r.Context(), h.logger, "invoices.get", func(ctx context.Context) (*Invoice, error) {
		return h.service.Get(ctx, id)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	req := ListInvoicesRequest{Limit: limit, Offset: offset}
	if raw := r.URL.Query().Get("customer_id"); raw != "" {
		if cid, err := strconv.ParseInt(raw, 10, 64); err == nil {
			req.CustomerID = &cid
		}
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := InvoiceStatus(raw)
		req.Status = &status
	}

	list, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, httpx.ErrorBody{Code: "INTERNAL", Message: "internal error"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": list, "total": total})
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
