package payments

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

// IdempotencyPort guards against double-submitted payment POSTs.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Handler exposes the payment endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	idem     IdempotencyPort
	validate *validator.Validate
}

// NewHandler constructs a Handler instance. idem may be nil; the
// idempotency guard is then skipped.
func NewHandler(logger *slog.Logger, service *Service, idem IdempotencyPort) *Handler {
	return &Handler{logger: logger, service: service, idem: idem, validate: validator.New()}
}

// MountRoutes registers payment routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.record)
	r.Get("/invoice/{invoiceID}", h.listByInvoice)
}

type recordPaymentBody struct {
	InvoiceID int64  `json:"invoice_id" validate:"required,gt=0"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Mode      string `json:"mode" validate:"required,oneof=cash transfer card qris"`
	Reference string `json:"reference"`
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var body recordPaymentBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		httpx.BadRequest(w, "validation failed", validationDetail(err))
		return
	}

	// Double-submit guard before the balance check ever runs. The key is
	// released on service failure so a corrected retry can pass.
	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idem != nil {
		if err := h.idem.CheckAndInsert(r.Context(), idemKey, "payments"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Error(w, http.StatusConflict, httpx.ErrorBody{Code: "CONFLICT", Message: "payment already submitted"})
				return
			}
			h.logger.Error("idempotency check", slog.Any("error", err))
			httpx.Error(w, http.StatusInternalServerError, httpx.ErrorBody{Code: "INTERNAL", Message: "internal error"})
			return
		}
	}

	actor := shared.ActorFromContext(r.Context())

	receipt, problem := runner.Run(r.Context(), h.logger, "payments.record", func(ctx context.Context) (*Receipt, error) {
		return h.service.Record(ctx, RecordPaymentRequest{
			InvoiceID:  body.InvoiceID,
			Amount:     body.Amount,
			Mode:       Mode(body.Mode),
			Reference:  body.Reference,
			ReceivedBy: actor.UserID,
		})
	})
	if problem != nil {
		if idemKey != "" && h.idem != nil {
			_ = h.idem.Delete(r.Context(), idemKey)
		}
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusCreated, receipt)
}

func (h *Handler) listByInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := strconv.ParseInt(chi.URLParam(r, "invoiceID"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid invoice id", nil)
		return
	}

	list, err := h.service.ListByInvoice(r.Context(), invoiceID)
	if err != nil {
		h.logger.Error("list payments", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, httpx.ErrorBody{Code: "INTERNAL", Message: "internal error"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": list})
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
