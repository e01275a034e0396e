package workshop

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rimworks/rimworks/internal/platform/httpx"
	"github.com/rimworks/rimworks/internal/runner"
	"github.com/rimworks/rimworks/internal/shared"
)

// Handler exposes the workshop job endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers job routes on the provided router. Pickup and
// overnight are floor-language aliases over the lifecycle primitives.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/from-invoice/{invoiceID}", h.sendToTechnician)
	r.Get("/{id}", h.show)
	r.Post("/{id}/accept", h.accept)
	r.Post("/{id}/start", h.start)
	r.Post("/{id}/complete", h.complete)
	r.Post("/{id}/pickup", h.complete)
	r.Put("/{id}/due-date", h.setDueDate)
	r.Post("/{id}/overnight", h.markOvernight)
	r.Put("/{id}/notes", h.setNotes)
	r.Post("/{id}/reverse", h.reverse)
}

func (h *Handler) sendToTechnician(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := strconv.ParseInt(chi.URLParam(r, "invoiceID"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid invoice id", nil)
		return
	}
	actor := shared.ActorFromContext(r.Context())

	jobs, problem := runner.Run(r.Context(), h.logger, "workshop.send_to_technician", func(ctx context.Context) ([]Job, error) {
		return h.service.SendToTechnician(ctx, invoiceID, actor.UserID)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"jobs": jobs})
}

type acceptJobBody struct {
	TechnicianID int64 `json:"technician_id" validate:"omitempty,gt=0"`
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}

	var body acceptJobBody
	if err := httpx.DecodeJSON(r, &body); err != nil && !errors.Is(err, httpx.ErrEmptyBody) {
		httpx.BadRequest(w, "invalid request body", nil)
		return
	}
	technicianID := body.TechnicianID
	if technicianID == 0 {
		technicianID = shared.ActorFromContext(r.Context()).UserID
	}

	job, problem := runner.Run(r.Context(), h.logger, "workshop.accept", func(ctx context.Context) (*Job, error) {
		return h.service.Accept(ctx, id, technicianID)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}

	job, problem := runner.Run(r.Context(), h.logger, "workshop.start", func(ctx context.Context) (*Job, error) {
		return h.service.Start(ctx, id)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}

	job, problem := runner.Run(r.Context(), h.logger, "workshop.complete", func(ctx context.Context) (*Job, error) {
		return h.service.Complete(ctx, id)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

type setDueDateBody struct {
	DueDate     *string `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	IsOvernight bool    `json:"is_overnight"`
}

func (h *Handler) setDueDate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}

	var body setDueDateBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		httpx.BadRequest(w, "validation failed", validationDetail(err))
		return
	}

	var due *time.Time
	if body.DueDate != nil {
		t, _ := time.Parse(time.RFC3339, *body.DueDate)
		due = &t
	}

	job, problem := runner.Run(r.Context(), h.logger, "workshop.set_due_date", func(ctx context.Context) (*Job, error) {
		return h.service.SetDueDate(ctx, id, due, body.IsOvernight)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

type markOvernightBody struct {
	DueDate string `json:"due_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

// markOvernight composes the due-date and note primitives: the job gets a
// deadline, the overnight flag, and a tag on its notes for the board.
func (h *Handler) markOvernight(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}

	var body markOvernightBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		httpx.BadRequest(w, "validation failed", validationDetail(err))
		return
	}
	due, _ := time.Parse(time.RFC3339, body.DueDate)

	job, problem := runner.Run(r.Context(), h.logger, "workshop.mark_overnight", func(ctx context.Context) (*Job, error) {
		job, err := h.service.SetDueDate(ctx, id, &due, true)
		if err != nil {
			return nil, err
		}
		if !strings.Contains(job.Notes, "[OVERNIGHT]") {
			notes := "[OVERNIGHT]"
			if job.Notes != "" {
				notes = job.Notes + "\n" + notes
			}
			return h.service.AddNote(ctx, id, notes)
		}
		return job, nil
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

type setNotesBody struct {
	Notes string `json:"notes"`
}

func (h *Handler) setNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}

	var body setNotesBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body", nil)
		return
	}

	job, problem := runner.Run(r.Context(), h.logger, "workshop.set_notes", func(ctx context.Context) (*Job, error) {
		return h.service.AddNote(ctx, id, body.Notes)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

type reverseJobBody struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) reverse(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}

	var body reverseJobBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		httpx.BadRequest(w, "validation failed", validationDetail(err))
		return
	}
	actor := shared.ActorFromContext(r.Context())

	job, problem := runner.Run(r.Context(), h.logger, "workshop.reverse", func(ctx context.Context) (*Job, error) {
		return h.service.Reverse(ctx, id, body.Reason, actor.UserID)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}

	job, problem := runner.Run(r.Context(), h.logger, "workshop.get", func(ctx context.Context) (*Job, error) {
		return h.service.Get(ctx, id)
	})
	if problem != nil {
		problem.Write(w)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	req := ListJobsRequest{Limit: limit, Offset: offset}
	if raw := r.URL.Query().Get("invoice_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			req.InvoiceID = &id
		}
	}
	if raw := r.URL.Query().Get("technician_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			req.TechnicianID = &id
		}
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := JobStatus(raw)
		req.Status = &status
	}

	list, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list jobs", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, httpx.ErrorBody{Code: "INTERNAL", Message: "internal error"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"jobs": list, "total": total})
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

func (h *Handler) jobID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid job id", nil)
		return 0, false
	}
	return id, true
}
