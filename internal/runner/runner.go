// Package runner executes service operations on behalf of API entry points
// and translates tagged domain failures into caller-facing problems. It is
// the only place deciding how a taxonomy variant surfaces over the wire.
package runner

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rimworks/rimworks/internal/fault"
)

// Problem is the structured error handed back to the API layer.
type Problem struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// Run executes one service operation. Tagged failures become a Problem with
// a stable code; anything else is logged and collapsed into an opaque
// internal error so infrastructure faults never masquerade as business
// rejections.
func Run[T any](ctx context.Context, logger *slog.Logger, op string, fn func(context.Context) (T, error)) (T, *Problem) {
	value, err := fn(ctx)
	if err == nil {
		return value, nil
	}

	var zero T
	if cl, ok := fault.Classify(err); ok {
		logger.Info("domain failure", slog.String("op", op), slog.String("code", string(cl.Code)), slog.String("reason", cl.Message))
		return zero, &Problem{
			Status:  statusFor(cl.Code),
			Code:    string(cl.Code),
			Message: cl.Message,
			Detail:  cl.Detail,
		}
	}

	logger.Error("operation failed", slog.String("op", op), slog.Any("error", err))
	return zero, &Problem{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL",
		Message: "internal error",
	}
}

// Write renders the problem as the standard error envelope.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": p})
}

func statusFor(code fault.Code) int {
	switch code {
	case fault.CodeNotFound:
		return http.StatusNotFound
	case fault.CodeConflict:
		return http.StatusConflict
	case fault.CodeBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
