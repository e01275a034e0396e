package runner

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rimworks/rimworks/internal/fault"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRunReturnsValueOnSuccess(t *testing.T) {
	v, problem := Run(context.Background(), testLogger(), "test.op", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.Nil(t, problem)
	require.Equal(t, 42, v)
}

func TestRunMapsTaggedFailure(t *testing.T) {
	_, problem := Run(context.Background(), testLogger(), "payments.record", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fault.PaymentExceedsBalance{InvoiceID: 1, Balance: 100, Attempted: 200}
	})
	require.NotNil(t, problem)
	require.Equal(t, http.StatusBadRequest, problem.Status)
	require.Equal(t, "BAD_REQUEST", problem.Code)
	require.Equal(t, int64(100), problem.Detail["balance"])
}

func TestRunMapsNotFoundAndConflict(t *testing.T) {
	_, problem := Run(context.Background(), testLogger(), "invoices.get", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fault.InvoiceNotFound{InvoiceID: 9}
	})
	require.Equal(t, http.StatusNotFound, problem.Status)

	_, problem = Run(context.Background(), testLogger(), "invoices.convert", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fault.QuoteAlreadyConverted{QuoteID: 9}
	})
	require.Equal(t, http.StatusConflict, problem.Status)
}

func TestRunKeepsUnknownErrorsOpaque(t *testing.T) {
	_, problem := Run(context.Background(), testLogger(), "invoices.get", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, errors.New("dial tcp: connection refused")
	})
	require.NotNil(t, problem)
	require.Equal(t, http.StatusInternalServerError, problem.Status)
	require.Equal(t, "INTERNAL", problem.Code)
	require.NotContains(t, problem.Message, "dial tcp")
}
