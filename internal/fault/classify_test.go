package fault

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassifyNotFoundVariants(t *testing.T) {
	cl, ok := Classify(QuoteNotFound{QuoteID: 7})
	require.True(t, ok)
	require.Equal(t, CodeNotFound, cl.Code)
	require.Equal(t, int64(7), cl.Detail["quote_id"])

	cl, ok = Classify(InvoiceNotFound{InvoiceID: 3})
	require.True(t, ok)
	require.Equal(t, CodeNotFound, cl.Code)

	cl, ok = Classify(JobNotFound{JobID: 12})
	require.True(t, ok)
	require.Equal(t, CodeNotFound, cl.Code)
}

func TestClassifyConflictVariants(t *testing.T) {
	for _, err := range []error{
		QuoteAlreadyConverted{QuoteID: 1},
		InvoiceHasNoItems{InvoiceID: 2},
		InvoiceHasPayments{InvoiceID: 2},
		InvoiceHasJobs{InvoiceID: 2},
		JobsAlreadyCreated{InvoiceID: 2},
		JobAlreadyAccepted{JobID: 4},
		JobAlreadyCompleted{JobID: 4},
		JobNotAccepted{JobID: 4},
		JobCannotBeReversed{JobID: 4},
		EODAlreadyExists{RecordDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		SODAlreadyExists{RecordDate: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)},
	} {
		cl, ok := Classify(err)
		require.True(t, ok, "variant %T must classify", err)
		require.Equal(t, CodeConflict, cl.Code, "variant %T", err)
		require.NotEmpty(t, cl.Message)
	}
}

func TestClassifyPaymentExceedsBalanceCarriesDetail(t *testing.T) {
	cl, ok := Classify(PaymentExceedsBalance{InvoiceID: 9, Balance: 0, Attempted: 1})
	require.True(t, ok)
	require.Equal(t, CodeBadRequest, cl.Code)
	require.Equal(t, int64(0), cl.Detail["balance"])
	require.Equal(t, int64(1), cl.Detail["attempted"])
}

func TestClassifySeesThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("convert quote: %w", QuoteAlreadyConverted{QuoteID: 5})
	cl, ok := Classify(wrapped)
	require.True(t, ok)
	require.Equal(t, CodeConflict, cl.Code)
	require.Equal(t, int64(5), cl.Detail["quote_id"])
}

func TestClassifyRejectsUntaggedErrors(t *testing.T) {
	_, ok := Classify(errors.New("connection refused"))
	require.False(t, ok)

	_, ok = Classify(nil)
	require.False(t, ok)
}
