package reporting

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type repoFake struct {
	calls atomic.Int32
}

func (f *repoFake) JobCountsByStatus(_ context.Context) (map[string]int, error) {
	f.calls.Add(1)
	return map[string]int{"pending": 2, "completed": 5}, nil
}

func (f *repoFake) InvoiceStatusCounts(_ context.Context) (int, int, error) {
	return 3, 1, nil
}

func (f *repoFake) OutstandingBalance(_ context.Context) (int64, error) {
	return 1250000, nil
}

func (f *repoFake) PaymentsTotalForDate(_ context.Context, _ time.Time) (int64, error) {
	return 337500, nil
}

func newTestService(t *testing.T, repo Repository) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewService(repo, client, time.Minute, slog.New(slog.DiscardHandler)), mr
}

func TestDaySummaryAggregates(t *testing.T) {
	repo := &repoFake{}
	svc, _ := newTestService(t, repo)

	summary, err := svc.DaySummary(context.Background(), time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "2026-08-28", summary.Date)
	require.Equal(t, 2, summary.JobCounts["pending"])
	require.Equal(t, 5, summary.JobCounts["completed"])
	require.Equal(t, 3, summary.UnpaidInvoices)
	require.Equal(t, 1, summary.PartiallyPaidInvoices)
	require.Equal(t, int64(1250000), summary.OutstandingBalance)
	require.Equal(t, "Rp 1,250,000", summary.OutstandingDisplay)
	require.Equal(t, "Rp 337,500", summary.PaymentsTodayDisplay)
}

func TestDaySummaryServedFromCache(t *testing.T) {
	repo := &repoFake{}
	svc, mr := newTestService(t, repo)
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	first, err := svc.DaySummary(context.Background(), date)
	require.NoError(t, err)
	require.EqualValues(t, 1, repo.calls.Load())
	require.True(t, mr.Exists("reporting:summary:2026-08-28"))

	second, err := svc.DaySummary(context.Background(), date)
	require.NoError(t, err)
	require.EqualValues(t, 1, repo.calls.Load())
	require.Equal(t, first.OutstandingBalance, second.OutstandingBalance)
}

func TestDaySummaryCacheExpiry(t *testing.T) {
	repo := &repoFake{}
	svc, mr := newTestService(t, repo)
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	_, err := svc.DaySummary(context.Background(), date)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = svc.DaySummary(context.Background(), date)
	require.NoError(t, err)
	require.EqualValues(t, 2, repo.calls.Load())
}

func TestDaySummaryWithoutCache(t *testing.T) {
	repo := &repoFake{}
	svc := NewService(repo, nil, time.Minute, slog.New(slog.DiscardHandler))

	_, err := svc.DaySummary(context.Background(), time.Now())
	require.NoError(t, err)
	_, err = svc.DaySummary(context.Background(), time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 2, repo.calls.Load())
}
