package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary is the shop dashboard for one calendar date.
type Summary struct {
	Date                  string         `json:"date"`
	JobCounts             map[string]int `json:"job_counts"`
	UnpaidInvoices        int            `json:"unpaid_invoices"`
	PartiallyPaidInvoices int            `json:"partially_paid_invoices"`
	OutstandingBalance    int64          `json:"outstanding_balance"`
	OutstandingDisplay    string         `json:"outstanding_display"`
	PaymentsToday         int64          `json:"payments_today"`
	PaymentsTodayDisplay  string         `json:"payments_today_display"`
	GeneratedAt           time.Time      `json:"generated_at"`
}

// Service builds the day summary. Aggregates run in parallel, concurrent
// builds for the same date collapse into one, and finished summaries sit in
// redis for a short TTL.
type Service struct {
	repo    Repository
	cache   *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	group   singleflight.Group
	printer *message.Printer
}

// NewService builds Service. cache may be nil; summaries are then rebuilt
// on every call.
func NewService(repo Repository, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{
		repo:    repo,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
		printer: message.NewPrinter(language.English),
	}
}

// DaySummary returns the dashboard for the given date.
func (s *Service) DaySummary(ctx context.Context, date time.Time) (*Summary, error) {
	key := "reporting:summary:" + date.Format("2006-01-02")

	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			var cached Summary
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("summary cache read", slog.Any("error", err))
		}
	}

	value, err, _ := s.group.Do(key, func() (any, error) {
		summary, err := s.build(ctx, date)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if raw, err := json.Marshal(summary); err == nil {
				if err := s.cache.Set(ctx, key, raw, s.ttl).Err(); err != nil {
					s.logger.Warn("summary cache write", slog.Any("error", err))
				}
			}
		}
		return summary, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*Summary), nil
}

func (s *Service) build(ctx context.Context, date time.Time) (*Summary, error) {
	var (
		jobCounts       map[string]int
		unpaid, partial int
		outstanding     int64
		paymentsToday   int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		jobCounts, err = s.repo.JobCountsByStatus(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		unpaid, partial, err = s.repo.InvoiceStatusCounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		outstanding, err = s.repo.OutstandingBalance(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		paymentsToday, err = s.repo.PaymentsTotalForDate(gctx, date)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build summary: %w", err)
	}

	return &Summary{
		Date:                  date.Format("2006-01-02"),
		JobCounts:             jobCounts,
		UnpaidInvoices:        unpaid,
		PartiallyPaidInvoices: partial,
		OutstandingBalance:    outstanding,
		OutstandingDisplay:    s.money(outstanding),
		PaymentsToday:         paymentsToday,
		PaymentsTodayDisplay:  s.money(paymentsToday),
		GeneratedAt:           time.Now(),
	}, nil
}

// money renders minor currency units with digit grouping for the dashboard.
func (s *Service) money(amount int64) string {
	return s.printer.Sprintf("Rp %d", amount)
}
