package reporting

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the dashboard aggregates. All queries are read-only and
// safe to run in parallel.
type Repository interface {
	JobCountsByStatus(ctx context.Context) (map[string]int, error)
	InvoiceStatusCounts(ctx context.Context) (unpaid, partiallyPaid int, err error)
	OutstandingBalance(ctx context.Context) (int64, error)
	PaymentsTotalForDate(ctx context.Context, date time.Time) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) JobCountsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM repair_jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *repository) InvoiceStatusCounts(ctx context.Context) (int, int, error) {
	var unpaid, partiallyPaid int
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'unpaid'),
			COUNT(*) FILTER (WHERE status = 'partially_paid')
		FROM invoices`).Scan(&unpaid, &partiallyPaid)
	return unpaid, partiallyPaid, err
}

// OutstandingBalance sums what is still owed across open invoices.
func (r *repository) OutstandingBalance(ctx context.Context) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(i.total - COALESCE(p.paid, 0)), 0)
		FROM invoices i
		LEFT JOIN (SELECT invoice_id, SUM(amount) AS paid FROM payments GROUP BY invoice_id) p
		  ON p.invoice_id = i.id
		WHERE i.status <> 'paid'`).Scan(&balance)
	return balance, err
}

func (r *repository) PaymentsTotalForDate(ctx context.Context, date time.Time) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM payments WHERE created_at::date = $1`,
		pgtype.Date{Time: date, Valid: true}).Scan(&total)
	return total, err
}
