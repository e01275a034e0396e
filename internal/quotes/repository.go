package quotes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rimworks/rimworks/internal/platform/db"
)

// ErrNotFound indicates a missing quote row.
var ErrNotFound = errors.New("quote not found")

// Repository persists quotes and their items.
type Repository interface {
	Get(ctx context.Context, id int64) (*Quote, error)
	Create(ctx context.Context, quote Quote) (int64, error)
	List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error)
	UpdateStatus(ctx context.Context, id int64, status QuoteStatus) error
	GenerateNumber(ctx context.Context, date time.Time) (string, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (*Quote, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, number, customer_id, created_by, status, discount_percent,
		       subtotal, discount_amount, total, valid_until, created_at, updated_at
		FROM quotes WHERE id = $1`, id)
	q, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	q.Items = items
	return q, nil
}

func (r *repository) items(ctx context.Context, quoteID int64) ([]QuoteItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, quote_id, vehicle, damage, quantity, unit_cost, job_types, description, sort_order
		FROM quote_items WHERE quote_id = $1 ORDER BY sort_order, id`, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []QuoteItem
	for rows.Next() {
		var it QuoteItem
		if err := rows.Scan(&it.ID, &it.QuoteID, &it.Vehicle, &it.Damage, &it.Quantity, &it.UnitCost, &it.JobTypes, &it.Description, &it.SortOrder); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Create inserts the quote and all its items in one transaction.
func (r *repository) Create(ctx context.Context, quote Quote) (int64, error) {
	var quoteID int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO quotes (number, customer_id, created_by, status, discount_percent,
			                    subtotal, discount_amount, total, valid_until, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
			RETURNING id
		`, quote.Number, quote.CustomerID, quote.CreatedBy, quote.Status, quote.DiscountPercent,
			quote.Subtotal, quote.DiscountAmount, quote.Total,
			pgtype.Date{Time: quote.ValidUntil, Valid: !quote.ValidUntil.IsZero()}).Scan(&quoteID)
		if err != nil {
			return fmt.Errorf("insert quote: %w", err)
		}

		for _, it := range quote.Items {
			_, err := tx.Exec(ctx, `
				INSERT INTO quote_items (quote_id, vehicle, damage, quantity, unit_cost, job_types, description, sort_order)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, quoteID, it.Vehicle, it.Damage, it.Quantity, it.UnitCost, it.JobTypes, it.Description, it.SortOrder)
			if err != nil {
				return fmt.Errorf("insert quote item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return quoteID, nil
}

func (r *repository) List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	argPos := 1

	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argPos))
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}

	where := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		where += " AND " + conditions[i]
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM quotes %s", where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT id, number, customer_id, created_by, status, discount_percent,
		       subtotal, discount_amount, total, valid_until, created_at, updated_at
		FROM quotes %s
		ORDER BY id DESC
		LIMIT $%d OFFSET $%d`, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *q)
	}
	return list, total, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status QuoteStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE quotes SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GenerateNumber allocates the next sequential quote number for the month.
// QT-{YYMM}-{SEQ}
func (r *repository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	var seq int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, "QT", date.Format("200601")).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("QT-%s-%04d", date.Format("0601"), seq), nil
}

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	var validUntil pgtype.Date
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&q.ID, &q.Number, &q.CustomerID, &q.CreatedBy, &q.Status, &q.DiscountPercent,
		&q.Subtotal, &q.DiscountAmount, &q.Total, &validUntil, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if validUntil.Valid {
		q.ValidUntil = validUntil.Time
	}
	q.CreatedAt = createdAt.Time
	q.UpdatedAt = updatedAt.Time
	return &q, nil
}
