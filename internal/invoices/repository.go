package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rimworks/rimworks/internal/quotes"
)

var (
	// ErrNotFound indicates a missing invoice row.
	ErrNotFound = errors.New("invoice not found")
	// ErrQuoteTaken indicates the unique quote_id constraint fired; the
	// quote is already converted.
	ErrQuoteTaken = errors.New("quote already referenced by an invoice")
)

// Repository persists invoices. Multi-row writes run through WithTx so the
// service controls transaction boundaries.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
}

// TxRepository exposes the operations available inside one transaction.
// GenerateNumber lives here so a conversion that fails rolls its sequence
// increment back instead of leaving a gap in the series.
type TxRepository interface {
	GenerateNumber(ctx context.Context, date time.Time) (string, error)
	InvoiceExistsForQuote(ctx context.Context, quoteID int64) (bool, error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	InsertItems(ctx context.Context, invoiceID int64, items []InvoiceItem) error
	SetQuoteStatus(ctx context.Context, quoteID int64, status quotes.QuoteStatus) error
	GetInvoiceForUpdate(ctx context.Context, id int64) (*Invoice, error)
	GetItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error)
	UpdateHeader(ctx context.Context, id int64, notes string, discount, tax, total int64) error
	SetItemCost(ctx context.Context, itemID int64, unitCost int64) error
	SetSubtotal(ctx context.Context, id int64, subtotal, total int64) error
	PaymentCount(ctx context.Context, invoiceID int64) (int, error)
	JobCount(ctx context.Context, invoiceID int64) (int, error)
	PaymentSum(ctx context.Context, invoiceID int64) (int64, error)
	SetStatus(ctx context.Context, invoiceID int64, status InvoiceStatus) error
	DeleteItems(ctx context.Context, invoiceID int64) error
	DeleteInvoice(ctx context.Context, invoiceID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes fn inside a read-committed transaction; all contained
// writes commit together or not at all. Read committed keeps the guarded
// reads honest: payment and job counts taken after the FOR UPDATE lock see
// rows committed while the lock was contended.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const invoiceColumns = `id, number, quote_id, customer_id, status, subtotal, discount, tax, total, notes, created_by, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	items, err := queryItems(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

func (r *repository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
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
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM invoices %s", where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM invoices %s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *inv)
	}
	return list, total, rows.Err()
}

// GenerateNumber allocates the next sequential invoice number for the
// month. INV-{YYMM}-{SEQ}
func (t *txRepo) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	var seq int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, "INV", date.Format("200601")).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%s-%04d", date.Format("0601"), seq), nil
}

func (t *txRepo) InvoiceExistsForQuote(ctx context.Context, quoteID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE quote_id = $1)`, quoteID).Scan(&exists)
	return exists, err
}

func (t *txRepo) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO invoices (number, quote_id, customer_id, status, subtotal, discount, tax, total, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id
	`, inv.Number, inv.QuoteID, inv.CustomerID, inv.Status, inv.Subtotal, inv.Discount, inv.Tax, inv.Total, inv.Notes, inv.CreatedBy).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrQuoteTaken
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepo) InsertItems(ctx context.Context, invoiceID int64, items []InvoiceItem) error {
	for _, it := range items {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO invoice_items (invoice_id, quote_item_id, vehicle, damage, quantity, unit_cost, job_types, description, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, invoiceID, it.QuoteItemID, it.Vehicle, it.Damage, it.Quantity, it.UnitCost, it.JobTypes, it.Description, it.SortOrder)
		if err != nil {
			return fmt.Errorf("insert invoice item: %w", err)
		}
	}
	return nil
}

func (t *txRepo) SetQuoteStatus(ctx context.Context, quoteID int64, status quotes.QuoteStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE quotes SET status = $1, updated_at = NOW() WHERE id = $2`, status, quoteID)
	return err
}

func (t *txRepo) GetInvoiceForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (t *txRepo) GetItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error) {
	return queryItems(ctx, t.tx, invoiceID)
}

func (t *txRepo) UpdateHeader(ctx context.Context, id int64, notes string, discount, tax, total int64) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE invoices SET notes = $1, discount = $2, tax = $3, total = $4, updated_at = NOW()
		WHERE id = $5`, notes, discount, tax, total, id)
	return err
}

func (t *txRepo) SetItemCost(ctx context.Context, itemID int64, unitCost int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE invoice_items SET unit_cost = $1 WHERE id = $2`, unitCost, itemID)
	return err
}

func (t *txRepo) SetSubtotal(ctx context.Context, id int64, subtotal, total int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE invoices SET subtotal = $1, total = $2, updated_at = NOW() WHERE id = $3`, subtotal, total, id)
	return err
}

func (t *txRepo) PaymentCount(ctx context.Context, invoiceID int64) (int, error) {
	var count int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE invoice_id = $1`, invoiceID).Scan(&count)
	return count, err
}

func (t *txRepo) JobCount(ctx context.Context, invoiceID int64) (int, error) {
	var count int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM repair_jobs WHERE invoice_id = $1`, invoiceID).Scan(&count)
	return count, err
}

func (t *txRepo) PaymentSum(ctx context.Context, invoiceID int64) (int64, error) {
	var sum int64
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1`, invoiceID).Scan(&sum)
	return sum, err
}

func (t *txRepo) SetStatus(ctx context.Context, invoiceID int64, status InvoiceStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2`, status, invoiceID)
	return err
}

func (t *txRepo) DeleteItems(ctx context.Context, invoiceID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID)
	return err
}

func (t *txRepo) DeleteInvoice(ctx context.Context, invoiceID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, invoiceID)
	return err
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryItems(ctx context.Context, q queryer, invoiceID int64) ([]InvoiceItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, invoice_id, quote_item_id, vehicle, damage, quantity, unit_cost, job_types, description, sort_order
		FROM invoice_items WHERE invoice_id = $1 ORDER BY sort_order, id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []InvoiceItem
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.QuoteItemID, &it.Vehicle, &it.Damage, &it.Quantity, &it.UnitCost, &it.JobTypes, &it.Description, &it.SortOrder); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&inv.ID, &inv.Number, &inv.QuoteID, &inv.CustomerID, &inv.Status,
		&inv.Subtotal, &inv.Discount, &inv.Tax, &inv.Total, &inv.Notes, &inv.CreatedBy,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}
	inv.CreatedAt = createdAt.Time
	inv.UpdatedAt = updatedAt.Time
	return &inv, nil
}
