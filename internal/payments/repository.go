package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rimworks/rimworks/internal/invoices"
)

// ErrInvoiceNotFound indicates the target invoice row does not exist.
var ErrInvoiceNotFound = errors.New("invoice not found")

// LockedInvoice is the slice of the invoice row the payment path reads
// under a row lock.
type LockedInvoice struct {
	ID     int64
	Total  int64
	Status invoices.InvoiceStatus
}

// Repository persists payments. Recording runs through WithTx so the
// balance check, the insert, and the status write share one transaction.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListByInvoice(ctx context.Context, invoiceID int64) ([]Payment, error)
}

// TxRepository exposes the operations available inside one transaction.
// GetInvoiceForUpdate takes a row lock on the invoice; concurrent payment
// submissions against the same invoice serialize on it.
type TxRepository interface {
	GetInvoiceForUpdate(ctx context.Context, invoiceID int64) (*LockedInvoice, error)
	PaymentSum(ctx context.Context, invoiceID int64) (int64, error)
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	SetInvoiceStatus(ctx context.Context, invoiceID int64, status invoices.InvoiceStatus) error
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

// WithTx runs fn in a read-committed transaction. Read committed matters
// here: the sum taken after the row lock must see payments committed while
// we waited for it, which a repeatable-read snapshot would hide.
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

func (r *repository) ListByInvoice(ctx context.Context, invoiceID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, amount, mode, reference, received_by, created_at
		FROM payments WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Payment
	for rows.Next() {
		var p Payment
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Mode, &p.Reference, &p.ReceivedBy, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt = createdAt.Time
		list = append(list, p)
	}
	return list, rows.Err()
}

func (t *txRepo) GetInvoiceForUpdate(ctx context.Context, invoiceID int64) (*LockedInvoice, error) {
	var inv LockedInvoice
	err := t.tx.QueryRow(ctx, `SELECT id, total, status FROM invoices WHERE id = $1 FOR UPDATE`, invoiceID).
		Scan(&inv.ID, &inv.Total, &inv.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (t *txRepo) PaymentSum(ctx context.Context, invoiceID int64) (int64, error) {
	var sum int64
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1`, invoiceID).Scan(&sum)
	return sum, err
}

func (t *txRepo) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO payments (invoice_id, amount, mode, reference, received_by, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id
	`, p.InvoiceID, p.Amount, p.Mode, p.Reference, p.ReceivedBy).Scan(&id)
	return id, err
}

func (t *txRepo) SetInvoiceStatus(ctx context.Context, invoiceID int64, status invoices.InvoiceStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2`, status, invoiceID)
	return err
}
