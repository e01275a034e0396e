package workshop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates a missing job row.
	ErrNotFound = errors.New("job not found")
	// ErrItemTaken indicates the unique invoice_item_id constraint fired;
	// jobs were already dispatched for the invoice.
	ErrItemTaken = errors.New("job already exists for invoice item")
)

// Repository persists repair jobs.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Job, error)
	List(ctx context.Context, req ListJobsRequest) ([]Job, int, error)
	CountUnfinishedOvernight(ctx context.Context) (int, error)
	ListOvernightDueBefore(ctx context.Context, deadline time.Time) ([]Job, error)
}

// TxRepository exposes the operations available inside one transaction.
type TxRepository interface {
	JobsExistForInvoice(ctx context.Context, invoiceID int64) (bool, error)
	InsertJobs(ctx context.Context, jobs []Job) ([]int64, error)
	GetJobForUpdate(ctx context.Context, id int64) (*Job, error)
	SetAccepted(ctx context.Context, id, technicianID int64, at time.Time) error
	SetStatus(ctx context.Context, id int64, status JobStatus) error
	SetCompleted(ctx context.Context, id int64, at time.Time) error
	SetDueDate(ctx context.Context, id int64, due *time.Time, overnight bool) error
	SetNotes(ctx context.Context, id int64, notes string) error
	ResetToPending(ctx context.Context, id int64, notes string) error
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

const jobColumns = `id, invoice_id, invoice_item_id, technician_id, status, vehicle, damage, job_types,
	notes, due_date, is_overnight, accepted_at, completed_at, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM repair_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *repository) List(ctx context.Context, req ListJobsRequest) ([]Job, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	argPos := 1

	if req.InvoiceID != nil {
		conditions = append(conditions, fmt.Sprintf("invoice_id = $%d", argPos))
		args = append(args, *req.InvoiceID)
		argPos++
	}
	if req.TechnicianID != nil {
		conditions = append(conditions, fmt.Sprintf("technician_id = $%d", argPos))
		args = append(args, *req.TechnicianID)
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
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM repair_jobs %s", where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM repair_jobs %s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		jobColumns, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *job)
	}
	return list, total, rows.Err()
}

// CountUnfinishedOvernight counts overnight jobs not yet completed. The
// inventory reconciliation snapshot reads this at EOD and SOD.
func (r *repository) CountUnfinishedOvernight(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM repair_jobs
		WHERE is_overnight AND status <> 'completed'`).Scan(&count)
	return count, err
}

func (r *repository) ListOvernightDueBefore(ctx context.Context, deadline time.Time) ([]Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM repair_jobs
		WHERE is_overnight AND status <> 'completed' AND due_date IS NOT NULL AND due_date <= $1
		ORDER BY due_date`, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *job)
	}
	return list, rows.Err()
}

func (t *txRepo) JobsExistForInvoice(ctx context.Context, invoiceID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM repair_jobs WHERE invoice_id = $1)`, invoiceID).Scan(&exists)
	return exists, err
}

func (t *txRepo) InsertJobs(ctx context.Context, jobs []Job) ([]int64, error) {
	ids := make([]int64, 0, len(jobs))
	for _, job := range jobs {
		var id int64
		err := t.tx.QueryRow(ctx, `
			INSERT INTO repair_jobs (invoice_id, invoice_item_id, status, vehicle, damage, job_types, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			RETURNING id
		`, job.InvoiceID, job.InvoiceItemID, job.Status, job.Vehicle, job.Damage, job.JobTypes, job.Notes).Scan(&id)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return nil, ErrItemTaken
			}
			return nil, fmt.Errorf("insert job: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (t *txRepo) GetJobForUpdate(ctx context.Context, id int64) (*Job, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+jobColumns+` FROM repair_jobs WHERE id = $1 FOR UPDATE`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (t *txRepo) SetAccepted(ctx context.Context, id, technicianID int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE repair_jobs SET status = 'accepted', technician_id = $1, accepted_at = $2, updated_at = NOW()
		WHERE id = $3`, technicianID, at, id)
	return err
}

func (t *txRepo) SetStatus(ctx context.Context, id int64, status JobStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE repair_jobs SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	return err
}

func (t *txRepo) SetCompleted(ctx context.Context, id int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE repair_jobs SET status = 'completed', completed_at = $1, updated_at = NOW()
		WHERE id = $2`, at, id)
	return err
}

func (t *txRepo) SetDueDate(ctx context.Context, id int64, due *time.Time, overnight bool) error {
	var dueVal pgtype.Timestamptz
	if due != nil {
		dueVal = pgtype.Timestamptz{Time: *due, Valid: true}
	}
	_, err := t.tx.Exec(ctx, `
		UPDATE repair_jobs SET due_date = $1, is_overnight = $2, updated_at = NOW()
		WHERE id = $3`, dueVal, overnight, id)
	return err
}

func (t *txRepo) SetNotes(ctx context.Context, id int64, notes string) error {
	_, err := t.tx.Exec(ctx, `UPDATE repair_jobs SET notes = $1, updated_at = NOW() WHERE id = $2`, notes, id)
	return err
}

func (t *txRepo) ResetToPending(ctx context.Context, id int64, notes string) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE repair_jobs
		SET status = 'pending', technician_id = NULL, accepted_at = NULL, completed_at = NULL,
		    notes = $1, updated_at = NOW()
		WHERE id = $2`, notes, id)
	return err
}

func scanJob(row pgx.Row) (*Job, error) {
	var job Job
	var technicianID pgtype.Int8
	var dueDate, acceptedAt, completedAt, createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&job.ID, &job.InvoiceID, &job.InvoiceItemID, &technicianID, &job.Status,
		&job.Vehicle, &job.Damage, &job.JobTypes, &job.Notes, &dueDate, &job.IsOvernight,
		&acceptedAt, &completedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if technicianID.Valid {
		val := technicianID.Int64
		job.TechnicianID = &val
	}
	if dueDate.Valid {
		val := dueDate.Time
		job.DueDate = &val
	}
	if acceptedAt.Valid {
		val := acceptedAt.Time
		job.AcceptedAt = &val
	}
	if completedAt.Valid {
		val := completedAt.Time
		job.CompletedAt = &val
	}
	job.CreatedAt = createdAt.Time
	job.UpdatedAt = updatedAt.Time
	return &job, nil
}
