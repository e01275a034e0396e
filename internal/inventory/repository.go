package inventory

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
	// ErrNotFound indicates a missing record row.
	ErrNotFound = errors.New("inventory record not found")
	// ErrDuplicate indicates the unique (type, record_date) constraint
	// fired; a record already exists for the date.
	ErrDuplicate = errors.New("inventory record already exists for date")
)

// Repository persists inventory reconciliation records.
type Repository interface {
	Create(ctx context.Context, rec InventoryRecord) (int64, error)
	Get(ctx context.Context, id int64) (*InventoryRecord, error)
	ExistsForDate(ctx context.Context, typ RecordType, date time.Time) (bool, error)
	LatestEOD(ctx context.Context) (*InventoryRecord, error)
	List(ctx context.Context, req ListRecordsRequest) ([]InventoryRecord, int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const recordColumns = `id, record_type, record_date, rim_count, unfinished_overnight_jobs,
	previous_eod_id, has_discrepancy, discrepancy_notes, recorded_by, created_at`

func (r *repository) Create(ctx context.Context, rec InventoryRecord) (int64, error) {
	var previousEOD pgtype.Int8
	if rec.PreviousEODID != nil {
		previousEOD = pgtype.Int8{Int64: *rec.PreviousEODID, Valid: true}
	}

	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO inventory_records (record_type, record_date, rim_count, unfinished_overnight_jobs,
		                               previous_eod_id, has_discrepancy, discrepancy_notes, recorded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id
	`, rec.Type, pgtype.Date{Time: rec.RecordDate, Valid: true}, rec.RimCount, rec.UnfinishedOvernightJobs,
		previousEOD, rec.HasDiscrepancy, rec.DiscrepancyNotes, rec.RecordedBy).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*InventoryRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM inventory_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (r *repository) ExistsForDate(ctx context.Context, typ RecordType, date time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM inventory_records WHERE record_type = $1 AND record_date = $2)`,
		typ, pgtype.Date{Time: date, Valid: true}).Scan(&exists)
	return exists, err
}

// LatestEOD returns the most recent end-of-day snapshot, the baseline every
// start-of-day count reconciles against.
func (r *repository) LatestEOD(ctx context.Context) (*InventoryRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+recordColumns+` FROM inventory_records
		WHERE record_type = 'eod' ORDER BY record_date DESC, id DESC LIMIT 1`)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (r *repository) List(ctx context.Context, req ListRecordsRequest) ([]InventoryRecord, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	argPos := 1

	if req.Type != nil {
		conditions = append(conditions, fmt.Sprintf("record_type = $%d", argPos))
		args = append(args, *req.Type)
		argPos++
	}
	if req.From != nil {
		conditions = append(conditions, fmt.Sprintf("record_date >= $%d", argPos))
		args = append(args, pgtype.Date{Time: *req.From, Valid: true})
		argPos++
	}
	if req.To != nil {
		conditions = append(conditions, fmt.Sprintf("record_date <= $%d", argPos))
		args = append(args, pgtype.Date{Time: *req.To, Valid: true})
		argPos++
	}

	where := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		where += " AND " + conditions[i]
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM inventory_records %s", where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM inventory_records %s ORDER BY record_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		recordColumns, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []InventoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *rec)
	}
	return list, total, rows.Err()
}

func scanRecord(row pgx.Row) (*InventoryRecord, error) {
	var rec InventoryRecord
	var recordDate pgtype.Date
	var previousEOD pgtype.Int8
	var createdAt pgtype.Timestamptz
	if err := row.Scan(&rec.ID, &rec.Type, &recordDate, &rec.RimCount, &rec.UnfinishedOvernightJobs,
		&previousEOD, &rec.HasDiscrepancy, &rec.DiscrepancyNotes, &rec.RecordedBy, &createdAt); err != nil {
		return nil, err
	}
	rec.RecordDate = recordDate.Time
	if previousEOD.Valid {
		val := previousEOD.Int64
		rec.PreviousEODID = &val
	}
	rec.CreatedAt = createdAt.Time
	return &rec, nil
}
