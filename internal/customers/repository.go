package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound   = errors.New("customer not found")
	ErrPhoneTaken = errors.New("phone already registered")
)

// Repository persists customers.
type Repository interface {
	Get(ctx context.Context, id int64) (*Customer, error)
	GetByPhone(ctx context.Context, phone string) (*Customer, error)
	Create(ctx context.Context, c Customer) (int64, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const customerColumns = `id, name, phone, email, birthday, is_vip, discount_percent, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	return scanCustomer(row)
}

func (r *repository) GetByPhone(ctx context.Context, phone string) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE phone = $1`, phone)
	return scanCustomer(row)
}

func (r *repository) Create(ctx context.Context, c Customer) (int64, error) {
	var email pgtype.Text
	if c.Email != nil {
		email = pgtype.Text{String: *c.Email, Valid: true}
	}
	var birthday pgtype.Date
	if c.Birthday != nil {
		birthday = pgtype.Date{Time: *c.Birthday, Valid: true}
	}

	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO customers (name, phone, email, birthday, is_vip, discount_percent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id
	`, c.Name, c.Phone, email, birthday, c.IsVIP, c.DiscountPercent).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrPhoneTaken
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	where := ""
	var args []interface{}
	if req.Search != "" {
		where = "WHERE name ILIKE $1 OR phone LIKE $1"
		args = append(args, "%"+req.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM customers %s", where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM customers %s ORDER BY name LIMIT $%d OFFSET $%d`,
		customerColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Customer
	for rows.Next() {
		c, err := scanCustomerRow(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *c)
	}
	return list, total, rows.Err()
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	c, err := scanCustomerRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func scanCustomerRow(row pgx.Row) (*Customer, error) {
	var c Customer
	var email pgtype.Text
	var birthday pgtype.Date
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &email, &birthday, &c.IsVIP, &c.DiscountPercent, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if email.Valid {
		val := email.String
		c.Email = &val
	}
	if birthday.Valid {
		val := birthday.Time
		c.Birthday = &val
	}
	c.CreatedAt = createdAt.Time
	c.UpdatedAt = updatedAt.Time
	return &c, nil
}
