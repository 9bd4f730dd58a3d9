package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vapter/vaptord/internal/models"
)

// CustomerRepo persists models.Customer rows.
type CustomerRepo struct {
	db *sql.DB
}

func (r *CustomerRepo) Create(ctx context.Context, c *models.Customer) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, email, phone, contact_person, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.Name, c.Email, c.Phone, c.Contact, c.Notes, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *CustomerRepo) Get(ctx context.Context, id string) (*models.Customer, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, contact_person, notes, created_at, updated_at, deleted_at
		FROM customers WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return scanCustomer(row)
}

func (r *CustomerRepo) List(ctx context.Context, p ListParams) ([]*models.Customer, error) {
	where, args := whereClause(p.Filters, 0)
	query := `SELECT id, name, email, phone, contact_person, notes, created_at, updated_at, deleted_at FROM customers WHERE deleted_at IS NULL`
	if where != "" {
		query += " AND " + where
	}
	order, err := orderClause(p.OrderBy, p.OrderDir, customerOrderColumns, "created_at")
	if err != nil {
		return nil, err
	}
	query += order
	limit, offset := normalizeLimitOffset(p.Limit, p.Offset)
	args = append(args, limit, offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CustomerRepo) Update(ctx context.Context, c *models.Customer) error {
	c.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE customers SET name = $2, email = $3, phone = $4, contact_person = $5, notes = $6, updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL
	`, c.ID, c.Name, c.Email, c.Phone, c.Contact, c.Notes, c.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *CustomerRepo) SoftDelete(ctx context.Context, id string) error {
	now := time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE customers SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL
	`, id, now)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

var customerOrderColumns = map[string]bool{
	"created_at": true, "updated_at": true, "name": true,
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	c := &models.Customer{}
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Contact, &c.Notes, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
