package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vapter/vaptord/internal/models"
)

// TargetRepo persists models.Target rows. (customer_id, address) is
// enforced unique among non-deleted rows by a partial unique index.
type TargetRepo struct {
	db *sql.DB
}

func (r *TargetRepo) Create(ctx context.Context, t *models.Target) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO targets (id, customer_id, display_name, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.CustomerID, t.DisplayName, t.Address, t.CreatedAt, t.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *TargetRepo) Get(ctx context.Context, id string) (*models.Target, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, display_name, address, created_at, updated_at, deleted_at
		FROM targets WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return scanTarget(row)
}

func (r *TargetRepo) List(ctx context.Context, p ListParams) ([]*models.Target, error) {
	where, args := whereClause(p.Filters, 0)
	query := `SELECT id, customer_id, display_name, address, created_at, updated_at, deleted_at FROM targets WHERE deleted_at IS NULL`
	if where != "" {
		query += " AND " + where
	}
	order, err := orderClause(p.OrderBy, p.OrderDir, targetOrderColumns, "created_at")
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

	var out []*models.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TargetRepo) Update(ctx context.Context, t *models.Target) error {
	t.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE targets SET display_name = $2, address = $3, updated_at = $4
		WHERE id = $1 AND deleted_at IS NULL
	`, t.ID, t.DisplayName, t.Address, t.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *TargetRepo) SoftDelete(ctx context.Context, id string) error {
	now := time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE targets SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL
	`, id, now)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

var targetOrderColumns = map[string]bool{
	"created_at": true, "updated_at": true, "display_name": true, "address": true,
}

func scanTarget(row rowScanner) (*models.Target, error) {
	t := &models.Target{}
	err := row.Scan(&t.ID, &t.CustomerID, &t.DisplayName, &t.Address, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}
