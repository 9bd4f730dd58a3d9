package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vapter/vaptord/internal/models"
)

// PortListRepo persists models.PortList rows. name is unique among
// non-deleted rows.
type PortListRepo struct {
	db *sql.DB
}

func (r *PortListRepo) Create(ctx context.Context, p *models.PortList) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO port_lists (id, name, tcp_ports, udp_ports, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Name, p.TCPPorts, p.UDPPorts, p.Description, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *PortListRepo) Get(ctx context.Context, id string) (*models.PortList, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, tcp_ports, udp_ports, description, created_at, updated_at, deleted_at
		FROM port_lists WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return scanPortList(row)
}

func (r *PortListRepo) List(ctx context.Context, p ListParams) ([]*models.PortList, error) {
	where, args := whereClause(p.Filters, 0)
	query := `SELECT id, name, tcp_ports, udp_ports, description, created_at, updated_at, deleted_at FROM port_lists WHERE deleted_at IS NULL`
	if where != "" {
		query += " AND " + where
	}
	order, err := orderClause(p.OrderBy, p.OrderDir, portListOrderColumns, "created_at")
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

	var out []*models.PortList
	for rows.Next() {
		pl, err := scanPortList(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pl)
	}
	return out, rows.Err()
}

func (r *PortListRepo) Update(ctx context.Context, p *models.PortList) error {
	p.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE port_lists SET name = $2, tcp_ports = $3, udp_ports = $4, description = $5, updated_at = $6
		WHERE id = $1 AND deleted_at IS NULL
	`, p.ID, p.Name, p.TCPPorts, p.UDPPorts, p.Description, p.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *PortListRepo) SoftDelete(ctx context.Context, id string) error {
	now := time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE port_lists SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL
	`, id, now)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

var portListOrderColumns = map[string]bool{
	"created_at": true, "updated_at": true, "name": true,
}

func scanPortList(row rowScanner) (*models.PortList, error) {
	p := &models.PortList{}
	err := row.Scan(&p.ID, &p.Name, &p.TCPPorts, &p.UDPPorts, &p.Description, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
