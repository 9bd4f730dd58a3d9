package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vapter/vaptord/internal/models"
)

// ScanTypeRepo persists models.ScanType rows. name is unique among
// non-deleted rows.
type ScanTypeRepo struct {
	db *sql.DB
}

func (r *ScanTypeRepo) Create(ctx context.Context, st *models.ScanType) error {
	now := time.Now()
	st.CreatedAt = now
	st.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scan_types (
			id, name, only_discovery, consider_alive, be_quiet, port_list_id,
			plugin_fingerprint, plugin_vuln_engine, plugin_web, plugin_vuln_lookup,
			description, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, st.ID, st.Name, st.OnlyDiscovery, st.ConsiderAlive, st.BeQuiet, st.PortListID,
		st.PluginFingerprint, st.PluginVulnEngine, st.PluginWeb, st.PluginVulnLookup,
		st.Description, st.CreatedAt, st.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *ScanTypeRepo) Get(ctx context.Context, id string) (*models.ScanType, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, only_discovery, consider_alive, be_quiet, port_list_id,
		       plugin_fingerprint, plugin_vuln_engine, plugin_web, plugin_vuln_lookup,
		       description, created_at, updated_at, deleted_at
		FROM scan_types WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return scanScanType(row)
}

func (r *ScanTypeRepo) List(ctx context.Context, p ListParams) ([]*models.ScanType, error) {
	where, args := whereClause(p.Filters, 0)
	query := `SELECT id, name, only_discovery, consider_alive, be_quiet, port_list_id,
		       plugin_fingerprint, plugin_vuln_engine, plugin_web, plugin_vuln_lookup,
		       description, created_at, updated_at, deleted_at FROM scan_types WHERE deleted_at IS NULL`
	if where != "" {
		query += " AND " + where
	}
	order, err := orderClause(p.OrderBy, p.OrderDir, scanTypeOrderColumns, "created_at")
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

	var out []*models.ScanType
	for rows.Next() {
		st, err := scanScanType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *ScanTypeRepo) Update(ctx context.Context, st *models.ScanType) error {
	st.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE scan_types SET name = $2, only_discovery = $3, consider_alive = $4, be_quiet = $5,
		       port_list_id = $6, plugin_fingerprint = $7, plugin_vuln_engine = $8, plugin_web = $9,
		       plugin_vuln_lookup = $10, description = $11, updated_at = $12
		WHERE id = $1 AND deleted_at IS NULL
	`, st.ID, st.Name, st.OnlyDiscovery, st.ConsiderAlive, st.BeQuiet, st.PortListID,
		st.PluginFingerprint, st.PluginVulnEngine, st.PluginWeb, st.PluginVulnLookup,
		st.Description, st.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *ScanTypeRepo) SoftDelete(ctx context.Context, id string) error {
	now := time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE scan_types SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL
	`, id, now)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

var scanTypeOrderColumns = map[string]bool{
	"created_at": true, "updated_at": true, "name": true,
}

func scanScanType(row rowScanner) (*models.ScanType, error) {
	st := &models.ScanType{}
	err := row.Scan(&st.ID, &st.Name, &st.OnlyDiscovery, &st.ConsiderAlive, &st.BeQuiet, &st.PortListID,
		&st.PluginFingerprint, &st.PluginVulnEngine, &st.PluginWeb, &st.PluginVulnLookup,
		&st.Description, &st.CreatedAt, &st.UpdatedAt, &st.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}
