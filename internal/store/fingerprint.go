package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/vapter/vaptord/internal/models"
)

// FingerprintDetailRepo persists models.FingerprintDetail rows.
type FingerprintDetailRepo struct {
	db *sql.DB
}

func (r *FingerprintDetailRepo) Create(ctx context.Context, f *models.FingerprintDetail) error {
	now := time.Now()
	f.CreatedAt = now
	f.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fingerprint_details (
			id, scan_id, target_id, port, protocol, service_name, service_product,
			service_version, service_info, fingerprint_method, confidence_score,
			raw_response, additional_info, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, f.ID, f.ScanID, f.TargetID, f.Port, f.Protocol, f.ServiceName, f.ServiceProduct,
		f.ServiceVersion, f.ServiceInfo, f.FingerprintMethod, f.ConfidenceScore,
		f.RawResponse, f.AdditionalInfo, f.CreatedAt, f.UpdatedAt)
	return err
}

// BulkCreate inserts many fingerprint results in one transaction, for the
// worker's batched reporting contract (§4.3 step 6, bulk_create endpoint).
func (r *FingerprintDetailRepo) BulkCreate(ctx context.Context, details []*models.FingerprintDetail) error {
	if len(details) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fingerprint_details (
			id, scan_id, target_id, port, protocol, service_name, service_product,
			service_version, service_info, fingerprint_method, confidence_score,
			raw_response, additional_info, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, f := range details {
		f.CreatedAt = now
		f.UpdatedAt = now
		if _, err := stmt.ExecContext(ctx, f.ID, f.ScanID, f.TargetID, f.Port, f.Protocol, f.ServiceName,
			f.ServiceProduct, f.ServiceVersion, f.ServiceInfo, f.FingerprintMethod, f.ConfidenceScore,
			f.RawResponse, f.AdditionalInfo, f.CreatedAt, f.UpdatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Get fetches a single fingerprint_details row by id, for the per-item
// GET endpoint every resource collection exposes.
func (r *FingerprintDetailRepo) Get(ctx context.Context, id string) (*models.FingerprintDetail, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, scan_id, target_id, port, protocol, service_name, service_product,
		       service_version, service_info, fingerprint_method, confidence_score,
		       raw_response, additional_info, created_at, updated_at, deleted_at
		FROM fingerprint_details WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return scanFingerprintDetail(row)
}

// List returns fingerprint_details rows matching p, for the collection's
// GET endpoint.
func (r *FingerprintDetailRepo) List(ctx context.Context, p ListParams) ([]*models.FingerprintDetail, error) {
	where, args := whereClause(p.Filters, 0)
	query := `SELECT id, scan_id, target_id, port, protocol, service_name, service_product,
		       service_version, service_info, fingerprint_method, confidence_score,
		       raw_response, additional_info, created_at, updated_at, deleted_at
		FROM fingerprint_details WHERE deleted_at IS NULL`
	if where != "" {
		query += " AND " + where
	}
	order, err := orderClause(p.OrderBy, p.OrderDir, fingerprintOrderColumns, "created_at")
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

	var out []*models.FingerprintDetail
	for rows.Next() {
		f, err := scanFingerprintDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// SoftDelete marks a fingerprint_details row deleted.
func (r *FingerprintDetailRepo) SoftDelete(ctx context.Context, id string) error {
	now := time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE fingerprint_details SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL
	`, id, now)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

var fingerprintOrderColumns = map[string]bool{
	"created_at": true, "updated_at": true, "port": true,
}

func (r *FingerprintDetailRepo) ListByScan(ctx context.Context, scanID string) ([]*models.FingerprintDetail, error) {
	return r.listWhere(ctx, "scan_id = $1", scanID)
}

func (r *FingerprintDetailRepo) ListByTarget(ctx context.Context, targetID string) ([]*models.FingerprintDetail, error) {
	return r.listWhere(ctx, "target_id = $1", targetID)
}

func (r *FingerprintDetailRepo) listWhere(ctx context.Context, where string, arg string) ([]*models.FingerprintDetail, error) {
	query := fmt.Sprintf(`
		SELECT id, scan_id, target_id, port, protocol, service_name, service_product,
		       service_version, service_info, fingerprint_method, confidence_score,
		       raw_response, additional_info, created_at, updated_at, deleted_at
		FROM fingerprint_details WHERE %s AND deleted_at IS NULL ORDER BY port ASC
	`, where)
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.FingerprintDetail
	for rows.Next() {
		f, err := scanFingerprintDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ServiceSummary groups fingerprint results by service name across a
// target's scan history, for the service_summary endpoint.
type ServiceSummary struct {
	ServiceName string
	Count       int
	Ports       []int
}

func (r *FingerprintDetailRepo) ServiceSummary(ctx context.Context, targetID string) ([]ServiceSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT service_name, count(*), array_agg(DISTINCT port ORDER BY port)
		FROM fingerprint_details
		WHERE target_id = $1 AND deleted_at IS NULL AND service_name <> ''
		GROUP BY service_name
		ORDER BY count(*) DESC
	`, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ServiceSummary
	for rows.Next() {
		var s ServiceSummary
		var ports pq.Int64Array
		if err := rows.Scan(&s.ServiceName, &s.Count, &ports); err != nil {
			return nil, err
		}
		s.Ports = make([]int, len(ports))
		for i, p := range ports {
			s.Ports[i] = int(p)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanFingerprintDetail(row rowScanner) (*models.FingerprintDetail, error) {
	f := &models.FingerprintDetail{}
	err := row.Scan(&f.ID, &f.ScanID, &f.TargetID, &f.Port, &f.Protocol, &f.ServiceName, &f.ServiceProduct,
		&f.ServiceVersion, &f.ServiceInfo, &f.FingerprintMethod, &f.ConfidenceScore,
		&f.RawResponse, &f.AdditionalInfo, &f.CreatedAt, &f.UpdatedAt, &f.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}
