package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vapter/vaptord/internal/models"
)

// VulnEngineResultRepo persists models.VulnEngineResult rows — one per
// Scan, created when the vuln-engine worker submits its external task ID
// and updated in place as progress/results arrive.
type VulnEngineResultRepo struct {
	db *sql.DB
}

func (r *VulnEngineResultRepo) Create(ctx context.Context, v *models.VulnEngineResult) error {
	now := time.Now()
	v.CreatedAt = now
	v.UpdatedAt = now
	count, err := json.Marshal(v.VulnerabilityCount)
	if err != nil {
		return fmt.Errorf("marshal vulnerability_count: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO vuln_engine_results (
			id, scan_id, target_id, external_task_id, external_report_id, external_target_id,
			external_status, progress, report_format, full_report, vulnerability_count,
			started_at, completed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, v.ID, v.ScanID, v.TargetID, v.ExternalTaskID, v.ExternalReportID, v.ExternalTargetID,
		v.ExternalStatus, v.Progress, v.ReportFormat, v.FullReport, count, v.StartedAt, v.CompletedAt,
		v.CreatedAt, v.UpdatedAt)
	return err
}

func (r *VulnEngineResultRepo) GetByScanID(ctx context.Context, scanID string) (*models.VulnEngineResult, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, scan_id, target_id, external_task_id, external_report_id, external_target_id,
		       external_status, progress, report_format, full_report, vulnerability_count,
		       started_at, completed_at, created_at, updated_at
		FROM vuln_engine_results WHERE scan_id = $1
	`, scanID)
	return scanVulnEngineResult(row)
}

// Get fetches a single vuln_engine_results row by id, for the per-item
// GET endpoint.
func (r *VulnEngineResultRepo) Get(ctx context.Context, id string) (*models.VulnEngineResult, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, scan_id, target_id, external_task_id, external_report_id, external_target_id,
		       external_status, progress, report_format, full_report, vulnerability_count,
		       started_at, completed_at, created_at, updated_at
		FROM vuln_engine_results WHERE id = $1
	`, id)
	return scanVulnEngineResult(row)
}

// List returns vuln_engine_results rows matching p, for the collection's
// GET endpoint.
func (r *VulnEngineResultRepo) List(ctx context.Context, p ListParams) ([]*models.VulnEngineResult, error) {
	where, args := whereClause(p.Filters, 0)
	query := `SELECT id, scan_id, target_id, external_task_id, external_report_id, external_target_id,
		       external_status, progress, report_format, full_report, vulnerability_count,
		       started_at, completed_at, created_at, updated_at FROM vuln_engine_results`
	if where != "" {
		query += " WHERE " + where
	}
	order, err := orderClause(p.OrderBy, p.OrderDir, vulnEngineOrderColumns, "created_at")
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

	var out []*models.VulnEngineResult
	for rows.Next() {
		v, err := scanVulnEngineResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

var vulnEngineOrderColumns = map[string]bool{
	"created_at": true, "updated_at": true, "progress": true,
}

// UpdateProgress applies the PATCH /scans/{id}/vuln-engine-progress
// contract — advances progress/external_status without touching the
// full report payload.
func (r *VulnEngineResultRepo) UpdateProgress(ctx context.Context, scanID string, progress int, externalStatus string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE vuln_engine_results SET progress = $2, external_status = $3, updated_at = $4
		WHERE scan_id = $1
	`, scanID, progress, externalStatus, time.Now())
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

// SubmitResult applies the POST /scans/{id}/vuln-engine-results contract —
// writes the final report, severity tally, and completion timestamp.
func (r *VulnEngineResultRepo) SubmitResult(ctx context.Context, scanID string, reportFormat models.ReportFormat, fullReport string, count models.VulnerabilityCount, completedAt time.Time) error {
	data, err := json.Marshal(count)
	if err != nil {
		return fmt.Errorf("marshal vulnerability_count: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE vuln_engine_results SET report_format = $2, full_report = $3, vulnerability_count = $4,
		       progress = 100, external_status = 'Done', completed_at = $5, updated_at = $6
		WHERE scan_id = $1
	`, scanID, reportFormat, fullReport, data, completedAt, time.Now())
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func scanVulnEngineResult(row rowScanner) (*models.VulnEngineResult, error) {
	v := &models.VulnEngineResult{}
	var count []byte
	err := row.Scan(&v.ID, &v.ScanID, &v.TargetID, &v.ExternalTaskID, &v.ExternalReportID, &v.ExternalTargetID,
		&v.ExternalStatus, &v.Progress, &v.ReportFormat, &v.FullReport, &count,
		&v.StartedAt, &v.CompletedAt, &v.CreatedAt, &v.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(count) > 0 {
		if err := json.Unmarshal(count, &v.VulnerabilityCount); err != nil {
			return nil, fmt.Errorf("unmarshal vulnerability_count: %w", err)
		}
	}
	return v, nil
}
