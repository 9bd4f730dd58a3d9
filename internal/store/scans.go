package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vapter/vaptord/internal/models"
)

// ScanRepo persists models.Scan rows and provides the compare-and-set
// primitive the dispatcher relies on to avoid lost updates when the
// status consumer and an operator-initiated restart race each other.
type ScanRepo struct {
	db *sql.DB
}

func (r *ScanRepo) Create(ctx context.Context, s *models.Scan) error {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	results, err := json.Marshal(s.ParsedResults)
	if err != nil {
		return fmt.Errorf("marshal parsed_results: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scans (
			id, target_id, scan_type_id, status, initiated_at, started_at, completed_at,
			parsed_results, error_message, report_path, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, s.ID, s.TargetID, s.ScanTypeID, s.Status, s.InitiatedAt, s.StartedAt, s.CompletedAt,
		results, s.ErrorMessage, s.ReportPath, s.CreatedAt, s.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *ScanRepo) Get(ctx context.Context, id string) (*models.Scan, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, target_id, scan_type_id, status, initiated_at, started_at, completed_at,
		       parsed_results, error_message, report_path, created_at, updated_at, deleted_at
		FROM scans WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return scanScan(row)
}

func (r *ScanRepo) List(ctx context.Context, p ListParams) ([]*models.Scan, error) {
	where, args := whereClause(p.Filters, 0)
	query := `SELECT id, target_id, scan_type_id, status, initiated_at, started_at, completed_at,
		       parsed_results, error_message, report_path, created_at, updated_at, deleted_at
		FROM scans WHERE deleted_at IS NULL`
	if where != "" {
		query += " AND " + where
	}
	order, err := orderClause(p.OrderBy, p.OrderDir, scanOrderColumns, "initiated_at")
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

	var out []*models.Scan
	for rows.Next() {
		s, err := scanScan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CompareAndSetStatus transitions a scan from expected to next atomically,
// merging fields into parsed_results/error_message/report_path/timestamps
// within the same statement. It reports ok=false without error when the
// row's current status no longer matches expected — the caller (the
// dispatcher or status reconciler) treats that as a stale, already-applied
// event and drops it rather than retrying, per the idempotency requirement
// in §4.4.
func (r *ScanRepo) CompareAndSetStatus(ctx context.Context, id string, expected, next models.ScanStatus, mutate func(s *models.Scan)) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, target_id, scan_type_id, status, initiated_at, started_at, completed_at,
		       parsed_results, error_message, report_path, created_at, updated_at, deleted_at
		FROM scans WHERE id = $1 AND deleted_at IS NULL FOR UPDATE
	`, id)
	s, err := scanScan(row)
	if err != nil {
		return false, err
	}

	if s.Status != expected {
		return false, nil
	}

	s.Status = next
	if mutate != nil {
		mutate(s)
	}
	s.UpdatedAt = time.Now()

	results, err := json.Marshal(s.ParsedResults)
	if err != nil {
		return false, fmt.Errorf("marshal parsed_results: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE scans SET status = $2, started_at = $3, completed_at = $4, parsed_results = $5,
		       error_message = $6, report_path = $7, updated_at = $8
		WHERE id = $1
	`, s.ID, s.Status, s.StartedAt, s.CompletedAt, results, s.ErrorMessage, s.ReportPath, s.UpdatedAt)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// MergeParsedResults locks the scan row, applies mutate to the in-memory
// scan, and persists only the parsed_results column — status, timestamps,
// and error_message are left untouched. This is the write the worker
// result-upload path must use instead of Update: a full-row Update off a
// Get() snapshot would overwrite a status transition (e.g. a cancellation)
// that landed between the Get and the Update with stale data, un-terminalizing
// an already-terminal scan.
func (r *ScanRepo) MergeParsedResults(ctx context.Context, id string, mutate func(s *models.Scan) error) (*models.Scan, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, target_id, scan_type_id, status, initiated_at, started_at, completed_at,
		       parsed_results, error_message, report_path, created_at, updated_at, deleted_at
		FROM scans WHERE id = $1 AND deleted_at IS NULL FOR UPDATE
	`, id)
	s, err := scanScan(row)
	if err != nil {
		return nil, err
	}

	if mutate != nil {
		if err := mutate(s); err != nil {
			return nil, err
		}
	}

	results, err := json.Marshal(s.ParsedResults)
	if err != nil {
		return nil, fmt.Errorf("marshal parsed_results: %w", err)
	}
	now := time.Now()
	if _, err := tx.ExecContext(ctx, `
		UPDATE scans SET parsed_results = $2, updated_at = $3 WHERE id = $1
	`, s.ID, results, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.UpdatedAt = now
	return s, nil
}

func (r *ScanRepo) SoftDelete(ctx context.Context, id string) error {
	now := time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE scans SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL
	`, id, now)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

// Statistics returns the count of scans per status, for the
// GET /scans/statistics endpoint.
func (r *ScanRepo) Statistics(ctx context.Context) (map[models.ScanStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, count(*) FROM scans WHERE deleted_at IS NULL GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[models.ScanStatus]int{}
	for rows.Next() {
		var status models.ScanStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[status] = count
	}
	return out, rows.Err()
}

var scanOrderColumns = map[string]bool{
	"initiated_at": true, "started_at": true, "completed_at": true, "updated_at": true, "status": true,
}

func scanScan(row rowScanner) (*models.Scan, error) {
	s := &models.Scan{}
	var results []byte
	err := row.Scan(&s.ID, &s.TargetID, &s.ScanTypeID, &s.Status, &s.InitiatedAt, &s.StartedAt, &s.CompletedAt,
		&results, &s.ErrorMessage, &s.ReportPath, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.ParsedResults = models.ParsedResults{}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &s.ParsedResults); err != nil {
			return nil, fmt.Errorf("unmarshal parsed_results: %w", err)
		}
	}
	return s, nil
}
