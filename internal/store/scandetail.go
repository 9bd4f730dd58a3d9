package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vapter/vaptord/internal/models"
)

// ScanDetailRepo persists the derived per-scan detail row — open ports,
// OS guess, and per-stage timings — written by the result-ingestion path
// described in §6, never directly by a client.
type ScanDetailRepo struct {
	db *sql.DB
}

func (r *ScanDetailRepo) Upsert(ctx context.Context, d *models.ScanDetail) error {
	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	openPorts, err := json.Marshal(d.OpenPorts)
	if err != nil {
		return fmt.Errorf("marshal open_ports: %w", err)
	}
	osGuess, err := json.Marshal(d.OSGuess)
	if err != nil {
		return fmt.Errorf("marshal os_guess: %w", err)
	}
	timings, err := json.Marshal(d.StageTimings)
	if err != nil {
		return fmt.Errorf("marshal stage_timings: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scan_details (id, scan_id, open_ports, os_guess, stage_timings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (scan_id) DO UPDATE SET
			open_ports = EXCLUDED.open_ports,
			os_guess = EXCLUDED.os_guess,
			stage_timings = EXCLUDED.stage_timings,
			updated_at = EXCLUDED.updated_at
	`, d.ID, d.ScanID, openPorts, osGuess, timings, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r *ScanDetailRepo) GetByScanID(ctx context.Context, scanID string) (*models.ScanDetail, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, scan_id, open_ports, os_guess, stage_timings, created_at, updated_at
		FROM scan_details WHERE scan_id = $1
	`, scanID)
	return scanScanDetail(row)
}

func scanScanDetail(row rowScanner) (*models.ScanDetail, error) {
	d := &models.ScanDetail{}
	var openPorts, osGuess, timings []byte
	err := row.Scan(&d.ID, &d.ScanID, &openPorts, &osGuess, &timings, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(openPorts) > 0 && string(openPorts) != "null" {
		d.OpenPorts = &models.OpenPorts{}
		if err := json.Unmarshal(openPorts, d.OpenPorts); err != nil {
			return nil, fmt.Errorf("unmarshal open_ports: %w", err)
		}
	}
	if len(osGuess) > 0 && string(osGuess) != "null" {
		d.OSGuess = &models.OSGuess{}
		if err := json.Unmarshal(osGuess, d.OSGuess); err != nil {
			return nil, fmt.Errorf("unmarshal os_guess: %w", err)
		}
	}
	d.StageTimings = models.StageTimings{}
	if len(timings) > 0 {
		if err := json.Unmarshal(timings, &d.StageTimings); err != nil {
			return nil, fmt.Errorf("unmarshal stage_timings: %w", err)
		}
	}
	return d, nil
}
