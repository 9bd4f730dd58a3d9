package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/vapter/vaptord/internal/models"
)

func newMockStore(t *testing.T) (*ScanRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &ScanRepo{db: db}, mock
}

func TestCompareAndSetStatusAppliesWhenStatusMatches(t *testing.T) {
	repo, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectBegin()
	rows := sqlmock.NewRows([]string{
		"id", "target_id", "scan_type_id", "status", "initiated_at", "started_at", "completed_at",
		"parsed_results", "error_message", "report_path", "created_at", "updated_at", "deleted_at",
	}).AddRow("scan-1", "target-1", "type-1", string(models.StatusQueued), now, nil, nil,
		[]byte(`{}`), "", "", now, now, nil)
	mock.ExpectQuery("SELECT .* FROM scans WHERE id = \\$1 AND deleted_at IS NULL FOR UPDATE").
		WithArgs("scan-1").
		WillReturnRows(rows)
	mock.ExpectExec("UPDATE scans SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.CompareAndSetStatus(ctx, "scan-1", models.StatusQueued, models.StatusNmapRunning, func(s *models.Scan) {
		started := now
		s.StartedAt = &started
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true when current status matches expected")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCompareAndSetStatusSkipsWhenStatusDiffers(t *testing.T) {
	repo, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectBegin()
	rows := sqlmock.NewRows([]string{
		"id", "target_id", "scan_type_id", "status", "initiated_at", "started_at", "completed_at",
		"parsed_results", "error_message", "report_path", "created_at", "updated_at", "deleted_at",
	}).AddRow("scan-1", "target-1", "type-1", string(models.StatusNmapCompleted), now, &now, nil,
		[]byte(`{}`), "", "", now, now, nil)
	mock.ExpectQuery("SELECT .* FROM scans WHERE id = \\$1 AND deleted_at IS NULL FOR UPDATE").
		WithArgs("scan-1").
		WillReturnRows(rows)
	mock.ExpectRollback()

	ok, err := repo.CompareAndSetStatus(ctx, "scan-1", models.StatusQueued, models.StatusNmapRunning, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false when current status no longer matches expected — stale event")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMergeParsedResultsLeavesStatusAndTimestampsUntouched(t *testing.T) {
	repo, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now()
	completedAt := now

	mock.ExpectBegin()
	rows := sqlmock.NewRows([]string{
		"id", "target_id", "scan_type_id", "status", "initiated_at", "started_at", "completed_at",
		"parsed_results", "error_message", "report_path", "created_at", "updated_at", "deleted_at",
	}).AddRow("scan-1", "target-1", "type-1", string(models.StatusFailed), now, &now, &completedAt,
		[]byte(`{}`), "cancelled by user", "", now, now, nil)
	mock.ExpectQuery("SELECT .* FROM scans WHERE id = \\$1 AND deleted_at IS NULL FOR UPDATE").
		WithArgs("scan-1").
		WillReturnRows(rows)
	// Only parsed_results/updated_at may change here — status, timestamps,
	// and error_message must not appear in this statement.
	mock.ExpectExec("UPDATE scans SET parsed_results = \\$2, updated_at = \\$3 WHERE id = \\$1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	scan, err := repo.MergeParsedResults(ctx, "scan-1", func(s *models.Scan) error {
		s.ParsedResults[models.ModuleNmap] = "raw-xml"
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scan.Status != models.StatusFailed {
		t.Errorf("Status = %q, want unchanged %q", scan.Status, models.StatusFailed)
	}
	if scan.ErrorMessage != "cancelled by user" {
		t.Errorf("ErrorMessage = %q, want unchanged", scan.ErrorMessage)
	}
	if scan.ParsedResults[models.ModuleNmap] != "raw-xml" {
		t.Errorf("ParsedResults[nmap] = %v, want merged value", scan.ParsedResults[models.ModuleNmap])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMergeParsedResultsPropagatesMutateError(t *testing.T) {
	repo, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectBegin()
	rows := sqlmock.NewRows([]string{
		"id", "target_id", "scan_type_id", "status", "initiated_at", "started_at", "completed_at",
		"parsed_results", "error_message", "report_path", "created_at", "updated_at", "deleted_at",
	}).AddRow("scan-1", "target-1", "type-1", string(models.StatusNmapRunning), now, nil, nil,
		[]byte(`{}`), "", "", now, now, nil)
	mock.ExpectQuery("SELECT .* FROM scans WHERE id = \\$1 AND deleted_at IS NULL FOR UPDATE").
		WithArgs("scan-1").
		WillReturnRows(rows)
	mock.ExpectRollback()

	wantErr := ErrNotFound
	_, err := repo.MergeParsedResults(ctx, "scan-1", func(s *models.Scan) error {
		return wantErr
	})
	if err != wantErr {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestScanRepoCreateMapsUniqueViolationToConflict(t *testing.T) {
	repo, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO scans").WillReturnError(&pq.Error{Code: pqUniqueViolation})

	scan := models.NewScan("target-1", "type-1")
	err := repo.Create(ctx, scan)
	if err != ErrConflict {
		t.Errorf("Create() error = %v, want ErrConflict", err)
	}
}

func TestScanRepoGetNotFound(t *testing.T) {
	repo, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT .* FROM scans WHERE id = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "target_id", "scan_type_id", "status", "initiated_at", "started_at", "completed_at",
			"parsed_results", "error_message", "report_path", "created_at", "updated_at", "deleted_at",
		}))

	_, err := repo.Get(ctx, "missing")
	if err != ErrNotFound {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}
