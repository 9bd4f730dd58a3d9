package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/vapter/vaptord/internal/apierr"
	"github.com/vapter/vaptord/internal/config"
	"github.com/vapter/vaptord/internal/models"
	"github.com/vapter/vaptord/internal/store"
)

type fakePublisher struct {
	published []publishedMessage
}

type publishedMessage struct {
	queue string
	msg   any
}

func (f *fakePublisher) Publish(ctx context.Context, queue string, v any) error {
	f.published = append(f.published, publishedMessage{queue: queue, msg: v})
	return nil
}

func scanRow(id string, status models.ScanStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "target_id", "scan_type_id", "status", "initiated_at", "started_at", "completed_at",
		"parsed_results", "error_message", "report_path", "created_at", "updated_at", "deleted_at",
	}).AddRow(id, "target-1", "type-1", string(status), now, nil, nil, []byte(`{}`), "", "", now, now, nil)
}

func targetRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "customer_id", "display_name", "address", "created_at", "updated_at", "deleted_at"}).
		AddRow("target-1", "customer-1", "t1", "192.0.2.10", now, now, nil)
}

func scanTypeRow(fingerprintEnabled bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "only_discovery", "consider_alive", "be_quiet", "port_list_id",
		"plugin_fingerprint", "plugin_vuln_engine", "plugin_web", "plugin_vuln_lookup",
		"description", "created_at", "updated_at", "deleted_at",
	}).AddRow("type-1", "full", false, false, false, nil, fingerprintEnabled, false, false, false, "", now, now, nil)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, sqlmock.Sqlmock, *fakePublisher) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	st := store.NewForTest(db)
	pub := &fakePublisher{}
	log := logrus.NewEntry(logrus.New())
	d := New(st, pub, config.DefaultConfig().Queues, nil, nil, log)
	return d, mock, pub
}

func TestHandleStatusEventCompletedNmapAdvancesToFingerprint(t *testing.T) {
	d, mock, pub := newTestDispatcher(t)
	ctx := context.Background()

	mock.ExpectQuery("FROM scans WHERE id = \\$1").WithArgs("scan-1").WillReturnRows(scanRow("scan-1", models.StatusNmapRunning))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM scans WHERE id = \\$1 AND deleted_at IS NULL FOR UPDATE").WithArgs("scan-1").WillReturnRows(scanRow("scan-1", models.StatusNmapRunning))
	mock.ExpectExec("UPDATE scans SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery("FROM scans WHERE id = \\$1").WithArgs("scan-1").WillReturnRows(scanRow("scan-1", models.StatusNmapCompleted))
	mock.ExpectQuery("FROM scan_types WHERE id = \\$1").WithArgs("type-1").WillReturnRows(scanTypeRow(true))
	mock.ExpectQuery("FROM targets WHERE id = \\$1").WithArgs("target-1").WillReturnRows(targetRow())

	mock.ExpectBegin()
	mock.ExpectQuery("FROM scans WHERE id = \\$1 AND deleted_at IS NULL FOR UPDATE").WithArgs("scan-1").WillReturnRows(scanRow("scan-1", models.StatusNmapCompleted))
	mock.ExpectExec("UPDATE scans SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := d.HandleStatusEvent(ctx, models.StatusEvent{
		ScanID: "scan-1", Module: models.ModuleNmap, Status: models.EventCompleted, Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.published))
	}
	if pub.published[0].queue != config.DefaultConfig().Queues.FingerprintScanRequests {
		t.Errorf("published to %q, want fingerprint queue", pub.published[0].queue)
	}
}

func TestHandleStatusEventDuplicateCompletedIsNoOp(t *testing.T) {
	d, mock, pub := newTestDispatcher(t)
	ctx := context.Background()

	// Scan already advanced past Nmap Scan Running — the stale completed
	// event must be dropped without another publish.
	mock.ExpectQuery("FROM scans WHERE id = \\$1").WithArgs("scan-1").WillReturnRows(scanRow("scan-1", models.StatusFingerRunning))

	err := d.HandleStatusEvent(ctx, models.StatusEvent{
		ScanID: "scan-1", Module: models.ModuleNmap, Status: models.EventCompleted, Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.published) != 0 {
		t.Errorf("published %d messages, want 0 for stale event", len(pub.published))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateMapsLostInsertRaceToConflict(t *testing.T) {
	d, mock, _ := newTestDispatcher(t)
	ctx := context.Background()

	// The in-memory List-based check finds nothing non-terminal — but a
	// sibling request wins the race and inserts first, so the unique index
	// (schema/0002) rejects this INSERT. Create must still surface a 409,
	// not a raw driver error.
	mock.ExpectQuery("FROM targets WHERE id = \\$1").WithArgs("target-1").WillReturnRows(targetRow())
	mock.ExpectQuery("FROM scan_types WHERE id = \\$1").WithArgs("type-1").WillReturnRows(scanTypeRow(false))
	mock.ExpectQuery("FROM scans WHERE deleted_at IS NULL").WillReturnRows(sqlmock.NewRows([]string{
		"id", "target_id", "scan_type_id", "status", "initiated_at", "started_at", "completed_at",
		"parsed_results", "error_message", "report_path", "created_at", "updated_at", "deleted_at",
	}))
	mock.ExpectExec("INSERT INTO scans").WillReturnError(&pq.Error{Code: "23505"})

	_, err := d.Create(ctx, "target-1", "type-1")
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if apierr.KindOf(err) != apierr.KindConflict {
		t.Errorf("KindOf(err) = %v, want KindConflict", apierr.KindOf(err))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCancelRefusesTerminalScan(t *testing.T) {
	d, mock, _ := newTestDispatcher(t)
	ctx := context.Background()

	mock.ExpectQuery("FROM scans WHERE id = \\$1").WithArgs("scan-1").WillReturnRows(scanRow("scan-1", models.StatusCompleted))

	err := d.Cancel(ctx, "scan-1")
	if err == nil {
		t.Fatal("expected conflict error cancelling a terminal scan")
	}
}
