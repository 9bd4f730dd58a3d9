package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vapter/vaptord/internal/config"
	"github.com/vapter/vaptord/internal/models"
	"github.com/vapter/vaptord/internal/pipeline"
	"github.com/vapter/vaptord/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var errNotFound = sql.ErrNoRows

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, queue string, v any) error { return nil }

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	st := store.NewForTest(db)
	log := logrus.NewEntry(logrus.New())
	dispatcher := pipeline.New(st, noopPublisher{}, config.DefaultConfig().Queues, nil, nil, log)
	return New(st, dispatcher, log), mock
}

func TestCreateCustomerReturnsCreated(t *testing.T) {
	s, mock := newTestServer(t)
	mock.ExpectExec("INSERT INTO customers").WillReturnResult(sqlmock.NewResult(0, 1))

	router := s.Router()
	body, _ := json.Marshal(createCustomerRequest{Name: "Acme", Email: "ops@acme.test"})
	req := httptest.NewRequest(http.MethodPost, "/api/orchestrator/customers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", rec.Code, rec.Body.String())
	}
}

func TestCreateCustomerRejectsInvalidEmail(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	body, _ := json.Marshal(createCustomerRequest{Name: "Acme", Email: "not-an-email"})
	req := httptest.NewRequest(http.MethodPost, "/api/orchestrator/customers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body=%s", rec.Code, rec.Body.String())
	}
}

func TestGetCustomerNotFoundMapsTo404(t *testing.T) {
	s, mock := newTestServer(t)
	mock.ExpectQuery("FROM customers WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(errNotFound)

	router := s.Router()
	req := httptest.NewRequest(http.MethodGet, "/api/orchestrator/customers/missing", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body=%s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] == "" {
		t.Error("expected a non-empty error message")
	}
}

func TestPatchScanNmapResultsDerivesScanDetail(t *testing.T) {
	s, mock := newTestServer(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM scans WHERE id = \\$1").WithArgs("scan-1").WillReturnRows(
		sqlmock.NewRows([]string{
			"id", "target_id", "scan_type_id", "status", "initiated_at", "started_at", "completed_at",
			"parsed_results", "error_message", "report_path", "created_at", "updated_at", "deleted_at",
		}).AddRow("scan-1", "target-1", "type-1", string(models.StatusNmapRunning), now, nil, nil,
			[]byte(`{}`), "", "", now, now, nil),
	)
	mock.ExpectExec("UPDATE scans SET parsed_results").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM scan_details WHERE scan_id = \\$1").WithArgs("scan-1").
		WillReturnError(errNotFound)
	mock.ExpectExec("INSERT INTO scan_details").WillReturnResult(sqlmock.NewResult(0, 1))

	router := s.Router()
	payload := map[string]string{"parsed_nmap_results": nmapXML}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPatch, "/api/orchestrator/scans/scan-1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
}

const nmapXML = `<?xml version="1.0"?>
<nmaprun>
  <host>
    <address addr="192.0.2.10" addrtype="ipv4"/>
    <ports>
      <port protocol="tcp" portid="22">
        <state state="open"/>
        <service name="ssh" product="OpenSSH" version="8.9"/>
      </port>
    </ports>
  </host>
</nmaprun>`
