package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vapter/vaptord/internal/apiclient"
	"github.com/vapter/vaptord/internal/models"
)

type fakeHandler struct {
	module models.Module
	result any
	err    error
}

func (h *fakeHandler) Module() models.Module { return h.module }
func (h *fakeHandler) Execute(ctx context.Context, req models.StageRequest) (any, error) {
	return h.result, h.err
}

type fakeStatusPublisher struct {
	events []models.StatusEvent
}

func (f *fakeStatusPublisher) Publish(ctx context.Context, queue string, v any) error {
	evt, ok := v.(models.StatusEvent)
	if !ok {
		return nil
	}
	f.events = append(f.events, evt)
	return nil
}

func validRequest() []byte {
	req := models.StageRequest{
		ScanID: "scan-1", TargetID: "target-1", TargetHost: "192.0.2.10",
		Plugin: models.ModuleNmap, Timestamp: time.Now(),
	}
	data, _ := json.Marshal(req)
	return data
}

func TestHandleSuccessPublishesReceivedParsingCompleted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	handler := &fakeHandler{module: models.ModuleNmap, result: map[string]any{"ports": []int{22, 80}}}
	pub := &fakeStatusPublisher{}
	api := apiclient.New(server.URL, time.Second)
	log := logrus.NewEntry(logrus.New())

	rt := New(handler, api, pub, "scan.status.updates", time.Hour, log)
	if err := rt.Handle(context.Background(), validRequest()); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	var statuses []models.EventStatus
	for _, e := range pub.events {
		statuses = append(statuses, e.Status)
	}
	want := []models.EventStatus{models.EventReceived, models.EventParsing, models.EventCompleted}
	if len(statuses) != len(want) {
		t.Fatalf("statuses = %v, want %v", statuses, want)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("status[%d] = %q, want %q", i, statuses[i], want[i])
		}
	}
}

func TestHandleExecuteFailurePublishesFailed(t *testing.T) {
	handler := &fakeHandler{module: models.ModuleNmap, err: errors.New("nmap: exit status 1")}
	pub := &fakeStatusPublisher{}
	api := apiclient.New("http://127.0.0.1:0", time.Second)
	log := logrus.NewEntry(logrus.New())

	rt := New(handler, api, pub, "scan.status.updates", time.Hour, log)
	if err := rt.Handle(context.Background(), validRequest()); err == nil {
		t.Fatal("expected error from failed stage execution")
	}

	if len(pub.events) != 2 {
		t.Fatalf("published %d events, want 2 (received, failed)", len(pub.events))
	}
	if pub.events[1].Status != models.EventFailed {
		t.Errorf("final status = %q, want failed", pub.events[1].Status)
	}
}

func TestHandleRejectsInvalidRequest(t *testing.T) {
	handler := &fakeHandler{module: models.ModuleNmap}
	pub := &fakeStatusPublisher{}
	api := apiclient.New("http://127.0.0.1:0", time.Second)
	log := logrus.NewEntry(logrus.New())

	rt := New(handler, api, pub, "scan.status.updates", time.Hour, log)
	badReq := models.StageRequest{Plugin: models.ModuleNmap}
	data, _ := json.Marshal(badReq)
	if err := rt.Handle(context.Background(), data); err == nil {
		t.Fatal("expected validation error for missing scan_id/target_id")
	}
	if len(pub.events) != 0 {
		t.Errorf("published %d events for a rejected request, want 0", len(pub.events))
	}
}
