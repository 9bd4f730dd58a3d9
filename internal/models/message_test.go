package models

import (
	"encoding/json"
	"testing"
)

func TestStatusEventAcceptsErrorSynonym(t *testing.T) {
	raw := []byte(`{"scan_id":"s1","module":"nmap","status":"error","timestamp":"2026-01-01T00:00:00Z"}`)
	var e StatusEvent
	if err := json.Unmarshal(raw, &e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Status != EventFailed {
		t.Errorf("Status = %q, want %q", e.Status, EventFailed)
	}
}

func TestStatusEventRoundTripCanonicalizesFailed(t *testing.T) {
	e := StatusEvent{ScanID: "s1", Module: ModuleNmap, Status: EventFailed}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal to map: %v", err)
	}
	if decoded["status"] != "failed" {
		t.Errorf("status = %v, want failed", decoded["status"])
	}
}

func TestStatusEventValidateRejectsUnknownModule(t *testing.T) {
	e := StatusEvent{ScanID: "s1", Module: "bogus", Status: EventRunning}
	if err := e.Validate(); err == nil {
		t.Error("expected error for unknown module")
	}
}

func TestStatusEventValidateRejectsBadProgress(t *testing.T) {
	p := 150
	e := StatusEvent{ScanID: "s1", Module: ModuleNmap, Status: EventRunning, Progress: &p}
	if err := e.Validate(); err == nil {
		t.Error("expected error for out-of-range progress")
	}
}

func TestStageRequestValidate(t *testing.T) {
	r := StageRequest{ScanID: "s1", TargetID: "t1", TargetHost: "example.com", Plugin: ModuleFingerprint}
	if err := r.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	r2 := StageRequest{}
	if err := r2.Validate(); err == nil {
		t.Error("expected error for missing fields")
	}
}
