package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// StageRequest is published by the dispatcher and consumed by a stage
// worker (§4.3). One struct covers every stage; Plugin selects the queue.
type StageRequest struct {
	ScanID     string    `json:"scan_id"`
	TargetID   string    `json:"target_id"`
	TargetHost string    `json:"target_host"`
	ScanTypeID string    `json:"scan_type_id,omitempty"`
	Plugin     Module    `json:"plugin"`
	Timestamp  time.Time `json:"timestamp"`
}

// Validate rejects a StageRequest missing any required field.
func (r *StageRequest) Validate() error {
	if r.ScanID == "" {
		return fmt.Errorf("stage_request: scan_id is required")
	}
	if r.TargetID == "" {
		return fmt.Errorf("stage_request: target_id is required")
	}
	if r.TargetHost == "" {
		return fmt.Errorf("stage_request: target_host is required")
	}
	switch r.Plugin {
	case ModuleNmap, ModuleFingerprint, ModuleVulnEngine, ModuleWeb, ModuleVulnLookup, ModuleReport:
	default:
		return fmt.Errorf("stage_request: unknown plugin %q", r.Plugin)
	}
	return nil
}

// StatusEvent is published by a worker and consumed by the dispatcher's
// status-update consumer (§4.3). Status is normalized on decode so callers
// never see the source's "error" synonym for "failed".
type StatusEvent struct {
	ScanID       string      `json:"scan_id"`
	Module       Module      `json:"module"`
	Status       EventStatus `json:"status"`
	Timestamp    time.Time   `json:"timestamp"`
	Message      string      `json:"message,omitempty"`
	ErrorDetails string      `json:"error_details,omitempty"`
	Progress     *int        `json:"progress,omitempty"`
}

// statusEventWire is the on-wire shape before status normalization; it lets
// UnmarshalJSON accept either "failed" or the source's "error" literal.
type statusEventWire struct {
	ScanID       string    `json:"scan_id"`
	Module       Module    `json:"module"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Message      string    `json:"message,omitempty"`
	ErrorDetails string    `json:"error_details,omitempty"`
	Progress     *int      `json:"progress,omitempty"`
}

// UnmarshalJSON decodes a StatusEvent, normalizing the status field.
func (e *StatusEvent) UnmarshalJSON(data []byte) error {
	var w statusEventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.ScanID = w.ScanID
	e.Module = w.Module
	e.Status = NormalizeEventStatus(w.Status)
	e.Timestamp = w.Timestamp
	e.Message = w.Message
	e.ErrorDetails = w.ErrorDetails
	e.Progress = w.Progress
	return nil
}

// MarshalJSON encodes a StatusEvent using the canonical "failed" literal.
func (e StatusEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(statusEventWire{
		ScanID:       e.ScanID,
		Module:       e.Module,
		Status:       string(e.Status),
		Timestamp:    e.Timestamp,
		Message:      e.Message,
		ErrorDetails: e.ErrorDetails,
		Progress:     e.Progress,
	})
}

// Validate rejects a StatusEvent with an unknown module, status, or
// out-of-range progress value. Parsing rejects unknown tags rather than
// silently accepting them, per the design notes' closed-variant decision.
func (e *StatusEvent) Validate() error {
	if e.ScanID == "" {
		return fmt.Errorf("status_event: scan_id is required")
	}
	switch e.Module {
	case ModuleNmap, ModuleFingerprint, ModuleVulnEngine, ModuleWeb, ModuleVulnLookup, ModuleReport:
	default:
		return fmt.Errorf("status_event: unknown module %q", e.Module)
	}
	switch e.Status {
	case EventReceived, EventRunning, EventParsing, EventCompleted, EventFailed:
	default:
		return fmt.Errorf("status_event: unknown status %q", e.Status)
	}
	if e.Progress != nil && (*e.Progress < 0 || *e.Progress > 100) {
		return fmt.Errorf("status_event: progress %d out of bounds 0-100", *e.Progress)
	}
	return nil
}

// IsTerminal reports whether e carries a terminal stage outcome.
func (e *StatusEvent) IsTerminal() bool {
	return e.Status == EventCompleted || e.Status == EventFailed
}
