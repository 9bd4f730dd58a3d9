package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VulnerabilityCount is the per-severity tally extracted from an external
// vulnerability engine's report (see §6 parsing contract).
type VulnerabilityCount struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Log      int `json:"log"`
	Total    int `json:"total"`
}

// VulnEngineResult is the one-per-Scan record of an external vulnerability
// engine's run.
type VulnEngineResult struct {
	ID                string              `json:"id" db:"id"`
	ScanID            string              `json:"scan_id" db:"scan_id"`
	TargetID          string              `json:"target_id" db:"target_id"`
	ExternalTaskID    string              `json:"external_task_id,omitempty" db:"external_task_id"`
	ExternalReportID  string              `json:"external_report_id,omitempty" db:"external_report_id"`
	ExternalTargetID  string              `json:"external_target_id,omitempty" db:"external_target_id"`
	ExternalStatus    string              `json:"external_status" db:"external_status"`
	Progress          int                 `json:"progress" db:"progress"`
	ReportFormat      ReportFormat        `json:"report_format" db:"report_format"`
	FullReport        string              `json:"full_report,omitempty" db:"full_report"`
	VulnerabilityCount VulnerabilityCount `json:"vulnerability_count" db:"vulnerability_count"`
	StartedAt         *time.Time          `json:"started_at,omitempty" db:"started_at"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt         time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at" db:"updated_at"`
}

// NewVulnEngineResult creates a VulnEngineResult with a freshly minted ID.
func NewVulnEngineResult(scanID, targetID string) *VulnEngineResult {
	return &VulnEngineResult{ID: uuid.New().String(), ScanID: scanID, TargetID: targetID}
}

// Validate enforces the VulnEngineResult invariants from §3.
func (v *VulnEngineResult) Validate() error {
	if v.Progress < 0 || v.Progress > 100 {
		return fmt.Errorf("vuln_engine_result: progress %d out of bounds 0-100", v.Progress)
	}
	if v.ReportFormat != "" && v.ReportFormat != ReportFormatXML && v.ReportFormat != ReportFormatJSON {
		return fmt.Errorf("vuln_engine_result: report_format must be XML or JSON, got %q", v.ReportFormat)
	}
	return nil
}
