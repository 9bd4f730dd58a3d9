package models

import (
	"time"

	"github.com/google/uuid"
)

// ParsedResults holds each stage's structured artifact, keyed by Module.
// A missing or nil entry means the stage has not reported results yet; the
// dispatcher uses this to decide which plugins remain. The contract is
// "object or null" — never the boolean-true placeholder the source
// sometimes wrote (see design notes).
type ParsedResults map[Module]any

// Empty reports whether mod's results have not yet been populated.
func (p ParsedResults) Empty(mod Module) bool {
	v, ok := p[mod]
	return !ok || v == nil
}

// Scan is one end-to-end pipeline run against one Target under one ScanType.
type Scan struct {
	ID            string        `json:"id" db:"id"`
	TargetID      string        `json:"target_id" db:"target_id"`
	ScanTypeID    string        `json:"scan_type_id" db:"scan_type_id"`
	Status        ScanStatus    `json:"status" db:"status"`
	InitiatedAt   time.Time     `json:"initiated_at" db:"initiated_at"`
	StartedAt     *time.Time    `json:"started_at,omitempty" db:"started_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
	ParsedResults ParsedResults `json:"parsed_results" db:"parsed_results"`
	ErrorMessage  string        `json:"error_message,omitempty" db:"error_message"`
	ReportPath    string        `json:"report_path,omitempty" db:"report_path"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
	DeletedAt     *time.Time    `json:"deleted_at,omitempty" db:"deleted_at"`
}

// NewScan creates a Scan in its initial Pending state for targetID/scanTypeID.
func NewScan(targetID, scanTypeID string) *Scan {
	return &Scan{
		ID:            uuid.New().String(),
		TargetID:      targetID,
		ScanTypeID:    scanTypeID,
		Status:        StatusPending,
		InitiatedAt:   time.Now(),
		ParsedResults: ParsedResults{},
	}
}

// Restart clears every per-run field so the Scan re-enters at Pending,
// per the restart contract in §4.4. Only valid from a terminal status —
// callers must check Status.Terminal() before calling this.
func (s *Scan) Restart() {
	s.Status = StatusPending
	s.StartedAt = nil
	s.CompletedAt = nil
	s.ParsedResults = ParsedResults{}
	s.ErrorMessage = ""
	s.ReportPath = ""
}

// ScanDetail is 1:1 with Scan — extracted open-ports/OS-guess structures
// plus per-stage timestamps.
type ScanDetail struct {
	ID           string       `json:"id" db:"id"`
	ScanID       string       `json:"scan_id" db:"scan_id"`
	OpenPorts    *OpenPorts   `json:"open_ports,omitempty" db:"open_ports"`
	OSGuess      *OSGuess     `json:"os_guess,omitempty" db:"os_guess"`
	StageTimings StageTimings `json:"stage_timings" db:"stage_timings"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// StageTimings holds started_at/completed_at per module.
type StageTimings map[Module]StageTiming

// StageTiming is one module's started_at/completed_at pair.
type StageTiming struct {
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// OpenPorts is the derived, per-protocol list of open ports (see §6).
type OpenPorts struct {
	TCP []OpenPort `json:"tcp"`
	UDP []OpenPort `json:"udp"`
}

// OpenPort is one open-port entry within OpenPorts.
type OpenPort struct {
	Port      int    `json:"port"`
	State     string `json:"state"`
	Service   string `json:"service,omitempty"`
	Product   string `json:"product,omitempty"`
	Version   string `json:"version,omitempty"`
	ExtraInfo string `json:"extrainfo,omitempty"`
}

// OSGuess is the derived operating-system detection result (see §6).
type OSGuess struct {
	Name     string `json:"name"`
	Accuracy int    `json:"accuracy"`
	Vendor   string `json:"vendor,omitempty"`
	Type     string `json:"type,omitempty"`
	OSFamily string `json:"osfamily,omitempty"`
	OSGen    string `json:"osgen,omitempty"`
}

// NewScanDetail creates an empty ScanDetail for scanID.
func NewScanDetail(scanID string) *ScanDetail {
	return &ScanDetail{
		ID:           uuid.New().String(),
		ScanID:       scanID,
		StageTimings: StageTimings{},
	}
}
