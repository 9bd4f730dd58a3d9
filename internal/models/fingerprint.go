package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FingerprintDetail is one port/service fingerprinting result. Many rows
// exist per Scan, indexed on (scan, port) and (target, port).
type FingerprintDetail struct {
	ID                string     `json:"id" db:"id"`
	ScanID            string     `json:"scan_id" db:"scan_id"`
	TargetID          string     `json:"target_id" db:"target_id"`
	Port              int        `json:"port" db:"port"`
	Protocol          Protocol   `json:"protocol" db:"protocol"`
	ServiceName       string     `json:"service_name,omitempty" db:"service_name"`
	ServiceProduct    string     `json:"service_product,omitempty" db:"service_product"`
	ServiceVersion    string     `json:"service_version,omitempty" db:"service_version"`
	ServiceInfo       string     `json:"service_info,omitempty" db:"service_info"`
	FingerprintMethod string     `json:"fingerprint_method" db:"fingerprint_method"`
	ConfidenceScore   int        `json:"confidence_score" db:"confidence_score"`
	RawResponse       string     `json:"raw_response,omitempty" db:"raw_response"`
	AdditionalInfo     string    `json:"additional_info,omitempty" db:"additional_info"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// NewFingerprintDetail creates a FingerprintDetail with a freshly minted ID.
func NewFingerprintDetail(scanID, targetID string, port int, protocol Protocol) *FingerprintDetail {
	return &FingerprintDetail{
		ID:       uuid.New().String(),
		ScanID:   scanID,
		TargetID: targetID,
		Port:     port,
		Protocol: protocol,
	}
}

// Validate enforces the FingerprintDetail invariants from §3.
func (f *FingerprintDetail) Validate() error {
	if f.Port < 1 || f.Port > 65535 {
		return fmt.Errorf("fingerprint_detail: port %d out of bounds 1-65535", f.Port)
	}
	if f.Protocol != ProtocolTCP && f.Protocol != ProtocolUDP {
		return fmt.Errorf("fingerprint_detail: protocol must be tcp or udp, got %q", f.Protocol)
	}
	if f.ConfidenceScore < 0 || f.ConfidenceScore > 100 {
		return fmt.Errorf("fingerprint_detail: confidence_score %d out of bounds 0-100", f.ConfidenceScore)
	}
	return nil
}
