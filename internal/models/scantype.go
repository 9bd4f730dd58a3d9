package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScanType (a "recipe") declares which stages a Scan runs. The four plugin
// booleans define the ordered opt-in set of post-discovery stages.
type ScanType struct {
	ID               string     `json:"id" db:"id"`
	Name             string     `json:"name" db:"name"`
	OnlyDiscovery    bool       `json:"only_discovery" db:"only_discovery"`
	ConsiderAlive    bool       `json:"consider_alive" db:"consider_alive"`
	BeQuiet          bool       `json:"be_quiet" db:"be_quiet"`
	PortListID       *string    `json:"port_list_id,omitempty" db:"port_list_id"`
	PluginFingerprint bool      `json:"plugin_fingerprint" db:"plugin_fingerprint"`
	PluginVulnEngine bool       `json:"plugin_vuln_engine" db:"plugin_vuln_engine"`
	PluginWeb        bool       `json:"plugin_web" db:"plugin_web"`
	PluginVulnLookup bool       `json:"plugin_vuln_lookup" db:"plugin_vuln_lookup"`
	Description      string     `json:"description,omitempty" db:"description"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// NewScanType creates a ScanType with a freshly minted ID.
func NewScanType(name string) *ScanType {
	return &ScanType{ID: uuid.New().String(), Name: name}
}

// Validate enforces the ScanType invariant from §3: only_discovery=true
// forbids selecting any post-discovery plugin.
func (st *ScanType) Validate() error {
	if st.OnlyDiscovery && (st.PluginFingerprint || st.PluginVulnEngine || st.PluginWeb || st.PluginVulnLookup) {
		return fmt.Errorf("scan_type: only_discovery is set but post-discovery plugins are also selected")
	}
	return nil
}

// EnabledPlugins returns, in CanonicalPluginOrder, the plugins this recipe
// has opted into.
func (st *ScanType) EnabledPlugins() []Module {
	var out []Module
	for _, mod := range CanonicalPluginOrder {
		if st.pluginEnabled(mod) {
			out = append(out, mod)
		}
	}
	return out
}

func (st *ScanType) pluginEnabled(mod Module) bool {
	switch mod {
	case ModuleFingerprint:
		return st.PluginFingerprint
	case ModuleVulnEngine:
		return st.PluginVulnEngine
	case ModuleWeb:
		return st.PluginWeb
	case ModuleVulnLookup:
		return st.PluginVulnLookup
	default:
		return false
	}
}

// WantsReport reports whether this recipe requests a report-generation
// stage after the last enabled plugin completes. Every recipe that is not
// discovery-only gets a report; discovery-only recipes stop at Completed
// immediately after the nmap stage.
func (st *ScanType) WantsReport() bool {
	return !st.OnlyDiscovery
}
