package models

// VulnLookupFinding is one entry in a vuln-lookup stage's parsed results —
// a single matched nuclei template against the target, stored in a
// Scan's parsed_results under the vuln_lookup key.
type VulnLookupFinding struct {
	TemplateID  string   `json:"template_id"`
	Name        string   `json:"name"`
	Severity    Severity `json:"severity"`
	Host        string   `json:"host"`
	Port        int      `json:"port,omitempty"`
	URL         string   `json:"url,omitempty"`
	Description string   `json:"description,omitempty"`
	MatchedAt   string   `json:"matched_at"`
}
