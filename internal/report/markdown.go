// Package report assembles the final per-scan markdown artifact the
// report-worker produces, in the table-per-section strings.Builder style
// the teacher's report package used for its subdomain/port/vuln reports —
// here consolidated into one assembler over a single scan's full result
// set instead of three separate reports over three separate pipelines.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/vapter/vaptord/internal/models"
)

// severityOrder defines the display order for vulnerability sections
// (most severe first).
var severityOrder = []models.Severity{
	models.SeverityCritical,
	models.SeverityHigh,
	models.SeverityMedium,
	models.SeverityLow,
	models.SeverityLog,
}

// ScanReport carries every piece of a scan the final report touches.
type ScanReport struct {
	Scan        *models.Scan
	Target      *models.Target
	Detail      *models.ScanDetail
	Fingerprint []*models.FingerprintDetail
	VulnEngine  *models.VulnEngineResult
	VulnLookup  []models.VulnLookupFinding
}

// RenderMarkdown assembles r into the final markdown artifact. It never
// returns an error — a missing optional section (no ScanDetail, no vuln
// results) is rendered as "None found." ("Not run." for the vuln-engine
// section) rather than failing the report
// stage, consistent with report generation being optional and non-fatal.
func RenderMarkdown(r ScanReport) string {
	var b strings.Builder

	b.WriteString("# Vulnerability Assessment Report\n\n")
	b.WriteString(fmt.Sprintf("**Target:** %s\n", targetLabel(r.Target)))
	b.WriteString(fmt.Sprintf("**Scan ID:** %s\n", r.Scan.ID))
	b.WriteString(fmt.Sprintf("**Generated:** %s\n\n", time.Now().UTC().Format("2006-01-02 15:04:05 UTC")))

	writePortsSection(&b, r.Detail)
	writeFingerprintSection(&b, r.Fingerprint)
	writeVulnEngineSection(&b, r.VulnEngine)
	writeVulnLookupSection(&b, r.VulnLookup)

	return b.String()
}

func targetLabel(t *models.Target) string {
	if t == nil {
		return "unknown"
	}
	if t.DisplayName != "" {
		return fmt.Sprintf("%s (%s)", t.DisplayName, t.Address)
	}
	return t.Address
}

func writePortsSection(b *strings.Builder, detail *models.ScanDetail) {
	b.WriteString("## Open Ports\n\n")
	if detail == nil || detail.OpenPorts == nil || (len(detail.OpenPorts.TCP) == 0 && len(detail.OpenPorts.UDP) == 0) {
		b.WriteString("None found.\n\n")
		return
	}

	b.WriteString("| Protocol | Port | Service | Version |\n")
	b.WriteString("|----------|------|---------|---------|\n")
	for _, p := range detail.OpenPorts.TCP {
		b.WriteString(fmt.Sprintf("| tcp | %d | %s | %s |\n", p.Port, orDash(p.Service), orDash(p.Version)))
	}
	for _, p := range detail.OpenPorts.UDP {
		b.WriteString(fmt.Sprintf("| udp | %d | %s | %s |\n", p.Port, orDash(p.Service), orDash(p.Version)))
	}
	b.WriteString("\n")

	if detail.OSGuess != nil {
		b.WriteString(fmt.Sprintf("**OS guess:** %s (%d%% confidence)\n\n", detail.OSGuess.Name, detail.OSGuess.Accuracy))
	}
}

func writeFingerprintSection(b *strings.Builder, details []*models.FingerprintDetail) {
	b.WriteString("## Service Fingerprints\n\n")
	if len(details) == 0 {
		b.WriteString("None found.\n\n")
		return
	}
	b.WriteString("| Port | Protocol | Service | Product | Version |\n")
	b.WriteString("|------|----------|---------|---------|---------|\n")
	for _, d := range details {
		b.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			d.Port, d.Protocol, orDash(d.ServiceName), orDash(d.ServiceProduct), orDash(d.ServiceVersion)))
	}
	b.WriteString("\n")
}

func writeVulnEngineSection(b *strings.Builder, result *models.VulnEngineResult) {
	b.WriteString("## Vulnerability Engine Results\n\n")
	if result == nil || result.FullReport == "" {
		b.WriteString("Not run.\n\n")
		return
	}
	c := result.VulnerabilityCount
	b.WriteString(fmt.Sprintf(
		"- **Critical:** %d\n- **High:** %d\n- **Medium:** %d\n- **Low:** %d\n- **Log:** %d\n- **Total:** %d\n\n",
		c.Critical, c.High, c.Medium, c.Low, c.Log, c.Total,
	))
}

func writeVulnLookupSection(b *strings.Builder, findings []models.VulnLookupFinding) {
	b.WriteString("## Vulnerability Lookup Findings\n\n")
	if len(findings) == 0 {
		b.WriteString("None found.\n\n")
		return
	}

	bySeverity := make(map[models.Severity][]models.VulnLookupFinding)
	for _, f := range findings {
		bySeverity[f.Severity] = append(bySeverity[f.Severity], f)
	}

	for _, sev := range severityOrder {
		group := bySeverity[sev]
		b.WriteString(fmt.Sprintf("### %s\n\n", strings.ToUpper(string(sev))))
		if len(group) == 0 {
			b.WriteString("No findings.\n\n")
			continue
		}
		b.WriteString("| Name | Host | Matched At | Template ID |\n")
		b.WriteString("|------|------|------------|-------------|\n")
		for _, f := range group {
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", f.Name, f.Host, orDash(f.MatchedAt), f.TemplateID))
		}
		b.WriteString("\n")
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
