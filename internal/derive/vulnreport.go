package derive

import (
	"encoding/xml"
	"fmt"

	"github.com/vapter/vaptord/internal/models"
)

// gceReport mirrors the subset of a Greenbone/OpenVAS GMP <get_reports>
// response this derivation needs: report/result_count's per-severity
// children, the same shape the source's GCEConnector.get_scan_results
// walks with lxml's .find()/.xpath().
type gceReport struct {
	XMLName xml.Name        `xml:"report"`
	Results gceReportResult `xml:"report>result_count"`
}

type gceReportResult struct {
	Full     int `xml:"full"`
	Hole     int `xml:"hole"`
	Warning  int `xml:"warning"`
	Info     int `xml:"info"`
	LogCount int `xml:"log"`
}

// VulnReport parses a vuln-engine's XML report into the per-severity
// tally a VulnEngineResult stores. GCE's own severity taxonomy (hole,
// warning, info, log) is remapped onto the four-tier
// critical/high/medium/low scheme the rest of the system uses: each
// "hole" is either critical or high. Results carrying a CVSS of 9.0 or
// above (sourced from reportSeverities) count as critical, up to the hole
// count; the remaining holes count as high.
func VulnReport(xmlData []byte) (models.VulnerabilityCount, error) {
	var report gceReport
	if err := xml.Unmarshal(xmlData, &report); err != nil {
		return models.VulnerabilityCount{}, fmt.Errorf("derive: parsing vuln-engine XML: %w", err)
	}

	severities, err := reportSeverities(xmlData)
	if err != nil {
		return models.VulnerabilityCount{}, err
	}

	count := models.VulnerabilityCount{
		Medium: report.Results.Warning,
		Low:    report.Results.Info,
		Log:    report.Results.LogCount,
		Total:  report.Results.Full,
	}
	for _, sev := range severities {
		if sev >= 9.0 && count.Critical < report.Results.Hole {
			count.Critical++
		}
	}
	// A report that carries result_count/hole but no per-result severities
	// (a minimal or truncated report) still counts every hole as High so
	// Total isn't silently undercounted.
	count.High = report.Results.Hole - count.Critical
	if report.Results.Full == 0 {
		count.Total = count.Critical + count.High + count.Medium + count.Low + count.Log
	}
	return count, nil
}

type gceResultList struct {
	Results []gceResult `xml:"report>results>result"`
}

type gceResult struct {
	Severity float64 `xml:"severity"`
}

// reportSeverities extracts every result's numeric CVSS severity from the
// full results list, used only to split "hole" between critical and high.
func reportSeverities(xmlData []byte) ([]float64, error) {
	var list gceResultList
	if err := xml.Unmarshal(xmlData, &list); err != nil {
		return nil, fmt.Errorf("derive: parsing vuln-engine result severities: %w", err)
	}
	out := make([]float64, 0, len(list.Results))
	for _, r := range list.Results {
		if r.Severity > 0 {
			out = append(out, r.Severity)
		}
	}
	return out, nil
}
