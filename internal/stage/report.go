package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/vapter/vaptord/internal/apiclient"
	"github.com/vapter/vaptord/internal/models"
	"github.com/vapter/vaptord/internal/report"
)

// ReportHandler assembles the final markdown artifact from every other
// stage's persisted results and writes it under reportsDir. Report
// generation is explicitly non-fatal (§4.4): a failure here still
// completes the scan, just without a report_path, so Execute returns an error
// only when fetching the Scan or the CompleteReport call itself fails —
// every generation failure is captured and forwarded to CompleteReport as
// a warning.
type ReportHandler struct {
	api        *apiclient.Client
	reportsDir string
	log        *logrus.Entry
}

// NewReportHandler builds a ReportHandler.
func NewReportHandler(api *apiclient.Client, reportsDir string, log *logrus.Entry) *ReportHandler {
	return &ReportHandler{api: api, reportsDir: reportsDir, log: log}
}

func (h *ReportHandler) Module() models.Module { return models.ModuleReport }

func (h *ReportHandler) Execute(ctx context.Context, req models.StageRequest) (any, error) {
	scan, err := h.api.GetScan(ctx, req.ScanID)
	if err != nil {
		return nil, fmt.Errorf("report stage: fetching scan: %w", err)
	}

	reportPath, genErr := h.generate(ctx, req, scan)

	if compErr := h.api.CompleteReport(ctx, req.ScanID, reportPath, genErr); compErr != nil {
		return nil, fmt.Errorf("report stage: completing scan: %w", compErr)
	}
	if genErr != nil {
		h.log.WithError(genErr).WithField("scan_id", req.ScanID).Warn("report generation failed, scan completed anyway")
	}
	return reportPath, nil
}

// generate assembles and writes the markdown artifact, returning its path.
// Every upstream fetch here degrades to a nil/empty section on failure —
// the markdown renderer already treats those as "None found"/"Not run" —
// so only a write failure or a missing Target is reported as genErr.
func (h *ReportHandler) generate(ctx context.Context, req models.StageRequest, scan *models.Scan) (string, error) {
	target, err := h.api.GetTarget(ctx, scan.TargetID)
	if err != nil {
		return "", fmt.Errorf("fetching target: %w", err)
	}

	detail, err := h.api.GetScanDetail(ctx, req.ScanID)
	if err != nil && err != apiclient.ErrNotFound {
		h.log.WithError(err).WithField("scan_id", req.ScanID).Warn("fetching scan detail for report failed")
	}

	fingerprints, err := h.api.ListFingerprintDetailsByScan(ctx, req.ScanID)
	if err != nil {
		h.log.WithError(err).WithField("scan_id", req.ScanID).Warn("fetching fingerprint details for report failed")
	}

	vulnEngine, err := h.api.GetVulnEngineResultByScan(ctx, req.ScanID)
	if err != nil && err != apiclient.ErrNotFound {
		h.log.WithError(err).WithField("scan_id", req.ScanID).Warn("fetching vuln-engine result for report failed")
	}

	var vulnLookup []models.VulnLookupFinding
	if raw, ok := scan.ParsedResults[models.ModuleVulnLookup]; ok && raw != nil {
		if findings, ok := decodeVulnLookupFindings(raw); ok {
			vulnLookup = findings
		}
	}

	markdown := report.RenderMarkdown(report.ScanReport{
		Scan:        scan,
		Target:      target,
		Detail:      detail,
		Fingerprint: fingerprints,
		VulnEngine:  vulnEngine,
		VulnLookup:  vulnLookup,
	})

	if err := os.MkdirAll(h.reportsDir, 0755); err != nil {
		return "", fmt.Errorf("creating reports directory: %w", err)
	}
	path := filepath.Join(h.reportsDir, req.ScanID+".md")
	if err := os.WriteFile(path, []byte(markdown), 0644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// decodeVulnLookupFindings re-decodes a Scan's parsed_results[vuln_lookup]
// entry, which arrives as generic map[string]any from JSON rather than as
// models.VulnLookupFinding structs — so each entry is mapped field by
// field (entries that are not objects are skipped) before the typed
// report renderer can use it.
func decodeVulnLookupFindings(raw any) ([]models.VulnLookupFinding, bool) {
	items, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	findings := make([]models.VulnLookupFinding, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		f := models.VulnLookupFinding{
			TemplateID:  stringField(m, "template_id"),
			Name:        stringField(m, "name"),
			Severity:    models.Severity(stringField(m, "severity")),
			Host:        stringField(m, "host"),
			URL:         stringField(m, "url"),
			Description: stringField(m, "description"),
			MatchedAt:   stringField(m, "matched_at"),
		}
		if p, ok := m["port"].(float64); ok {
			f.Port = int(p)
		}
		findings = append(findings, f)
	}
	return findings, true
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
