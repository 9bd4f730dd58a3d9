// Package apiclient is the worker-side HTTP client that talks back to
// the core's REST control surface (§4.3's result-upload contract),
// following the plain http.Client-plus-context idiom used throughout the
// example pack's own service-to-service clients.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vapter/vaptord/internal/models"
)

// Client is a worker's handle on the orchestrator's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a Client rooted at baseURL (API_GATEWAY_URL) with timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// PatchScanResults uploads a stage's parsed results via
// PATCH /scans/{id} with {parsed_<module>_results: ...}.
func (c *Client) PatchScanResults(ctx context.Context, scanID string, module models.Module, results any) error {
	body := map[string]any{
		fmt.Sprintf("parsed_%s_results", module): results,
	}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/scans/%s", scanID), body, nil)
}

// BulkCreateFingerprintDetails uploads fingerprint results via
// POST /fingerprint-details/bulk_create.
func (c *Client) BulkCreateFingerprintDetails(ctx context.Context, details []*models.FingerprintDetail) error {
	return c.do(ctx, http.MethodPost, "/fingerprint-details/bulk_create", details, nil)
}

// VulnEngineResultRequest is the POST /scans/{id}/vuln-engine-results body.
type VulnEngineResultRequest struct {
	ExternalTaskID     string                    `json:"external_task_id"`
	ExternalReportID   string                    `json:"external_report_id"`
	ExternalTargetID   string                    `json:"external_target_id"`
	ReportFormat       models.ReportFormat       `json:"report_format"`
	FullReport         string                    `json:"full_report"`
	VulnerabilityCount models.VulnerabilityCount `json:"vulnerability_count"`
	StartedAt          *time.Time                `json:"started_at,omitempty"`
	CompletedAt        *time.Time                `json:"completed_at,omitempty"`
}

// SubmitVulnEngineResult uploads the vuln-engine stage's full report.
func (c *Client) SubmitVulnEngineResult(ctx context.Context, scanID string, req VulnEngineResultRequest) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/scans/%s/vuln-engine-results", scanID), req, nil)
}

// PatchVulnEngineProgress reports incremental progress on a long-running
// external vuln-engine task via PATCH /scans/{id}/vuln-engine-progress.
func (c *Client) PatchVulnEngineProgress(ctx context.Context, scanID string, progress int, externalStatus string) error {
	body := map[string]any{"progress": progress, "external_status": externalStatus}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/scans/%s/vuln-engine-progress", scanID), body, nil)
}

// GetScan fetches a scan, used by a stage handler that needs a prior
// stage's parsed results as input (e.g. fingerprint reading nmap's
// open-ports list).
func (c *Client) GetScan(ctx context.Context, scanID string) (*models.Scan, error) {
	var scan models.Scan
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/scans/%s", scanID), nil, &scan); err != nil {
		return nil, err
	}
	return &scan, nil
}

// GetScanType fetches the recipe governing scanID's run.
func (c *Client) GetScanType(ctx context.Context, id string) (*models.ScanType, error) {
	var st models.ScanType
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/scan-types/%s", id), nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// GetPortList fetches a named tcp/udp port selection.
func (c *Client) GetPortList(ctx context.Context, id string) (*models.PortList, error) {
	var pl models.PortList
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/port-lists/%s", id), nil, &pl); err != nil {
		return nil, err
	}
	return &pl, nil
}

// GetTarget fetches a scan's target.
func (c *Client) GetTarget(ctx context.Context, id string) (*models.Target, error) {
	var t models.Target
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/targets/%s", id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetScanDetail fetches the nmap-derived open-ports/OS-guess record for a
// scan. Returns ErrNotFound if nmap has not uploaded results yet.
func (c *Client) GetScanDetail(ctx context.Context, scanID string) (*models.ScanDetail, error) {
	var detail models.ScanDetail
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/scan-details/%s", scanID), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListFingerprintDetailsByScan fetches every fingerprint row a scan has
// accumulated so far (used by the report stage).
func (c *Client) ListFingerprintDetailsByScan(ctx context.Context, scanID string) ([]*models.FingerprintDetail, error) {
	var details []*models.FingerprintDetail
	path := fmt.Sprintf("/fingerprint-details/by_scan?scan_id=%s", scanID)
	if err := c.do(ctx, http.MethodGet, path, nil, &details); err != nil {
		return nil, err
	}
	return details, nil
}

// GetVulnEngineResultByScan fetches the one vuln-engine result row for a
// scan, if the vuln-engine stage has run. Returns ErrNotFound otherwise.
func (c *Client) GetVulnEngineResultByScan(ctx context.Context, scanID string) (*models.VulnEngineResult, error) {
	var results []*models.VulnEngineResult
	path := fmt.Sprintf("/vuln-engine-results?scan_id=%s", scanID)
	if err := c.do(ctx, http.MethodGet, path, nil, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return results[0], nil
}

// CompleteReport reports the report stage's outcome via POST
// /scans/{id}/report — the one upload path outside the generic
// parsed_<module>_results contract, since completing a scan also has to
// drive the dispatcher's terminal state transition.
func (c *Client) CompleteReport(ctx context.Context, scanID, reportPath string, reportErr error) error {
	body := map[string]string{"report_path": reportPath}
	if reportErr != nil {
		body["error"] = reportErr.Error()
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/scans/%s/report", scanID), body, nil)
}

// ErrNotFound is returned by a Get-style method when the orchestrator
// responds 404.
var ErrNotFound = fmt.Errorf("apiclient: resource not found")

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		data, _ := io.ReadAll(resp.Body)
		return &UpstreamError{Err: fmt.Errorf("%s %s: %d: %s", method, path, resp.StatusCode, data)}
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("apiclient: %s %s: %d: %s", method, path, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// UpstreamError marks a failure a caller should retry with backoff —
// a transport error or a 5xx response from the core, per §7's
// "upstream transient" error kind.
type UpstreamError struct{ Err error }

func (e *UpstreamError) Error() string { return e.Err.Error() }
func (e *UpstreamError) Unwrap() error { return e.Err }
