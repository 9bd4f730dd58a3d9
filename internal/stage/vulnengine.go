package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vapter/vaptord/internal/apiclient"
	"github.com/vapter/vaptord/internal/models"
	"github.com/vapter/vaptord/internal/vulnengine"
)

// VulnEngineConfig carries the connection/profile settings CreateTarget/
// CreateTask/StartTask need — config.VulnEngineConfig reshaped to avoid an
// import cycle between internal/config and internal/stage.
type VulnEngineConfig struct {
	Username        string
	Password        string
	SocketPath      string
	ScanConfigID    string
	ScannerID       string
	PortListID      string
	PollingInterval time.Duration
	MaxScanTime     time.Duration
	ReportFormat    models.ReportFormat
}

// VulnEngineHandler drives one external vulnerability-engine session
// end-to-end: create target/task, start the scan, poll until terminal
// (reporting progress via PatchVulnEngineProgress as it goes), then submit
// the full report — the Go shape of the source's GCEScanner.process_scan_request.
type VulnEngineHandler struct {
	api *apiclient.Client
	cfg VulnEngineConfig
	log *logrus.Entry
}

// NewVulnEngineHandler builds a VulnEngineHandler.
func NewVulnEngineHandler(api *apiclient.Client, cfg VulnEngineConfig, log *logrus.Entry) *VulnEngineHandler {
	return &VulnEngineHandler{api: api, cfg: cfg, log: log}
}

func (h *VulnEngineHandler) Module() models.Module { return models.ModuleVulnEngine }

func (h *VulnEngineHandler) Execute(ctx context.Context, req models.StageRequest) (any, error) {
	scanCtx, cancel := context.WithTimeout(ctx, h.cfg.MaxScanTime)
	defer cancel()

	client, err := vulnengine.Dial(scanCtx, h.cfg.SocketPath, h.cfg.Username, h.cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("vuln-engine stage: %w", err)
	}
	defer client.Close()

	targetName := fmt.Sprintf("vaptord-%s-%s", req.TargetHost, req.ScanID)
	targetID, err := client.CreateTarget(targetName, req.TargetHost, h.cfg.PortListID)
	if err != nil {
		return nil, fmt.Errorf("vuln-engine stage: %w", err)
	}

	taskName := fmt.Sprintf("vaptord scan %s", req.ScanID)
	taskID, err := client.CreateTask(taskName, h.cfg.ScanConfigID, targetID, h.cfg.ScannerID)
	if err != nil {
		return nil, fmt.Errorf("vuln-engine stage: %w", err)
	}

	if err := client.StartTask(taskID); err != nil {
		return nil, fmt.Errorf("vuln-engine stage: %w", err)
	}

	start := time.Now()
	status, err := client.Poll(scanCtx, taskID, h.cfg.PollingInterval, func(progress int, s string) {
		if perr := h.api.PatchVulnEngineProgress(ctx, req.ScanID, progress, s); perr != nil {
			h.log.WithError(perr).WithField("scan_id", req.ScanID).Warn("reporting vuln-engine progress failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("vuln-engine stage: %w", err)
	}
	if status.ReportID == "" {
		return nil, fmt.Errorf("vuln-engine stage: task reached %q with no report", status.Status)
	}

	reportXML, err := client.GetReport(status.ReportID)
	if err != nil {
		return nil, fmt.Errorf("vuln-engine stage: %w", err)
	}

	reportFormat := h.cfg.ReportFormat
	if reportFormat == "" {
		reportFormat = models.ReportFormatXML
	}
	completedAt := time.Now()
	if err := h.api.SubmitVulnEngineResult(ctx, req.ScanID, apiclient.VulnEngineResultRequest{
		ExternalTaskID:   taskID,
		ExternalReportID: status.ReportID,
		ExternalTargetID: targetID,
		ReportFormat:     reportFormat,
		FullReport:       string(reportXML),
		StartedAt:        &start,
		CompletedAt:      &completedAt,
	}); err != nil {
		return nil, fmt.Errorf("vuln-engine stage: submitting result: %w", err)
	}

	return string(reportXML), nil
}
