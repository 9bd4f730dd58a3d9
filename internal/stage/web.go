package stage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vapter/vaptord/internal/apiclient"
	"github.com/vapter/vaptord/internal/models"
	"github.com/vapter/vaptord/internal/tools"
)

// WebResult is one probed HTTP(S) endpoint, the web stage's parsed_results
// entry — httpx's probe fields plus the screenshot directory gowitness
// wrote its capture into.
type WebResult struct {
	URL            string   `json:"url"`
	StatusCode     int      `json:"status_code"`
	Title          string   `json:"title"`
	WebServer      string   `json:"webserver"`
	Technologies   []string `json:"technologies,omitempty"`
	ScreenshotDir  string   `json:"screenshot_dir,omitempty"`
}

// commonWebPorts is consulted when no ScanDetail with open TCP ports is
// available for the scan, so the stage still has candidate endpoints to
// probe.
var commonWebPorts = []int{80, 443, 8080, 8443, 8000, 8888}

// WebHandler adapts internal/tools/httpx.go and gowitness.go: probe every
// candidate HTTP(S) port, then screenshot whatever responded.
type WebHandler struct {
	api           *apiclient.Client
	httpxPath     string
	gowitnessPath string
	screenshotDir string
	log           *logrus.Entry
}

// NewWebHandler builds a WebHandler.
func NewWebHandler(api *apiclient.Client, httpxPath, gowitnessPath, screenshotDir string, log *logrus.Entry) *WebHandler {
	return &WebHandler{api: api, httpxPath: httpxPath, gowitnessPath: gowitnessPath, screenshotDir: screenshotDir, log: log}
}

func (h *WebHandler) Module() models.Module { return models.ModuleWeb }

func (h *WebHandler) Execute(ctx context.Context, req models.StageRequest) (any, error) {
	ports := h.candidatePorts(ctx, req.ScanID)

	targets := make([]string, 0, len(ports))
	for _, p := range ports {
		targets = append(targets, fmt.Sprintf("%s:%d", req.TargetHost, p))
	}

	probed, err := tools.RunHttpx(ctx, targets, 10, h.httpxPath)
	if err != nil {
		return nil, fmt.Errorf("web stage: %w", err)
	}

	results := make([]WebResult, 0, len(probed))
	urls := make([]string, 0, len(probed))
	for _, p := range probed {
		results = append(results, WebResult{
			URL:          p.URL,
			StatusCode:   p.StatusCode,
			Title:        p.Title,
			WebServer:    p.WebServer,
			Technologies: p.Technologies,
		})
		urls = append(urls, p.URL)
	}

	if len(urls) > 0 {
		if err := tools.RunGowitness(ctx, urls, h.screenshotDir, 4, h.gowitnessPath); err != nil {
			h.log.WithError(err).WithField("scan_id", req.ScanID).Warn("gowitness screenshot capture failed")
		} else {
			for i := range results {
				results[i].ScreenshotDir = h.screenshotDir
			}
		}
	}

	return results, nil
}

// candidatePorts prefers the nmap-derived open TCP ports in ScanDetail,
// falling back to commonWebPorts when the ScanDetail cannot be fetched or
// lists no open TCP ports.
func (h *WebHandler) candidatePorts(ctx context.Context, scanID string) []int {
	detail, err := h.api.GetScanDetail(ctx, scanID)
	if err != nil || detail.OpenPorts == nil {
		return commonWebPorts
	}
	var ports []int
	for _, p := range detail.OpenPorts.TCP {
		ports = append(ports, p.Port)
	}
	if len(ports) == 0 {
		return commonWebPorts
	}
	return ports
}
