package stage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vapter/vaptord/internal/models"
	"github.com/vapter/vaptord/internal/tools"
)

// VulnLookupHandler adapts internal/tools/nuclei.go's severity-filtered
// template matching into the vuln-lookup stage: one nuclei run against the
// target host, converted to models.VulnLookupFinding.
type VulnLookupHandler struct {
	binaryPath string
	severity   string
	threads    int
	rateLimit  int
	log        *logrus.Entry
}

// NewVulnLookupHandler builds a VulnLookupHandler. severity is nuclei's
// comma-separated severity filter (empty defaults to
// "critical,high,medium", see tools.RunNuclei).
func NewVulnLookupHandler(binaryPath, severity string, threads, rateLimit int, log *logrus.Entry) *VulnLookupHandler {
	return &VulnLookupHandler{binaryPath: binaryPath, severity: severity, threads: threads, rateLimit: rateLimit, log: log}
}

func (h *VulnLookupHandler) Module() models.Module { return models.ModuleVulnLookup }

func (h *VulnLookupHandler) Execute(ctx context.Context, req models.StageRequest) (any, error) {
	results, err := tools.RunNuclei(ctx, []string{req.TargetHost}, h.severity, h.threads, h.rateLimit, h.binaryPath)
	if err != nil {
		return nil, fmt.Errorf("vuln-lookup stage: %w", err)
	}

	findings := make([]models.VulnLookupFinding, 0, len(results))
	for _, r := range results {
		findings = append(findings, tools.NucleiResultToFinding(r))
	}

	return findings, nil
}
