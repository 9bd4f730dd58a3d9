package stage

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vapter/vaptord/internal/apiclient"
	"github.com/vapter/vaptord/internal/models"
	"github.com/vapter/vaptord/internal/tools"
)

// FingerprintHandler probes each open port nmap found, fanning out through
// a bounded worker pool (default 10, per MAX_CONCURRENT_FINGERPRINT) built
// on httpx for HTTP(S) services and tlsx for certificate inspection on TLS
// ports — internal/tools/httpx.go and tlsx.go's per-target patterns,
// generalized from "one shot over a subdomain list" to "one shot per open
// port of a single host."
type FingerprintHandler struct {
	api         *apiclient.Client
	httpxPath   string
	tlsxPath    string
	concurrency int
	log         *logrus.Entry
}

// NewFingerprintHandler builds a FingerprintHandler. concurrency <= 0
// falls back to 10.
func NewFingerprintHandler(api *apiclient.Client, httpxPath, tlsxPath string, concurrency int, log *logrus.Entry) *FingerprintHandler {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &FingerprintHandler{api: api, httpxPath: httpxPath, tlsxPath: tlsxPath, concurrency: concurrency, log: log}
}

func (h *FingerprintHandler) Module() models.Module { return models.ModuleFingerprint }

func (h *FingerprintHandler) Execute(ctx context.Context, req models.StageRequest) (any, error) {
	detail, err := h.api.GetScanDetail(ctx, req.ScanID)
	if err != nil {
		if err == apiclient.ErrNotFound {
			return []*models.FingerprintDetail{}, nil
		}
		return nil, fmt.Errorf("fingerprint stage: fetching scan detail: %w", err)
	}
	if detail.OpenPorts == nil {
		return []*models.FingerprintDetail{}, nil
	}

	var mu sync.Mutex
	var results []*models.FingerprintDetail

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.concurrency)

	probe := func(port models.OpenPort, protocol models.Protocol) {
		g.Go(func() error {
			d := h.probePort(gctx, req, port, protocol)
			mu.Lock()
			results = append(results, d)
			mu.Unlock()
			return nil
		})
	}

	for _, p := range detail.OpenPorts.TCP {
		probe(p, models.ProtocolTCP)
	}
	for _, p := range detail.OpenPorts.UDP {
		probe(p, models.ProtocolUDP)
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fingerprint stage: %w", err)
	}

	if len(results) > 0 {
		if err := h.api.BulkCreateFingerprintDetails(ctx, results); err != nil {
			return nil, fmt.Errorf("fingerprint stage: uploading results: %w", err)
		}
	}
	return results, nil
}

// probePort builds one FingerprintDetail for a single open port, running
// httpx against it (and tlsx too, for the conventional TLS ports) and
// falling back to the nmap-reported service/version when neither probe
// returns anything — never errors, since one dead port shouldn't fail the
// whole stage.
func (h *FingerprintHandler) probePort(ctx context.Context, req models.StageRequest, port models.OpenPort, protocol models.Protocol) *models.FingerprintDetail {
	d := models.NewFingerprintDetail(req.ScanID, req.TargetID, port.Port, protocol)
	d.ServiceName = port.Service
	d.ServiceProduct = port.Product
	d.ServiceVersion = port.Version
	d.FingerprintMethod = "nmap"
	d.ConfidenceScore = 50

	if protocol != models.ProtocolTCP {
		return d
	}

	target := net.JoinHostPort(req.TargetHost, fmt.Sprintf("%d", port.Port))
	if results, err := tools.RunHttpx(ctx, []string{target}, 1, h.httpxPath); err == nil && len(results) > 0 {
		r := results[0]
		d.FingerprintMethod = "httpx"
		d.ConfidenceScore = 80
		if r.WebServer != "" {
			d.ServiceProduct = r.WebServer
		}
		if len(r.Technologies) > 0 {
			d.ServiceInfo = fmt.Sprintf("title=%q status=%d tech=%v", r.Title, r.StatusCode, r.Technologies)
		} else {
			d.ServiceInfo = fmt.Sprintf("title=%q status=%d", r.Title, r.StatusCode)
		}
	}

	if isTLSPort(port.Port) {
		if sans, err := tools.RunTlsx(ctx, req.TargetHost, h.tlsxPath); err == nil && len(sans) > 0 {
			d.RawResponse = fmt.Sprintf("%v", sans)
		}
	}

	return d
}

func isTLSPort(port int) bool {
	switch port {
	case 443, 8443, 993, 995, 465, 636:
		return true
	default:
		return false
	}
}
