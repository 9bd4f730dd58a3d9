// Package stage holds the six worker.StageHandler implementations — one
// per cmd/*-worker binary — each adapting a teacher tool wrapper
// (internal/tools) or an external-engine client to the generic
// worker.Runtime loop.
package stage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vapter/vaptord/internal/apiclient"
	"github.com/vapter/vaptord/internal/models"
	"github.com/vapter/vaptord/internal/tools"
)

// defaultPortSpec is used when a scan type names no port list — a short
// fixed list of common service ports (not nmap's top-1000 selection)
// covering the services the rest of the pipeline cares about probing further.
const defaultPortSpec = "21-23,25,53,80,110,135,139,143,443,445,993,995,3306,3389,5432,5900,8080,8443"

// NmapHandler runs the port-discovery stage: fetch the scan's port
// selection, run nmap -sV against it, and hand the raw XML document
// upstream unparsed — the orchestrator derives ScanDetail from it on
// receipt (internal/derive.PortScan).
type NmapHandler struct {
	api        *apiclient.Client
	binaryPath string
	log        *logrus.Entry
}

// NewNmapHandler builds an NmapHandler.
func NewNmapHandler(api *apiclient.Client, binaryPath string, log *logrus.Entry) *NmapHandler {
	return &NmapHandler{api: api, binaryPath: binaryPath, log: log}
}

func (h *NmapHandler) Module() models.Module { return models.ModuleNmap }

func (h *NmapHandler) Execute(ctx context.Context, req models.StageRequest) (any, error) {
	spec, err := h.portSpec(ctx, req.ScanTypeID)
	if err != nil {
		return nil, err
	}

	ranges, err := models.ParsePortSpec(spec)
	if err != nil {
		return nil, fmt.Errorf("nmap stage: %w", err)
	}
	ports := models.ExpandPorts(ranges)

	h.log.WithField("scan_id", req.ScanID).WithField("port_count", len(ports)).Info("starting nmap scan")
	xmlDoc, err := tools.RunNmapRaw(ctx, req.TargetHost, ports, h.binaryPath)
	if err != nil {
		return nil, fmt.Errorf("nmap stage: %w", err)
	}
	return string(xmlDoc), nil
}

// portSpec combines a scan type's tcp_ports and udp_ports into one comma
// list for models.ParsePortSpec, falling back to defaultPortSpec when the
// scan type names no port list at all.
func (h *NmapHandler) portSpec(ctx context.Context, scanTypeID string) (string, error) {
	if scanTypeID == "" {
		return defaultPortSpec, nil
	}
	st, err := h.api.GetScanType(ctx, scanTypeID)
	if err != nil {
		return "", fmt.Errorf("nmap stage: fetching scan type: %w", err)
	}
	if st.PortListID == nil || *st.PortListID == "" {
		return defaultPortSpec, nil
	}
	pl, err := h.api.GetPortList(ctx, *st.PortListID)
	if err != nil {
		return "", fmt.Errorf("nmap stage: fetching port list: %w", err)
	}
	switch {
	case pl.TCPPorts != "" && pl.UDPPorts != "":
		return pl.TCPPorts + "," + pl.UDPPorts, nil
	case pl.TCPPorts != "":
		return pl.TCPPorts, nil
	case pl.UDPPorts != "":
		return pl.UDPPorts, nil
	default:
		return defaultPortSpec, nil
	}
}
