package stage

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vapter/vaptord/internal/models"
)

func TestIsTLSPort(t *testing.T) {
	for _, p := range []int{443, 8443, 993, 995, 465, 636} {
		require.True(t, isTLSPort(p), "port %d", p)
	}
	for _, p := range []int{80, 22, 8080, 3306} {
		require.False(t, isTLSPort(p), "port %d", p)
	}
}

func TestProbePortUDPSkipsToolInvocation(t *testing.T) {
	h := NewFingerprintHandler(nil, "/nonexistent/httpx", "/nonexistent/tlsx", 0, logrus.NewEntry(logrus.New()))
	req := models.StageRequest{ScanID: "scan-1", TargetID: "target-1", TargetHost: "192.0.2.10"}
	port := models.OpenPort{Port: 53, Service: "domain", Product: "dnsmasq", Version: "2.85"}

	d := h.probePort(context.Background(), req, port, models.ProtocolUDP)

	require.Equal(t, "nmap", d.FingerprintMethod)
	require.Equal(t, 50, d.ConfidenceScore)
	require.Equal(t, "domain", d.ServiceName)
	require.Equal(t, "dnsmasq", d.ServiceProduct)
	require.Equal(t, "2.85", d.ServiceVersion)
}

func TestNewFingerprintHandlerDefaultsConcurrency(t *testing.T) {
	h := NewFingerprintHandler(nil, "httpx", "tlsx", 0, logrus.NewEntry(logrus.New()))
	require.Equal(t, 10, h.concurrency)

	h2 := NewFingerprintHandler(nil, "httpx", "tlsx", 3, logrus.NewEntry(logrus.New()))
	require.Equal(t, 3, h2.concurrency)
}
