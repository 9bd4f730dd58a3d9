package stage

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vapter/vaptord/internal/models"
)

func TestPortSpecFallsBackWithoutScanType(t *testing.T) {
	h := NewNmapHandler(nil, "/nonexistent/nmap", logrus.NewEntry(logrus.New()))
	spec, err := h.portSpec(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, defaultPortSpec, spec)
}

func TestDefaultPortSpecParses(t *testing.T) {
	ranges, err := models.ParsePortSpec(defaultPortSpec)
	require.NoError(t, err)
	ports := models.ExpandPorts(ranges)
	require.NotEmpty(t, ports)
	require.Contains(t, ports, 80)
	require.Contains(t, ports, 8443)
}
