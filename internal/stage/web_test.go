package stage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommonWebPortsCoversConventionalPorts(t *testing.T) {
	require.Contains(t, commonWebPorts, 80)
	require.Contains(t, commonWebPorts, 443)
	require.Contains(t, commonWebPorts, 8080)
}
