package stage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vapter/vaptord/internal/models"
)

func TestDecodeVulnLookupFindings(t *testing.T) {
	raw := []any{
		map[string]any{
			"template_id": "CVE-2021-1234",
			"name":        "Example finding",
			"severity":    "high",
			"host":        "example.com",
			"url":         "https://example.com/",
			"description": "something bad",
			"matched_at":  "https://example.com/admin",
			"port":        float64(443),
		},
		"not-a-map",
	}

	findings, ok := decodeVulnLookupFindings(raw)
	require.True(t, ok)
	require.Len(t, findings, 1)
	require.Equal(t, models.VulnLookupFinding{
		TemplateID:  "CVE-2021-1234",
		Name:        "Example finding",
		Severity:    models.SeverityHigh,
		Host:        "example.com",
		URL:         "https://example.com/",
		Description: "something bad",
		MatchedAt:   "https://example.com/admin",
		Port:        443,
	}, findings[0])
}

func TestDecodeVulnLookupFindingsWrongShape(t *testing.T) {
	_, ok := decodeVulnLookupFindings(map[string]any{"not": "a list"})
	require.False(t, ok)
}

func TestStringFieldMissingOrWrongType(t *testing.T) {
	m := map[string]any{"name": "ok", "port": float64(80)}
	require.Equal(t, "ok", stringField(m, "name"))
	require.Equal(t, "", stringField(m, "missing"))
	require.Equal(t, "", stringField(m, "port"))
}
