package tools

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vapter/vaptord/internal/models"
)

func TestMapSeverity(t *testing.T) {
	cases := map[string]models.Severity{
		"critical": models.SeverityCritical,
		"high":     models.SeverityHigh,
		"medium":   models.SeverityMedium,
		"low":      models.SeverityLow,
		"info":     models.SeverityLog,
		"unknown":  models.SeverityLog,
		"":         models.SeverityLog,
	}
	for in, want := range cases {
		require.Equal(t, want, mapSeverity(in), "severity %q", in)
	}
}

func TestExtractPort(t *testing.T) {
	require.Equal(t, 8443, extractPort("https://example.com:8443/admin"))
	require.Equal(t, 0, extractPort("https://example.com/admin"))
	require.Equal(t, 0, extractPort(""))
	require.Equal(t, 0, extractPort("://not-a-url"))
}

func TestNucleiResultToFinding(t *testing.T) {
	nr := NucleiResult{
		TemplateID: "CVE-2022-9999",
		Host:       "example.com",
		MatchedAt:  "https://example.com:8443/login",
		Info: NucleiResultInfo{
			Name:        "Example vuln",
			Severity:    "high",
			Description: "something bad",
		},
	}

	finding := NucleiResultToFinding(nr)
	require.Equal(t, models.VulnLookupFinding{
		TemplateID:  "CVE-2022-9999",
		Name:        "Example vuln",
		Severity:    models.SeverityHigh,
		Host:        "example.com",
		Port:        8443,
		URL:         "https://example.com:8443/login",
		Description: "something bad",
		MatchedAt:   "https://example.com:8443/login",
	}, finding)
}

func TestRunNucleiNoTargetsReturnsEmpty(t *testing.T) {
	results, err := RunNuclei(nil, nil, "", 0, 0, "")
	require.NoError(t, err)
	require.Empty(t, results)
}
