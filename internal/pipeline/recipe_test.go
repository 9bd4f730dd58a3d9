package pipeline

import (
	"reflect"
	"testing"

	"github.com/vapter/vaptord/internal/models"
)

func TestRemainingPluginsAfterNmapReturnsAllEnabledInCanonicalOrder(t *testing.T) {
	st := models.NewScanType("full")
	st.PluginVulnLookup = true
	st.PluginFingerprint = true
	st.PluginWeb = true

	got := remainingPlugins(st, models.ParsedResults{}, models.ModuleNmap)
	want := []models.Module{models.ModuleFingerprint, models.ModuleWeb, models.ModuleVulnLookup}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("remainingPlugins = %v, want %v", got, want)
	}
}

func TestRemainingPluginsSkipsAlreadyPopulatedStages(t *testing.T) {
	st := models.NewScanType("full")
	st.PluginFingerprint = true
	st.PluginVulnEngine = true

	parsed := models.ParsedResults{models.ModuleFingerprint: map[string]any{"ok": true}}
	got := remainingPlugins(st, parsed, models.ModuleNmap)
	want := []models.Module{models.ModuleVulnEngine}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("remainingPlugins = %v, want %v", got, want)
	}
}

func TestRemainingPluginsAfterFingerprintExcludesEarlierStages(t *testing.T) {
	st := models.NewScanType("full")
	st.PluginFingerprint = true
	st.PluginVulnEngine = true
	st.PluginWeb = true

	got := remainingPlugins(st, models.ParsedResults{}, models.ModuleFingerprint)
	want := []models.Module{models.ModuleVulnEngine, models.ModuleWeb}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("remainingPlugins = %v, want %v", got, want)
	}
}

func TestRemainingPluginsDiscoveryOnlyIsEmpty(t *testing.T) {
	st := models.NewScanType("discovery-only")
	st.OnlyDiscovery = true

	got := remainingPlugins(st, models.ParsedResults{}, models.ModuleNmap)
	if len(got) != 0 {
		t.Errorf("remainingPlugins = %v, want empty", got)
	}
}
