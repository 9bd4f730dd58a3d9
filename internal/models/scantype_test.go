package models

import (
	"reflect"
	"testing"
)

func TestScanTypeValidateOnlyDiscovery(t *testing.T) {
	st := NewScanType("discovery-only")
	st.OnlyDiscovery = true
	st.PluginFingerprint = true
	if err := st.Validate(); err == nil {
		t.Error("expected error: only_discovery with plugins selected")
	}
}

func TestScanTypeEnabledPluginsCanonicalOrder(t *testing.T) {
	st := NewScanType("full")
	st.PluginVulnLookup = true
	st.PluginFingerprint = true
	st.PluginWeb = true
	st.PluginVulnEngine = true

	got := st.EnabledPlugins()
	want := []Module{ModuleFingerprint, ModuleVulnEngine, ModuleWeb, ModuleVulnLookup}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EnabledPlugins() = %v, want %v", got, want)
	}
}

func TestScanTypeEnabledPluginsSubset(t *testing.T) {
	st := NewScanType("partial")
	st.PluginWeb = true
	got := st.EnabledPlugins()
	want := []Module{ModuleWeb}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EnabledPlugins() = %v, want %v", got, want)
	}
}
