package config

import "testing"

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestValidateRejectsMissingBrokerURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BrokerURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing broker_url")
	}
}

func TestValidateRejectsNonPositiveAPITimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APITimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-positive api_timeout")
	}
}
