package pipeline

import "testing"

func TestScopeConfigValidateTargetWildcard(t *testing.T) {
	s := &ScopeConfig{AllowedDomains: []string{"*.example.com"}}
	if err := s.ValidateTarget("host.example.com"); err != nil {
		t.Errorf("expected host.example.com to be in scope: %v", err)
	}
	if err := s.ValidateTarget("example.com"); err == nil {
		t.Error("expected bare example.com to be out of scope for a wildcard-only rule")
	}
	if err := s.ValidateTarget("evil.com"); err == nil {
		t.Error("expected evil.com to be out of scope")
	}
}

func TestScopeConfigEmptyAllowsEverything(t *testing.T) {
	s := &ScopeConfig{}
	if err := s.ValidateTarget("anything.example"); err != nil {
		t.Errorf("empty scope should allow any target, got %v", err)
	}
	if err := s.ValidateIP("10.0.0.1"); err != nil {
		t.Errorf("empty scope should allow any IP, got %v", err)
	}
}

func TestScopeConfigValidateIPRejectsOutOfRange(t *testing.T) {
	s := &ScopeConfig{AllowedCIDRs: []string{"192.0.2.0/24"}}
	if err := s.ValidateIP("192.0.2.10"); err != nil {
		t.Errorf("expected 192.0.2.10 in range: %v", err)
	}
	if err := s.ValidateIP("10.0.0.1"); err == nil {
		t.Error("expected 10.0.0.1 to be out of range")
	}
}
