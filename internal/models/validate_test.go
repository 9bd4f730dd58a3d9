package models

import "testing"

func TestValidateAddress(t *testing.T) {
	cases := []struct {
		addr    string
		wantErr bool
	}{
		{"192.0.2.10", false},
		{"2001:db8::1", false},
		{"example.com", false},
		{"foo.example.com", false},
		{"xn--example-9ya.com", false},
		{"", true},
		{"-bad.example.com", true},
		{"bad-.example.com", true},
		{"has..empty.label", true},
	}
	for _, c := range cases {
		err := ValidateAddress(c.addr)
		if c.wantErr && err == nil {
			t.Errorf("ValidateAddress(%q) = nil, want error", c.addr)
		}
		if !c.wantErr && err != nil {
			t.Errorf("ValidateAddress(%q) = %v, want nil", c.addr, err)
		}
	}
}

func TestValidateAddressLabelTooLong(t *testing.T) {
	longLabel := ""
	for i := 0; i < 64; i++ {
		longLabel += "a"
	}
	if err := ValidateAddress(longLabel + ".example.com"); err == nil {
		t.Error("expected error for label exceeding 63 characters")
	}
}

func TestValidateAddressTotalTooLong(t *testing.T) {
	label := "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyzabcdefghi" // 61 chars
	addr := label + "." + label + "." + label + "." + label + "." + label + ".com"
	if len(addr) <= 253 {
		t.Fatalf("test setup error: addr is only %d chars", len(addr))
	}
	if err := ValidateAddress(addr); err == nil {
		t.Error("expected error for address exceeding 253 characters")
	}
}
