package models

import "testing"

func TestParsePortSpec(t *testing.T) {
	ranges, err := ParsePortSpec("22,80,443,8000-8010")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []PortRange{{22, 22}, {80, 80}, {443, 443}, {8000, 8010}}
	if len(ranges) != len(want) {
		t.Fatalf("got %d ranges, want %d", len(ranges), len(want))
	}
	for i, r := range ranges {
		if r != want[i] {
			t.Errorf("range %d = %+v, want %+v", i, r, want[i])
		}
	}
}

func TestParsePortSpecInvalid(t *testing.T) {
	cases := []string{"0", "65536", "100-50", "abc", "", "1,,2"}
	for _, c := range cases {
		if _, err := ParsePortSpec(c); err == nil {
			t.Errorf("ParsePortSpec(%q) = nil, want error", c)
		}
	}
}

func TestPortListValidate(t *testing.T) {
	p := NewPortList("web", "", "", "no ports at all")
	if err := p.Validate(); err == nil {
		t.Error("expected error when neither tcp_ports nor udp_ports set")
	}
	p2 := NewPortList("web", "80,443", "", "")
	if err := p2.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
