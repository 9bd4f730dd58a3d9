package models

import (
	"fmt"
	"net"
	"strings"
)

// ValidateAddress checks that addr is either a parseable IPv4/IPv6 address
// or a syntactically valid FQDN, per the Target.address invariant in §3.
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address must not be empty")
	}
	if net.ParseIP(addr) != nil {
		return nil
	}
	if err := validateFQDN(addr); err != nil {
		return fmt.Errorf("address %q is not a valid IP or FQDN: %w", addr, err)
	}
	return nil
}

// validateFQDN enforces: labels <= 63 chars, total <= 253, no leading or
// trailing hyphen on any label, no empty labels.
func validateFQDN(addr string) error {
	if len(addr) > 253 {
		return fmt.Errorf("exceeds 253 characters")
	}
	labels := strings.Split(addr, ".")
	for _, label := range labels {
		if label == "" {
			return fmt.Errorf("contains an empty label")
		}
		if len(label) > 63 {
			return fmt.Errorf("label %q exceeds 63 characters", label)
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return fmt.Errorf("label %q has a leading or trailing hyphen", label)
		}
		for _, r := range label {
			if !isLabelRune(r) {
				return fmt.Errorf("label %q contains invalid character %q", label, r)
			}
		}
	}
	return nil
}

func isLabelRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-':
		return true
	default:
		return false
	}
}
