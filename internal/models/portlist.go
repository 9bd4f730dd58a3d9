package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PortRange is a single entry in a PortList's tcp_ports/udp_ports column:
// either a single port (Start == End) or a dashed range (Start <= End).
type PortRange struct {
	Start int
	End   int
}

// PortList names a reusable tcp/udp port selection referenced by a ScanType.
type PortList struct {
	ID          string     `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	TCPPorts    string     `json:"tcp_ports,omitempty" db:"tcp_ports"`
	UDPPorts    string     `json:"udp_ports,omitempty" db:"udp_ports"`
	Description string     `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// NewPortList creates a PortList with a freshly minted ID.
func NewPortList(name, tcpPorts, udpPorts, description string) *PortList {
	return &PortList{ID: uuid.New().String(), Name: name, TCPPorts: tcpPorts, UDPPorts: udpPorts, Description: description}
}

// Validate enforces the PortList invariants from §3: at least one of
// tcp_ports/udp_ports must be non-empty, and each must parse cleanly via
// ParsePortSpec.
func (p *PortList) Validate() error {
	if strings.TrimSpace(p.TCPPorts) == "" && strings.TrimSpace(p.UDPPorts) == "" {
		return fmt.Errorf("port_list: at least one of tcp_ports or udp_ports must be specified")
	}
	if p.TCPPorts != "" {
		if _, err := ParsePortSpec(p.TCPPorts); err != nil {
			return fmt.Errorf("port_list: tcp_ports: %w", err)
		}
	}
	if p.UDPPorts != "" {
		if _, err := ParsePortSpec(p.UDPPorts); err != nil {
			return fmt.Errorf("port_list: udp_ports: %w", err)
		}
	}
	return nil
}

// ParsePortSpec parses a comma-separated list of port numbers (1-65535) or
// dashed ranges (start <= end) into a slice of PortRange, preserving order.
func ParsePortSpec(spec string) ([]PortRange, error) {
	var ranges []PortRange
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty port entry in %q", spec)
		}
		if strings.Contains(part, "-") {
			bounds := strings.SplitN(part, "-", 2)
			if len(bounds) != 2 {
				return nil, fmt.Errorf("invalid port range %q", part)
			}
			start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
			if err != nil {
				return nil, fmt.Errorf("invalid port range start %q", part)
			}
			end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if err != nil {
				return nil, fmt.Errorf("invalid port range end %q", part)
			}
			if !validPort(start) || !validPort(end) {
				return nil, fmt.Errorf("port range %q out of bounds 1-65535", part)
			}
			if start > end {
				return nil, fmt.Errorf("port range %q has start > end", part)
			}
			ranges = append(ranges, PortRange{Start: start, End: end})
			continue
		}
		port, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q", part)
		}
		if !validPort(port) {
			return nil, fmt.Errorf("port %q out of bounds 1-65535", part)
		}
		ranges = append(ranges, PortRange{Start: port, End: port})
	}
	return ranges, nil
}

func validPort(p int) bool {
	return p >= 1 && p <= 65535
}

// ExpandPorts flattens a parsed port spec into individual port numbers,
// in ascending range order, for callers (the nmap stage) that need a
// concrete port list rather than a range representation.
func ExpandPorts(ranges []PortRange) []int {
	var ports []int
	for _, r := range ranges {
		for p := r.Start; p <= r.End; p++ {
			ports = append(ports, p)
		}
	}
	return ports
}
