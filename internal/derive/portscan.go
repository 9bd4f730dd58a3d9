// Package derive turns a stage worker's raw parsed results into the
// ScanDetail projection the API exposes, generalizing the teacher's
// nmap-XML-to-NmapResult flattening (internal/tools/nmap.go) into a
// protocol-grouped, OS-guess-aware derivation.
package derive

import (
	"encoding/xml"
	"fmt"
	"sort"

	"github.com/vapter/vaptord/internal/models"
)

// nmapRun mirrors tools.nmapRun but adds the <os> block the teacher's
// flattening never needed.
type nmapRun struct {
	XMLName xml.Name   `xml:"nmaprun"`
	Hosts   []nmapHost `xml:"host"`
}

type nmapHost struct {
	Addresses []nmapAddress `xml:"address"`
	Ports     nmapPorts     `xml:"ports"`
	OS        nmapOS        `xml:"os"`
}

type nmapAddress struct {
	Addr     string `xml:"addr,attr"`
	AddrType string `xml:"addrtype,attr"`
}

type nmapPorts struct {
	Ports []nmapPort `xml:"port"`
}

type nmapPort struct {
	Protocol string      `xml:"protocol,attr"`
	PortID   int         `xml:"portid,attr"`
	State    nmapState   `xml:"state"`
	Service  nmapService `xml:"service"`
}

type nmapState struct {
	State string `xml:"state,attr"`
}

type nmapService struct {
	Name      string `xml:"name,attr"`
	Product   string `xml:"product,attr"`
	Version   string `xml:"version,attr"`
	ExtraInfo string `xml:"extrainfo,attr"`
}

type nmapOS struct {
	Matches []nmapOSMatch `xml:"osmatch"`
}

type nmapOSMatch struct {
	Name     string       `xml:"name,attr"`
	Accuracy int          `xml:"accuracy,attr"`
	Classes  []nmapOSClass `xml:"osclass"`
}

type nmapOSClass struct {
	Vendor   string `xml:"vendor,attr"`
	Type     string `xml:"type,attr"`
	OSFamily string `xml:"osfamily,attr"`
	OSGen    string `xml:"osgen,attr"`
}

// PortScan parses an nmap `-oX` document into the open-ports/OS-guess
// shape ScanDetail persists, grouping by protocol and keeping only open
// ports, sorted ascending — the projection the teacher's flat
// []NmapResult slice never needed to produce.
func PortScan(xmlData []byte) (*models.OpenPorts, *models.OSGuess, error) {
	var run nmapRun
	if err := xml.Unmarshal(xmlData, &run); err != nil {
		return nil, nil, fmt.Errorf("derive: parsing nmap XML: %w", err)
	}

	open := &models.OpenPorts{}
	var osGuess *models.OSGuess

	for i, host := range run.Hosts {
		for _, port := range host.Ports.Ports {
			if port.State.State != "open" {
				continue
			}
			entry := models.OpenPort{
				Port:      port.PortID,
				State:     port.State.State,
				Service:   port.Service.Name,
				Product:   port.Service.Product,
				Version:   port.Service.Version,
				ExtraInfo: port.Service.ExtraInfo,
			}
			switch port.Protocol {
			case "udp":
				open.UDP = append(open.UDP, entry)
			default:
				open.TCP = append(open.TCP, entry)
			}
		}

		// Only the first host's OS guess is kept — this derivation targets
		// a single fixed address per scan, not a subnet sweep.
		if i == 0 && len(host.OS.Matches) > 0 {
			best := host.OS.Matches[0]
			osGuess = &models.OSGuess{
				Name:     best.Name,
				Accuracy: best.Accuracy,
			}
			if len(best.Classes) > 0 {
				c := best.Classes[0]
				osGuess.Vendor = c.Vendor
				osGuess.Type = c.Type
				osGuess.OSFamily = c.OSFamily
				osGuess.OSGen = c.OSGen
			}
		}
	}

	sort.Slice(open.TCP, func(i, j int) bool { return open.TCP[i].Port < open.TCP[j].Port })
	sort.Slice(open.UDP, func(i, j int) bool { return open.UDP[i].Port < open.UDP[j].Port })

	return open, osGuess, nil
}
