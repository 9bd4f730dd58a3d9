package derive

import "testing"

const samplePortScanXML = `<?xml version="1.0"?>
<nmaprun>
  <host>
    <address addr="192.0.2.10" addrtype="ipv4"/>
    <ports>
      <port protocol="tcp" portid="22">
        <state state="open"/>
        <service name="ssh" product="OpenSSH" version="8.9"/>
      </port>
      <port protocol="tcp" portid="80">
        <state state="closed"/>
        <service name="http"/>
      </port>
      <port protocol="udp" portid="53">
        <state state="open"/>
        <service name="domain"/>
      </port>
    </ports>
    <os>
      <osmatch name="Linux 5.X" accuracy="95">
        <osclass vendor="Linux" type="general purpose" osfamily="Linux" osgen="5.X"/>
      </osmatch>
    </os>
  </host>
</nmaprun>`

func TestPortScanGroupsByProtocolAndFiltersClosed(t *testing.T) {
	open, osGuess, err := PortScan([]byte(samplePortScanXML))
	if err != nil {
		t.Fatalf("PortScan: %v", err)
	}
	if len(open.TCP) != 1 || open.TCP[0].Port != 22 {
		t.Errorf("TCP = %+v, want only port 22", open.TCP)
	}
	if len(open.UDP) != 1 || open.UDP[0].Port != 53 {
		t.Errorf("UDP = %+v, want only port 53", open.UDP)
	}
	if osGuess == nil || osGuess.Name != "Linux 5.X" || osGuess.Accuracy != 95 {
		t.Errorf("osGuess = %+v, want Linux 5.X/95", osGuess)
	}
	if osGuess.OSFamily != "Linux" {
		t.Errorf("osGuess.OSFamily = %q, want Linux", osGuess.OSFamily)
	}
}

func TestPortScanNoOpenPortsReturnsEmptySlices(t *testing.T) {
	const xmlData = `<nmaprun><host><ports>
		<port protocol="tcp" portid="443"><state state="filtered"/></port>
	</ports></host></nmaprun>`
	open, osGuess, err := PortScan([]byte(xmlData))
	if err != nil {
		t.Fatalf("PortScan: %v", err)
	}
	if len(open.TCP) != 0 || len(open.UDP) != 0 {
		t.Errorf("expected no open ports, got %+v", open)
	}
	if osGuess != nil {
		t.Errorf("expected nil osGuess, got %+v", osGuess)
	}
}
