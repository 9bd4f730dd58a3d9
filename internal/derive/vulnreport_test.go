package derive

import "testing"

const sampleReportXML = `<?xml version="1.0"?>
<report>
  <result_count>
    <full>4</full>
    <hole>2</hole>
    <warning>1</warning>
    <info>1</info>
    <log>0</log>
  </result_count>
  <results>
    <result><severity>9.8</severity></result>
    <result><severity>7.2</severity></result>
    <result><severity>5.5</severity></result>
  </results>
</report>`

func TestVulnReportSplitsHoleByCVSSThreshold(t *testing.T) {
	count, err := VulnReport([]byte(sampleReportXML))
	if err != nil {
		t.Fatalf("VulnReport: %v", err)
	}
	if count.Critical != 1 {
		t.Errorf("Critical = %d, want 1 (cvss 9.8)", count.Critical)
	}
	if count.High != 1 {
		t.Errorf("High = %d, want 1 (cvss 7.2)", count.High)
	}
	if count.Medium != 1 {
		t.Errorf("Medium = %d, want 1 (warning)", count.Medium)
	}
	if count.Low != 1 {
		t.Errorf("Low = %d, want 1 (info)", count.Low)
	}
	if count.Total != 4 {
		t.Errorf("Total = %d, want 4", count.Total)
	}
}

func TestVulnReportWithoutSeveritiesCountsHoleAsHigh(t *testing.T) {
	const xmlData = `<report><result_count><full>2</full><hole>2</hole><warning>0</warning><info>0</info><log>0</log></result_count></report>`
	count, err := VulnReport([]byte(xmlData))
	if err != nil {
		t.Fatalf("VulnReport: %v", err)
	}
	if count.Critical != 0 {
		t.Errorf("Critical = %d, want 0", count.Critical)
	}
	if count.High != 2 {
		t.Errorf("High = %d, want 2", count.High)
	}
}

func TestVulnReportSumsTotalWhenFullAbsent(t *testing.T) {
	const xmlData = `<report><result_count><full>0</full><hole>1</hole><warning>2</warning><info>3</info><log>1</log></result_count>
	<results><result><severity>9.1</severity></result></results></report>`
	count, err := VulnReport([]byte(xmlData))
	if err != nil {
		t.Fatalf("VulnReport: %v", err)
	}
	want := count.Critical + count.High + count.Medium + count.Low + count.Log
	if count.Total != want {
		t.Errorf("Total = %d, want %d (sum of severities)", count.Total, want)
	}
	if count.Total == 0 {
		t.Errorf("Total = 0, want non-zero sum")
	}
}
