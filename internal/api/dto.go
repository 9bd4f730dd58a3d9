package api

// Request DTOs validated with go-playground/validator/v10 struct tags,
// grounded on the same library's declared use across the wider example
// pack (e.g. jordigilh-kubernaut).

type createCustomerRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	Contact string `json:"contact_person"`
	Notes   string `json:"notes"`
}

type updateCustomerRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Phone   *string `json:"phone"`
	Contact *string `json:"contact_person"`
	Notes   *string `json:"notes"`
}

type createTargetRequest struct {
	CustomerID  string `json:"customer_id" validate:"required"`
	DisplayName string `json:"display_name" validate:"required"`
	Address     string `json:"address" validate:"required"`
}

type updateTargetRequest struct {
	DisplayName *string `json:"display_name"`
	Address     *string `json:"address"`
}

type createPortListRequest struct {
	Name        string `json:"name" validate:"required"`
	TCPPorts    string `json:"tcp_ports"`
	UDPPorts    string `json:"udp_ports"`
	Description string `json:"description"`
}

type updatePortListRequest struct {
	Name        *string `json:"name"`
	TCPPorts    *string `json:"tcp_ports"`
	UDPPorts    *string `json:"udp_ports"`
	Description *string `json:"description"`
}

type createScanTypeRequest struct {
	Name              string  `json:"name" validate:"required"`
	OnlyDiscovery     bool    `json:"only_discovery"`
	ConsiderAlive     bool    `json:"consider_alive"`
	BeQuiet           bool    `json:"be_quiet"`
	PortListID        *string `json:"port_list_id"`
	PluginFingerprint bool    `json:"plugin_fingerprint"`
	PluginVulnEngine  bool    `json:"plugin_vuln_engine"`
	PluginWeb         bool    `json:"plugin_web"`
	PluginVulnLookup  bool    `json:"plugin_vuln_lookup"`
	Description       string  `json:"description"`
}

type updateScanTypeRequest struct {
	Name              *string `json:"name"`
	OnlyDiscovery     *bool   `json:"only_discovery"`
	ConsiderAlive     *bool   `json:"consider_alive"`
	BeQuiet           *bool   `json:"be_quiet"`
	PortListID        *string `json:"port_list_id"`
	PluginFingerprint *bool   `json:"plugin_fingerprint"`
	PluginVulnEngine  *bool   `json:"plugin_vuln_engine"`
	PluginWeb         *bool   `json:"plugin_web"`
	PluginVulnLookup  *bool   `json:"plugin_vuln_lookup"`
	Description       *string `json:"description"`
}

type createScanRequest struct {
	ScanTypeID string `json:"scan_type_id" validate:"required"`
}

type vulnEngineProgressRequest struct {
	Progress       int    `json:"progress" validate:"min=0,max=100"`
	ExternalStatus string `json:"external_status"`
}

type completeReportRequest struct {
	ReportPath string `json:"report_path"`
	Error      string `json:"error"`
}

type vulnEngineResultRequest struct {
	ExternalTaskID     string `json:"external_task_id"`
	ExternalReportID   string `json:"external_report_id"`
	ExternalTargetID   string `json:"external_target_id"`
	ReportFormat       string `json:"report_format" validate:"omitempty,oneof=XML JSON"`
	FullReport         string `json:"full_report"`
	StartedAt          *string `json:"started_at"`
	CompletedAt        *string `json:"completed_at"`
}
