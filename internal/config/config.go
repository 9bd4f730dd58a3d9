package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the process-wide configuration for every vaptord binary
// (orchestrator, status-consumer, and each stage worker). Every field
// except the Scope lists has a matching environment variable per §6 —
// Load binds those names explicitly so operators can override them
// without a file; the Scope lists are set only from the config file.
type Config struct {
	DBDSN      string        `mapstructure:"db_dsn"`
	BrokerURL  string        `mapstructure:"broker_url"`
	APIGatewayURL string     `mapstructure:"api_gateway_url"`
	HTTPAddr   string        `mapstructure:"http_addr"`
	APITimeout time.Duration `mapstructure:"api_timeout"`
	LogLevel   string        `mapstructure:"log_level"`

	Queues   QueueConfig   `mapstructure:"queues"`
	Stages   StagesConfig  `mapstructure:"stages"`
	Retries  RetryConfig   `mapstructure:"retries"`
	VulnEngine VulnEngineConfig `mapstructure:"vuln_engine"`
	Scope    ScopeSettings `mapstructure:"scope"`
	Notify   NotifySettings `mapstructure:"notify"`
	Tools    ToolsConfig   `mapstructure:"tools"`
}

// ToolsConfig names the external binaries each stage worker shells out to,
// plus the directories their artifacts land in. Empty binary paths fall
// back to looking the tool up on PATH (see internal/tools's binaryPath
// handling).
type ToolsConfig struct {
	NmapPath      string `mapstructure:"nmap_path"`
	HttpxPath     string `mapstructure:"httpx_path"`
	TlsxPath      string `mapstructure:"tlsx_path"`
	NucleiPath    string `mapstructure:"nuclei_path"`
	GowitnessPath string `mapstructure:"gowitness_path"`

	ReportsDir    string `mapstructure:"reports_dir"`
	ScreenshotDir string `mapstructure:"screenshot_dir"`
}

// ScopeSettings bounds which targets Dispatcher.Create will accept; empty
// lists mean unrestricted.
type ScopeSettings struct {
	AllowedDomains []string `mapstructure:"allowed_domains"`
	AllowedCIDRs   []string `mapstructure:"allowed_cidrs"`
}

// NotifySettings configures the scan-completion webhook.
type NotifySettings struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// QueueConfig names every durable queue the broker declares (§4.2).
type QueueConfig struct {
	NmapScanRequests       string `mapstructure:"nmap_scan_request_queue"`
	FingerprintScanRequests string `mapstructure:"fingerprint_scan_request_queue"`
	VulnEngineScanRequests string `mapstructure:"vuln_engine_scan_request_queue"`
	WebScanRequests        string `mapstructure:"web_scan_request_queue"`
	VulnLookupRequests     string `mapstructure:"vuln_lookup_request_queue"`
	ReportRequests         string `mapstructure:"report_request_queue"`
	ScanStatusUpdates      string `mapstructure:"scan_status_update_queue"`
}

// StagesConfig holds each stage's wall-clock timeout and concurrency cap.
type StagesConfig struct {
	NmapTimeout        time.Duration `mapstructure:"nmap_timeout"`
	FingerprintTimeout time.Duration `mapstructure:"fingerprint_timeout"`
	VulnEngineTimeout  time.Duration `mapstructure:"vuln_engine_timeout"`
	WebTimeout         time.Duration `mapstructure:"web_timeout"`
	VulnLookupTimeout  time.Duration `mapstructure:"vuln_lookup_timeout"`
	ReportTimeout      time.Duration `mapstructure:"report_timeout"`

	MaxConcurrentFingerprint int `mapstructure:"max_concurrent_fingerprint"`
}

// RetryConfig holds the MAX_RETRIES/RETRY_DELAY settings. Validate requires
// MaxRetries to be positive; no upload or publish path reads either value.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// VulnEngineConfig carries the external vulnerability engine's connection
// and scan-profile settings (VULN_ENGINE_* in §6).
type VulnEngineConfig struct {
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SocketPath      string        `mapstructure:"socket_path"`
	ScanConfigID    string        `mapstructure:"scan_config_id"`
	ScannerID       string        `mapstructure:"scanner_id"`
	PortListID      string        `mapstructure:"port_list_id"`
	PollingInterval time.Duration `mapstructure:"polling_interval"`
	MaxScanTime     time.Duration `mapstructure:"max_scan_time"`
	ReportFormat    string        `mapstructure:"report_format"`
}

// Load reads configuration from a YAML file (if present) layered under
// environment-variable overrides, exactly as the teacher's config loader
// does, generalized to also bind the explicit env-var names §6 requires.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("vaptord")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "vaptord"))
		}
	}

	applyDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file is fine — defaults plus env vars still apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// bindEnv wires the exact environment variable names from §6 to their
// mapstructure keys so operators can override any setting without a file.
func bindEnv(v *viper.Viper) {
	v.AutomaticEnv()
	binds := map[string]string{
		"db_dsn":           "DB_DSN",
		"broker_url":       "BROKER_URL",
		"api_gateway_url":  "API_GATEWAY_URL",
		"http_addr":        "HTTP_ADDR",
		"api_timeout":      "API_TIMEOUT",
		"log_level":        "LOG_LEVEL",

		"queues.nmap_scan_request_queue":        "NMAP_SCAN_REQUEST_QUEUE",
		"queues.fingerprint_scan_request_queue": "FINGERPRINT_SCAN_REQUEST_QUEUE",
		"queues.vuln_engine_scan_request_queue": "VULN_ENGINE_SCAN_REQUEST_QUEUE",
		"queues.web_scan_request_queue":         "WEB_SCAN_REQUEST_QUEUE",
		"queues.vuln_lookup_request_queue":      "VULN_LOOKUP_REQUEST_QUEUE",
		"queues.report_request_queue":           "REPORT_REQUEST_QUEUE",
		"queues.scan_status_update_queue":       "SCAN_STATUS_UPDATE_QUEUE",

		"stages.nmap_timeout":                "NMAP_TIMEOUT",
		"stages.fingerprint_timeout":         "FINGERPRINT_TIMEOUT",
		"stages.vuln_engine_timeout":         "VULN_ENGINE_TIMEOUT",
		"stages.web_timeout":                 "WEB_TIMEOUT",
		"stages.vuln_lookup_timeout":         "VULN_LOOKUP_TIMEOUT",
		"stages.report_timeout":              "REPORT_TIMEOUT",
		"stages.max_concurrent_fingerprint":  "MAX_CONCURRENT_FINGERPRINT",

		"retries.max_retries": "MAX_RETRIES",
		"retries.retry_delay": "RETRY_DELAY",

		"vuln_engine.username":         "VULN_ENGINE_USERNAME",
		"vuln_engine.password":         "VULN_ENGINE_PASSWORD",
		"vuln_engine.socket_path":      "VULN_ENGINE_SOCKET_PATH",
		"vuln_engine.scan_config_id":   "VULN_ENGINE_SCAN_CONFIG_ID",
		"vuln_engine.scanner_id":       "VULN_ENGINE_SCANNER_ID",
		"vuln_engine.port_list_id":     "VULN_ENGINE_PORT_LIST_ID",
		"vuln_engine.polling_interval": "VULN_ENGINE_POLLING_INTERVAL",
		"vuln_engine.max_scan_time":    "VULN_ENGINE_MAX_SCAN_TIME",
		"vuln_engine.report_format":    "VULN_ENGINE_REPORT_FORMAT",

		"notify.webhook_url": "NOTIFY_WEBHOOK_URL",

		"tools.nmap_path":      "NMAP_PATH",
		"tools.httpx_path":     "HTTPX_PATH",
		"tools.tlsx_path":      "TLSX_PATH",
		"tools.nuclei_path":    "NUCLEI_PATH",
		"tools.gowitness_path": "GOWITNESS_PATH",
		"tools.reports_dir":    "REPORTS_DIR",
		"tools.screenshot_dir": "SCREENSHOT_DIR",
	}
	for key, env := range binds {
		_ = v.BindEnv(key, env)
	}
}

// Validate checks that every required setting is present and sane.
func (c *Config) Validate() error {
	var errs []error

	if c.BrokerURL == "" {
		errs = append(errs, errors.New("broker_url cannot be empty"))
	}
	if c.APIGatewayURL == "" {
		errs = append(errs, errors.New("api_gateway_url cannot be empty"))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, errors.New("api_timeout must be positive"))
	}
	if c.Stages.MaxConcurrentFingerprint <= 0 {
		errs = append(errs, errors.New("max_concurrent_fingerprint must be positive"))
	}
	if c.Retries.MaxRetries <= 0 {
		errs = append(errs, errors.New("max_retries must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
