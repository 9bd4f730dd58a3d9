// Package pipeline implements the orchestrator state machine and
// dispatcher — the Go-native replacement for the teacher's synchronous
// RunPipeline loop, generalized into an event-driven table the status
// consumer and REST layer both funnel through.
package pipeline

import "github.com/vapter/vaptord/internal/models"

// stageStatus pairs the Running/Completed status values a module moves
// a Scan through, resolving the literal transition table the design
// notes call for without hand-writing a switch per module.
type stageStatus struct {
	running   models.ScanStatus
	completed models.ScanStatus
}

var statusByModule = map[models.Module]stageStatus{
	models.ModuleNmap:        {models.StatusNmapRunning, models.StatusNmapCompleted},
	models.ModuleFingerprint: {models.StatusFingerRunning, models.StatusFingerCompleted},
	models.ModuleVulnEngine:  {models.StatusVulnEngineRunning, models.StatusVulnEngineCompleted},
	models.ModuleWeb:         {models.StatusWebRunning, models.StatusWebCompleted},
	models.ModuleVulnLookup:  {models.StatusVulnLookupRunning, models.StatusVulnLookupCompleted},
}

// runningStatus returns the ScanStatus a "running" event for module maps to.
func runningStatus(module models.Module) (models.ScanStatus, bool) {
	s, ok := statusByModule[module]
	return s.running, ok
}

// completedStatus returns the ScanStatus a "completed" event for module maps to.
func completedStatus(module models.Module) (models.ScanStatus, bool) {
	s, ok := statusByModule[module]
	return s.completed, ok
}

// queueForModule resolves the stage-request queue name for module.
func queueForModule(module models.Module, q queueNames) string {
	switch module {
	case models.ModuleNmap:
		return q.Nmap
	case models.ModuleFingerprint:
		return q.Fingerprint
	case models.ModuleVulnEngine:
		return q.VulnEngine
	case models.ModuleWeb:
		return q.Web
	case models.ModuleVulnLookup:
		return q.VulnLookup
	case models.ModuleReport:
		return q.Report
	default:
		return ""
	}
}

// queueNames is the minimal queue-name set the dispatcher needs to
// publish stage requests, decoupled from config.QueueConfig's
// mapstructure-tagged shape.
type queueNames struct {
	Nmap        string
	Fingerprint string
	VulnEngine  string
	Web         string
	VulnLookup  string
	Report      string
}
