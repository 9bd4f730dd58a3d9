package pipeline

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vapter/vaptord/internal/apierr"
	"github.com/vapter/vaptord/internal/config"
	"github.com/vapter/vaptord/internal/metrics"
	"github.com/vapter/vaptord/internal/models"
	"github.com/vapter/vaptord/internal/store"
)

// Publisher is the broker dependency the dispatcher needs — just enough
// to keep this package testable against a fake.
type Publisher interface {
	Publish(ctx context.Context, queue string, v any) error
}

// Dispatcher owns every Scan.status transition. Both scan creation and
// every status event from the broker funnel through it so the
// compare-and-set guarantee is enforced in exactly one place.
type Dispatcher struct {
	scans       *store.ScanRepo
	scanTypes   *store.ScanTypeRepo
	targets     *store.TargetRepo
	scanDetails *store.ScanDetailRepo
	pub         Publisher
	queues      queueNames
	scope       *ScopeConfig
	notify      *NotifyConfig
	log         *logrus.Entry
}

// New constructs a Dispatcher from the store and broker publisher. scope
// and notify may be nil — an unset ScopeConfig allows any target, and a
// NotifyConfig with an empty WebhookURL is a no-op.
func New(st *store.Store, pub Publisher, q config.QueueConfig, scope *ScopeConfig, notify *NotifyConfig, log *logrus.Entry) *Dispatcher {
	return &Dispatcher{
		scans:       st.Scans(),
		scanTypes:   st.ScanTypes(),
		targets:     st.Targets(),
		scanDetails: st.ScanDetails(),
		pub:         pub,
		queues: queueNames{
			Nmap:        q.NmapScanRequests,
			Fingerprint: q.FingerprintScanRequests,
			VulnEngine:  q.VulnEngineScanRequests,
			Web:         q.WebScanRequests,
			VulnLookup:  q.VulnLookupRequests,
			Report:      q.ReportRequests,
		},
		scope:  scope,
		notify: notify,
		log:    log,
	}
}

// validateScope rejects a target address outside the configured scope —
// an IP is checked against AllowedCIDRs, anything else against
// AllowedDomains. A nil scope (no restrictions configured) allows
// everything.
func (d *Dispatcher) validateScope(address string) error {
	if d.scope == nil {
		return nil
	}
	if net.ParseIP(address) != nil {
		if err := d.scope.ValidateIP(address); err != nil {
			return apierr.Validation("%s", err)
		}
		return nil
	}
	if err := d.scope.ValidateTarget(address); err != nil {
		return apierr.Validation("%s", err)
	}
	return nil
}

// Create validates targetID/scanTypeID, refuses a second concurrent
// non-terminal scan on the same target (§8 uniqueness invariant), and
// transitions Pending → Queued, publishing the initial nmap stage
// request. The List-based check below is only a fast path for the
// common case; scans_one_active_per_target_idx (schema/0002) is what
// actually holds the invariant under two racing creates for the same
// target, since neither request can see the other's uncommitted insert.
func (d *Dispatcher) Create(ctx context.Context, targetID, scanTypeID string) (*models.Scan, error) {
	target, err := d.targets.Get(ctx, targetID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apierr.NotFound("target %q not found", targetID)
		}
		return nil, err
	}
	if err := d.validateScope(target.Address); err != nil {
		return nil, err
	}

	st, err := d.scanTypes.Get(ctx, scanTypeID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apierr.NotFound("scan type %q not found", scanTypeID)
		}
		return nil, err
	}

	existing, err := d.scans.List(ctx, store.ListParams{Filters: map[string]any{"target_id": targetID}, Limit: 500})
	if err != nil {
		return nil, err
	}
	for _, s := range existing {
		if !s.Status.Terminal() {
			return nil, apierr.Conflict("target %q already has a running scan (%s)", targetID, s.ID)
		}
	}

	scan := models.NewScan(targetID, scanTypeID)
	if err := d.scans.Create(ctx, scan); err != nil {
		if err == store.ErrConflict {
			// Lost the race against another concurrent create for the same
			// target — scans_one_active_per_target_idx (schema/0002) is the
			// actual guard; the List-based check above is just a fast path
			// that can't see a sibling request's in-flight insert.
			return nil, apierr.Conflict("target %q already has a running scan", targetID)
		}
		return nil, err
	}

	ok, err := d.scans.CompareAndSetStatus(ctx, scan.ID, models.StatusPending, models.StatusQueued, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("dispatcher: scan %s changed status before queueing", scan.ID)
	}

	if err := d.publishStage(ctx, scan.ID, target, st, models.ModuleNmap); err != nil {
		return nil, fmt.Errorf("dispatcher: publish nmap stage request: %w", err)
	}

	scan.Status = models.StatusQueued
	metrics.ScansCreatedTotal.Inc()
	return scan, nil
}

// HandleStatusEvent applies one decoded StatusEvent to the scan it names.
// Stale or already-applied events resolve to a logged no-op, never an
// error — the idempotency guarantee §4.4/§8 requires.
func (d *Dispatcher) HandleStatusEvent(ctx context.Context, evt models.StatusEvent) error {
	if err := evt.Validate(); err != nil {
		return fmt.Errorf("dispatcher: invalid status event: %w", err)
	}

	switch evt.Status {
	case models.EventRunning, models.EventParsing:
		return d.handleRunning(ctx, evt)
	case models.EventCompleted:
		return d.handleCompleted(ctx, evt)
	case models.EventFailed:
		return d.handleFailed(ctx, evt)
	default:
		d.log.WithField("scan_id", evt.ScanID).Debug("ignoring non-terminal/non-running event status")
		return nil
	}
}

func (d *Dispatcher) handleRunning(ctx context.Context, evt models.StatusEvent) error {
	next, ok := runningStatus(evt.Module)
	if !ok {
		return nil
	}

	scan, err := d.scans.Get(ctx, evt.ScanID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil
		}
		return err
	}
	// A running event only ever moves a scan forward: one that arrives
	// once the scan is at or past this stage is stale.
	order := []models.ScanStatus{models.StatusPending, models.StatusQueued}
	for _, m := range []models.Module{models.ModuleNmap, models.ModuleFingerprint, models.ModuleVulnEngine, models.ModuleWeb, models.ModuleVulnLookup} {
		order = append(order, statusByModule[m].running, statusByModule[m].completed)
	}
	rank := func(s models.ScanStatus) int {
		for i, o := range order {
			if o == s {
				return i
			}
		}
		return len(order)
	}
	if scan.Status.Terminal() || rank(scan.Status) >= rank(next) {
		d.log.WithField("scan_id", evt.ScanID).Debug("dropping stale running event")
		return nil
	}

	_, err = d.scans.CompareAndSetStatus(ctx, evt.ScanID, scan.Status, next, nil)
	return err
}

func (d *Dispatcher) handleCompleted(ctx context.Context, evt models.StatusEvent) error {
	completed, ok := completedStatus(evt.Module)
	if !ok {
		return nil
	}

	scan, err := d.scans.Get(ctx, evt.ScanID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil
		}
		return err
	}
	expectedRunning, _ := runningStatus(evt.Module)
	if scan.Status != expectedRunning {
		d.log.WithField("scan_id", evt.ScanID).Debug("dropping stale/duplicate completed event")
		return nil
	}

	ok2, err := d.scans.CompareAndSetStatus(ctx, evt.ScanID, scan.Status, completed, nil)
	if err != nil {
		return err
	}
	if !ok2 {
		return nil
	}

	return d.advanceAfterCompletion(ctx, evt.ScanID, evt.Module)
}

// advanceAfterCompletion implements the dispatcher algorithm's steps 2–5.
func (d *Dispatcher) advanceAfterCompletion(ctx context.Context, scanID string, justCompleted models.Module) error {
	scan, err := d.scans.Get(ctx, scanID)
	if err != nil {
		return err
	}
	st, err := d.scanTypes.Get(ctx, scan.ScanTypeID)
	if err != nil {
		return err
	}
	target, err := d.targets.Get(ctx, scan.TargetID)
	if err != nil {
		return err
	}

	remaining := remainingPlugins(st, scan.ParsedResults, justCompleted)
	if len(remaining) > 0 {
		next := remaining[0]
		nextStatus, _ := runningStatus(next)
		ok, err := d.scans.CompareAndSetStatus(ctx, scanID, scan.Status, nextStatus, nil)
		if err != nil || !ok {
			return err
		}
		return d.publishStage(ctx, scanID, target, st, next)
	}

	if st.WantsReport() {
		ok, err := d.scans.CompareAndSetStatus(ctx, scanID, scan.Status, models.StatusReportGenerationRunning, nil)
		if err != nil || !ok {
			return err
		}
		return d.publishStage(ctx, scanID, target, st, models.ModuleReport)
	}

	now := time.Now()
	_, err = d.scans.CompareAndSetStatus(ctx, scanID, scan.Status, models.StatusCompleted, func(s *models.Scan) {
		s.CompletedAt = &now
	})
	if err != nil {
		return err
	}
	d.notifyCompletion(ctx, scanID, models.StatusCompleted, "")
	return nil
}

func (d *Dispatcher) handleFailed(ctx context.Context, evt models.StatusEvent) error {
	scan, err := d.scans.Get(ctx, evt.ScanID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil
		}
		return err
	}
	if scan.Status.Terminal() {
		return nil
	}

	now := time.Now()
	errMsg := evt.ErrorDetails
	if errMsg == "" {
		errMsg = evt.Message
	}
	_, err = d.scans.CompareAndSetStatus(ctx, evt.ScanID, scan.Status, models.StatusFailed, func(s *models.Scan) {
		s.CompletedAt = &now
		s.ErrorMessage = errMsg
	})
	if err != nil {
		return err
	}
	d.notifyCompletion(ctx, evt.ScanID, models.StatusFailed, errMsg)
	return nil
}

// CompleteReport finalizes a scan that reached Report Generation Running,
// regardless of whether report generation itself succeeded — report
// failure is non-fatal per §4.4.
func (d *Dispatcher) CompleteReport(ctx context.Context, scanID string, reportPath string, reportErr error) error {
	scan, err := d.scans.Get(ctx, scanID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil
		}
		return err
	}
	if scan.Status != models.StatusReportGenerationRunning {
		return nil
	}

	if reportErr != nil {
		d.log.WithField("scan_id", scanID).WithError(reportErr).Warn("report generation failed, scan still completes")
	}

	now := time.Now()
	_, err = d.scans.CompareAndSetStatus(ctx, scanID, scan.Status, models.StatusCompleted, func(s *models.Scan) {
		s.CompletedAt = &now
		s.ReportPath = reportPath
	})
	if err != nil {
		return err
	}
	d.notifyCompletion(ctx, scanID, models.StatusCompleted, "")
	return nil
}

// notifyCompletion posts a best-effort webhook notification for a scan
// that just reached a terminal status. Failures are logged, never
// propagated — notification is an operational courtesy, not part of the
// state machine's correctness contract.
func (d *Dispatcher) notifyCompletion(ctx context.Context, scanID string, status models.ScanStatus, errMsg string) {
	metrics.ScansCompletedTotal.WithLabelValues(string(status)).Inc()

	if d.notify == nil || d.notify.WebhookURL == "" {
		return
	}
	if err := d.notify.SendCompletion(ctx, scanID, status, errMsg); err != nil {
		d.log.WithField("scan_id", scanID).WithError(err).Warn("scan completion webhook failed")
	}
}

// Cancel transitions a non-terminal scan directly to Failed with the
// canonical cancellation message. A terminal scan is left untouched.
func (d *Dispatcher) Cancel(ctx context.Context, scanID string) error {
	scan, err := d.scans.Get(ctx, scanID)
	if err != nil {
		if err == store.ErrNotFound {
			return apierr.NotFound("scan %q not found", scanID)
		}
		return err
	}
	if scan.Status.Terminal() {
		return apierr.Conflict("scan %q is already terminal (%s)", scanID, scan.Status)
	}

	now := time.Now()
	_, err = d.scans.CompareAndSetStatus(ctx, scanID, scan.Status, models.StatusFailed, func(s *models.Scan) {
		s.CompletedAt = &now
		s.ErrorMessage = models.CancelReason
	})
	if err != nil {
		return err
	}
	d.notifyCompletion(ctx, scanID, models.StatusFailed, models.CancelReason)
	return nil
}

// Restart re-enters a terminal scan at Pending and immediately re-queues
// it, mirroring Create's queue step.
func (d *Dispatcher) Restart(ctx context.Context, scanID string) (*models.Scan, error) {
	scan, err := d.scans.Get(ctx, scanID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apierr.NotFound("scan %q not found", scanID)
		}
		return nil, err
	}
	if !scan.Status.Terminal() {
		return nil, apierr.Conflict("scan %q is not in a terminal state (%s)", scanID, scan.Status)
	}

	target, err := d.targets.Get(ctx, scan.TargetID)
	if err != nil {
		return nil, err
	}
	st, err := d.scanTypes.Get(ctx, scan.ScanTypeID)
	if err != nil {
		return nil, err
	}

	if err := d.scanDetails.Upsert(ctx, models.NewScanDetail(scanID)); err != nil {
		return nil, fmt.Errorf("dispatcher: clearing scan detail on restart: %w", err)
	}

	ok, err := d.scans.CompareAndSetStatus(ctx, scanID, scan.Status, models.StatusPending, func(s *models.Scan) {
		s.Restart()
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.Conflict("scan %q changed state during restart", scanID)
	}

	ok, err = d.scans.CompareAndSetStatus(ctx, scanID, models.StatusPending, models.StatusQueued, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("dispatcher: scan %s changed status before re-queueing", scanID)
	}

	if err := d.publishStage(ctx, scanID, target, st, models.ModuleNmap); err != nil {
		return nil, fmt.Errorf("dispatcher: publish nmap stage request on restart: %w", err)
	}

	scan.Restart()
	scan.Status = models.StatusQueued
	return scan, nil
}

func (d *Dispatcher) publishStage(ctx context.Context, scanID string, target *models.Target, st *models.ScanType, module models.Module) error {
	queue := queueForModule(module, d.queues)
	if queue == "" {
		return fmt.Errorf("no queue configured for module %q", module)
	}
	req := models.StageRequest{
		ScanID:     scanID,
		TargetID:   target.ID,
		TargetHost: target.Address,
		ScanTypeID: st.ID,
		Plugin:     module,
		Timestamp:  time.Now(),
	}
	if err := req.Validate(); err != nil {
		return err
	}
	return d.pub.Publish(ctx, queue, req)
}
