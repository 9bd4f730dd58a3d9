// Package worker drives the generic 7-step stage-worker loop that every
// nmap/fingerprint/vuln-engine/web/vuln-lookup/report worker binary runs,
// around a StageHandler that supplies the stage-specific behavior — the
// same run-loop-plus-pluggable-stage shape as the teacher's RunPipeline,
// generalized from "run N stages in one process" to "run one stage
// forever, one message at a time."
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vapter/vaptord/internal/apiclient"
	"github.com/vapter/vaptord/internal/broker"
	"github.com/vapter/vaptord/internal/metrics"
	"github.com/vapter/vaptord/internal/models"
)

// StageHandler is implemented once per stage binary.
type StageHandler interface {
	// Module reports which stage this handler executes; it also selects
	// the request queue and the parsed_<module>_results upload column.
	Module() models.Module

	// Execute runs the stage's tool(s) against req and returns whatever
	// structured result the handler wants persisted. Execute may call
	// Heartbeat via the HeartbeatFunc passed at construction time for
	// stages long enough to need one.
	Execute(ctx context.Context, req models.StageRequest) (any, error)
}

// HeartbeatFunc reports incremental progress on a long-running stage.
// vuln-engine is the only stage that currently uses it (polling an
// external scan for progress), but the signature is generic.
type HeartbeatFunc func(ctx context.Context, progress int, note string) error

// StatusPublisher is the one broker.Publisher method Runtime needs,
// kept as a local interface so the loop can be driven in tests without a
// real AMQP connection.
type StatusPublisher interface {
	Publish(ctx context.Context, queue string, v any) error
}

// Runtime wires a StageHandler to the broker and the API client and runs
// the request/status/upload loop described in §4.3.
type Runtime struct {
	handler StageHandler
	api     *apiclient.Client
	pub     StatusPublisher
	statusQ string
	log     *logrus.Entry

	heartbeatEvery time.Duration
}

// New builds a Runtime. statusQueue is the shared scan-status-update
// queue every worker publishes StatusEvents to; heartbeatEvery bounds how
// often a long stage should emit an EventRunning progress update (≥30s
// per §4.3 — callers should not pass less).
func New(handler StageHandler, api *apiclient.Client, pub StatusPublisher, statusQueue string, heartbeatEvery time.Duration, log *logrus.Entry) *Runtime {
	if heartbeatEvery < 30*time.Second {
		heartbeatEvery = 30 * time.Second
	}
	return &Runtime{
		handler:        handler,
		api:            api,
		pub:            pub,
		statusQ:        statusQueue,
		heartbeatEvery: heartbeatEvery,
		log:            log,
	}
}

// Handle implements broker.Handler: it runs a single stage request to
// completion, reporting status events at every transition per §4.3's
// seven steps — received, running (with a heartbeat pump alongside
// Execute), completed-or-failed, and upload.
func (r *Runtime) Handle(ctx context.Context, body []byte) error {
	var req models.StageRequest
	if err := broker.Decode(body, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return broker.Malformed(err)
	}
	log := r.log.WithField("scan_id", req.ScanID).WithField("module", r.handler.Module())
	moduleLabel := string(r.handler.Module())
	start := time.Now()

	// Step 1: received.
	r.publishStatus(ctx, req.ScanID, models.EventReceived, "", nil)

	// Step 2: running, with a heartbeat goroutine pumping EventRunning
	// updates for the duration of Execute — generalizing the teacher's
	// per-stage isolation into a concurrent heartbeat-plus-work pair.
	runCtx, cancelHeartbeat := context.WithCancel(ctx)
	defer cancelHeartbeat()
	go r.pumpHeartbeat(runCtx, req.ScanID)

	result, execErr := r.runIsolated(runCtx, req)
	cancelHeartbeat()

	if execErr != nil {
		log.WithError(execErr).Warn("stage execution failed")
		r.publishStatus(ctx, req.ScanID, models.EventFailed, execErr.Error(), nil)
		metrics.StageExecutionsTotal.WithLabelValues(moduleLabel, "failed").Inc()
		metrics.StageDuration.WithLabelValues(moduleLabel).Observe(time.Since(start).Seconds())
		return execErr
	}

	// Step 3: parsing/upload.
	r.publishStatus(ctx, req.ScanID, models.EventParsing, "", nil)
	if err := r.api.PatchScanResults(ctx, req.ScanID, r.handler.Module(), result); err != nil {
		log.WithError(err).Warn("uploading stage results failed")
		r.publishStatus(ctx, req.ScanID, models.EventFailed, err.Error(), nil)
		metrics.StageExecutionsTotal.WithLabelValues(moduleLabel, "failed").Inc()
		metrics.StageDuration.WithLabelValues(moduleLabel).Observe(time.Since(start).Seconds())
		return err
	}

	// Step 4: completed.
	r.publishStatus(ctx, req.ScanID, models.EventCompleted, "", nil)
	metrics.StageExecutionsTotal.WithLabelValues(moduleLabel, "completed").Inc()
	metrics.StageDuration.WithLabelValues(moduleLabel).Observe(time.Since(start).Seconds())
	log.Info("stage completed")
	return nil
}

// runIsolated runs Execute behind a recover so a panicking tool wrapper
// fails just this one scan rather than crashing the worker process,
// mirroring the teacher's runStageIsolated.
func (r *Runtime) runIsolated(ctx context.Context, req models.StageRequest) (result any, retErr error) {
	defer func() {
		if rec := recover(); rec != nil {
			retErr = fmt.Errorf("%s stage panicked: %v", r.handler.Module(), rec)
		}
	}()
	return r.handler.Execute(ctx, req)
}

// pumpHeartbeat emits an EventRunning StatusEvent every heartbeatEvery
// until ctx is cancelled, keeping the dispatcher's view of a long stage
// alive without waiting on Execute to return.
func (r *Runtime) pumpHeartbeat(ctx context.Context, scanID string) {
	ticker := time.NewTicker(r.heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.publishStatus(ctx, scanID, models.EventRunning, "", nil)
		}
	}
}

func (r *Runtime) publishStatus(ctx context.Context, scanID string, status models.EventStatus, message string, progress *int) {
	evt := models.StatusEvent{
		ScanID:    scanID,
		Module:    r.handler.Module(),
		Status:    status,
		Timestamp: time.Now(),
		Message:   message,
		Progress:  progress,
	}
	if err := evt.Validate(); err != nil {
		r.log.WithError(err).Error("refusing to publish invalid status event")
		return
	}
	if err := r.pub.Publish(ctx, r.statusQ, evt); err != nil {
		r.log.WithError(err).Warn("publishing status event failed")
	}
}
