package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vapter/vaptord/internal/broker"
	"github.com/vapter/vaptord/internal/config"
	"github.com/vapter/vaptord/internal/pipeline"
	"github.com/vapter/vaptord/internal/store"
)

// buildDispatcher opens the store and broker publisher shared by serve and
// status-consumer, and wires them into a Dispatcher. Callers own closing
// the returned Store and Publisher.
func buildDispatcher(ctx context.Context, cfg *config.Config, log *logrus.Entry) (*store.Store, *broker.Publisher, *pipeline.Dispatcher, error) {
	st, err := store.Open(ctx, cfg.DBDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening store: %w", err)
	}

	pub, err := broker.NewPublisher(ctx, cfg.BrokerURL, 10*time.Second, log)
	if err != nil {
		st.Close()
		return nil, nil, nil, fmt.Errorf("connecting publisher: %w", err)
	}

	for _, q := range []string{
		cfg.Queues.NmapScanRequests,
		cfg.Queues.FingerprintScanRequests,
		cfg.Queues.VulnEngineScanRequests,
		cfg.Queues.WebScanRequests,
		cfg.Queues.VulnLookupRequests,
		cfg.Queues.ReportRequests,
		cfg.Queues.ScanStatusUpdates,
	} {
		if err := pub.DeclareQueue(q); err != nil {
			pub.Close()
			st.Close()
			return nil, nil, nil, fmt.Errorf("declaring queue %s: %w", q, err)
		}
	}

	var scope *pipeline.ScopeConfig
	if len(cfg.Scope.AllowedDomains) > 0 || len(cfg.Scope.AllowedCIDRs) > 0 {
		scope = &pipeline.ScopeConfig{
			AllowedDomains: cfg.Scope.AllowedDomains,
			AllowedCIDRs:   cfg.Scope.AllowedCIDRs,
		}
	}

	var notify *pipeline.NotifyConfig
	if cfg.Notify.WebhookURL != "" {
		notify = &pipeline.NotifyConfig{WebhookURL: cfg.Notify.WebhookURL}
	}

	dispatcher := pipeline.New(st, pub, cfg.Queues, scope, notify, log)
	return st, pub, dispatcher, nil
}
