// Command report-worker runs the report-generation stage: it consumes
// report_request_queue, assembles every other stage's persisted results
// into one markdown artifact, and completes the scan. Report generation
// is non-fatal — a failure here still completes the scan (see
// internal/stage.ReportHandler).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vapter/vaptord/internal/apiclient"
	"github.com/vapter/vaptord/internal/broker"
	"github.com/vapter/vaptord/internal/config"
	"github.com/vapter/vaptord/internal/logging"
	"github.com/vapter/vaptord/internal/stage"
	"github.com/vapter/vaptord/internal/worker"
)

var cfgFile string

func main() {
	cmd := &cobra.Command{
		Use:   "report-worker",
		Short: "Runs the report-generation stage against queued scan requests",
		RunE:  run,
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file path")
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := logging.New("report-worker", cfg.LogLevel)
	log := logger.WithScan("", "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pub, err := broker.NewPublisher(ctx, cfg.BrokerURL, 10*time.Second, log)
	if err != nil {
		return fmt.Errorf("connecting status publisher: %w", err)
	}
	defer pub.Close()
	if err := pub.DeclareQueue(cfg.Queues.ScanStatusUpdates); err != nil {
		return fmt.Errorf("declaring status queue: %w", err)
	}

	api := apiclient.New(cfg.APIGatewayURL, cfg.APITimeout)
	handler := stage.NewReportHandler(api, cfg.Tools.ReportsDir, log)
	rt := worker.New(handler, api, pub, cfg.Queues.ScanStatusUpdates, 30*time.Second, log)

	consumer := broker.NewConsumer(cfg.BrokerURL, cfg.Queues.ReportRequests, 10*time.Second, log)
	log.Info("report-worker starting")
	return consumer.Run(ctx, rt.Handle)
}
