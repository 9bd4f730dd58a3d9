package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vapter/vaptord/internal/broker"
	"github.com/vapter/vaptord/internal/logging"
)

var statusConsumerCmd = &cobra.Command{
	Use:   "status-consumer",
	Short: "Run only the scan-status consumer",
	Long: `status-consumer drains scan_status_update_queue on its own, without
the HTTP server — useful for scaling status processing independently of the
REST API, or for running it as a separate deployment unit from serve.`,
	RunE: runStatusConsumer,
}

func init() {
	rootCmd.AddCommand(statusConsumerCmd)
}

func runStatusConsumer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.New("vaptord-status-consumer", cfg.LogLevel)
	log := logger.WithScan("", "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, pub, dispatcher, err := buildDispatcher(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pub.Close()
	defer st.Close()

	consumer := broker.NewConsumer(cfg.BrokerURL, cfg.Queues.ScanStatusUpdates, 10*time.Second, log)
	log.Info("status-consumer starting")
	return consumer.Run(ctx, func(ctx context.Context, body []byte) error {
		return handleStatusEvent(ctx, dispatcher, body)
	})
}
