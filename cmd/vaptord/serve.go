package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vapter/vaptord/internal/api"
	"github.com/vapter/vaptord/internal/broker"
	"github.com/vapter/vaptord/internal/logging"
	"github.com/vapter/vaptord/internal/models"
	"github.com/vapter/vaptord/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API and the scan-status consumer",
	Long: `serve runs the orchestrator's two always-on processes — the gin HTTP
server exposing /api/orchestrator, and the status-consumer draining
scan_status_update_queue — as two goroutines under one errgroup, so either
one exiting shuts the whole process down.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.New("vaptord", cfg.LogLevel)
	log := logger.WithScan("", "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, pub, dispatcher, err := buildDispatcher(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pub.Close()
	defer st.Close()

	srv := api.New(st, dispatcher, log)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Router(),
	}

	consumer := broker.NewConsumer(cfg.BrokerURL, cfg.Queues.ScanStatusUpdates, 10*time.Second, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", cfg.HTTPAddr).Info("http server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("status consumer starting")
		return consumer.Run(gctx, func(ctx context.Context, body []byte) error {
			return handleStatusEvent(ctx, dispatcher, body)
		})
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down http server")
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// handleStatusEvent decodes one scan_status_update_queue message and
// funnels it through the dispatcher's compare-and-set status transition.
func handleStatusEvent(ctx context.Context, dispatcher *pipeline.Dispatcher, body []byte) error {
	var evt models.StatusEvent
	if err := broker.Decode(body, &evt); err != nil {
		return err
	}
	if err := evt.Validate(); err != nil {
		return broker.Malformed(err)
	}
	return dispatcher.HandleStatusEvent(ctx, evt)
}
