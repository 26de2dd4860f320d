package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finvoy/invoice-autopilot/internal/bootstrap"
	"github.com/finvoy/invoice-autopilot/internal/config"
	"github.com/finvoy/invoice-autopilot/internal/observability/logging"
	"github.com/finvoy/invoice-autopilot/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker metrics listening", slog.String("port", cfg.WorkerMetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker metrics server error", slog.String("error", err.Error()))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", slog.String("subject", cfg.NATSSubject))
	err = app.Queue.SubscribeInvoiceIngested(ctx, func(handlerCtx context.Context, invoiceID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		workerMetrics.StartInvoice()
		start := time.Now()
		outcome, err := app.ProcessUC.ProcessByID(processCtx, invoiceID)
		workerMetrics.FinishInvoice("worker", time.Since(start), err)
		if err != nil {
			return err
		}

		workerMetrics.RecordExtractionPath("worker", string(outcome.ExtractionPath))
		if outcome.Invoice != nil {
			workerMetrics.RecordIssues("worker", len(outcome.Invoice.Issues))
			workerMetrics.ObserveQueueLag("worker", start.Sub(outcome.Invoice.CreatedAt))
		}
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
