package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"dlbench/internal/api"
	"dlbench/internal/api/handler/v1handler"
	"dlbench/internal/config"
	"dlbench/internal/runs"
	"dlbench/internal/worker"
	"dlbench/pkg/logger"
	"dlbench/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCommand constructs the 'serve' subcommand that starts the runs API
// and the River workers executing queued benchmark runs. It shuts both down
// gracefully on SIGINT or SIGTERM.
func serveCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the benchmark runs API and workers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			runMetrics, err := metrics.NewRuns(reg)
			if err != nil {
				logger.Fatal(ctx, "could not register run metrics", zap.Error(err))
			}
			meterProvider, err := metrics.NewMeterProvider(reg)
			if err != nil {
				logger.Fatal(ctx, "could not create meter provider", zap.Error(err))
			}

			pg, closePg := getPostgres(ctx, cfg)
			defer closePg()

			client, err := newFetchClient(cfg, meterProvider.Meter("dlbench/fetch"))
			if err != nil {
				logger.Fatal(ctx, "could not create fetch client", zap.Error(err))
			}

			runWorker := worker.NewRunWorker(pg, client, downloadOptions(cfg), cfg.Worker.MaxAttempts, runMetrics)
			riverClient, err := worker.Start(ctx, pg.Pool, runWorker, cfg.Worker.MaxWorkers)
			if err != nil {
				logger.Fatal(ctx, "could not start workers", zap.Error(err))
			}

			srv, err := api.NewServer(api.Deps{
				Deps:     v1handler.Deps{Runs: runs.New(pg, runs.NewOptions(cfg))},
				Registry: reg,
			}, api.NewOptions(cfg))
			if err != nil {
				logger.Fatal(ctx, "could not create HTTP server", zap.Error(err))
			}

			serverErr := make(chan error, 1)
			go func() {
				logger.Info(ctx, "starting HTTP server", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
				close(serverErr)
			}()

			select {
			case <-ctx.Done():
				logger.Info(ctx, "received shutdown signal")
			case err := <-serverErr:
				logger.Error(ctx, "HTTP server failed", zap.Error(err))
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.GracefulShutdownTimeout)
			defer cancel()

			logger.Info(ctx, "stopping workers...")
			if err := riverClient.Stop(shutdownCtx); err != nil {
				logger.Warn(ctx, "could not stop workers gracefully", zap.Error(err))
			}

			logger.Info(ctx, "shutting down HTTP server...")
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn(ctx, "could not shut down HTTP server gracefully", zap.Error(err))
			}

			flushCtx, cancelFlush := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			defer cancelFlush()
			if err := meterProvider.Shutdown(flushCtx); err != nil {
				logger.Warn(ctx, "could not shut down meter provider", zap.Error(err))
			}
		},
	}

	return cmd
}
