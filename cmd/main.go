// Package main is the dlbench CLI. It wires the benchmark commands (compare,
// download, bench, get, harness) and the service commands (serve, migrate,
// jwt), loads configuration and initializes logging.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dlbench/internal/config"
	"dlbench/internal/download"
	"dlbench/pkg/fetch/httpfetch"
	"dlbench/pkg/logger"
	"dlbench/pkg/serrors"
	"dlbench/pkg/storage/postgres"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// exitCodeError makes main exit with code instead of 1.
type exitCodeError struct {
	code int
	err  error
}

func (e exitCodeError) Error() string { return e.err.Error() }
func (e exitCodeError) Unwrap() error { return e.err }

// getPostgres creates a PostgreSQL client using configuration values and returns it
// along with a cleanup function to close the connection pool.
func getPostgres(ctx context.Context, cfg *config.Config) (*postgres.PgSQL, func()) {
	pgsql, err := postgres.New(ctx, postgres.Options{
		Username:           cfg.Database.Username,
		Password:           cfg.Database.Password,
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		Database:           cfg.Database.DatabaseName,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime:    cfg.Database.ConnMaxIdleTime,
		MaxOpenConnections: cfg.Database.MaxOpenConnections,
		MaxIdleConnections: cfg.Database.MaxIdleConnections,
		SslMode:            cfg.Database.SslMode,
	})
	if err != nil {
		logger.Fatal(ctx, "could not create postgres storage", zap.Error(err))
	}

	return pgsql, func() {
		logger.Info(ctx, "closing postgres client...")
		if err = pgsql.Close(); err != nil {
			logger.Warn(ctx, "could not close postgres connection", zap.Error(err))
		}
	}
}

// newFetchClient builds the HTTP fetch client described by the download
// section of cfg. meter may be nil.
func newFetchClient(cfg *config.Config, meter metric.Meter) (*httpfetch.Client, error) {
	client, err := httpfetch.New(
		httpfetch.NewHTTPClient(cfg.Download.Timeout, cfg.Download.MaxConnsPerHost),
		httpfetch.Options{
			ChunkSize:         cfg.Download.ChunkSize,
			InactivityTimeout: cfg.Download.InactivityTimeout,
			UserAgent:         cfg.Download.UserAgent,
			Meter:             meter,
		})
	if err != nil {
		return nil, fmt.Errorf("could not create fetch client: %w", err)
	}

	return client, nil
}

func downloadOptions(cfg *config.Config) download.Options {
	return download.Options{
		Concurrency:      cfg.Download.Concurrency,
		RespectRateLimit: cfg.Download.RespectRateLimit,
	}
}

// newDownloader returns a Downloader over a fresh fetch client.
func newDownloader(cfg *config.Config) (*download.Downloader, error) {
	client, err := newFetchClient(cfg, nil)
	if err != nil {
		return nil, err
	}

	return download.New(client, downloadOptions(cfg)), nil
}

// batchFlags registers --url and --count, defaulting to the benchmark section
// of the config when unset.
func batchFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", "", "URL to download (default from config)")
	cmd.Flags().Int("count", 0, "number of copies of URL in the batch (default from config)")
}

func batchFromFlags(cmd *cobra.Command, cfg *config.Config) ([]string, error) {
	URL, _ := cmd.Flags().GetString("url")
	if URL == "" {
		URL = cfg.Benchmark.URL
	}
	count, _ := cmd.Flags().GetInt("count")
	if count == 0 {
		count = cfg.Benchmark.Count
	}

	urls, err := download.Batch(URL, count)
	if err != nil {
		err = fmt.Errorf("could not build batch: %w", err)
		if errors.Is(err, serrors.ErrBadRequest) {
			return nil, exitCodeError{code: 2, err: err}
		}

		return nil, err
	}

	return urls, nil
}

func newRootCommand(cfg *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "dlbench",
		Short:         "Benchmarks sequential versus concurrent downloads",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			loaded, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("could not load config: %w", err)
			}
			*cfg = *loaded

			if err := logger.Setup(cfg.Environment, cfg.LogLevel); err != nil {
				return fmt.Errorf("could not setup logger: %w", err)
			}

			return nil
		},
	}
	rootCmd.PersistentFlags().StringP("config", "c", "config.yml", "Config File Path")

	rootCmd.AddCommand(
		compareCommand(cfg),
		downloadCommand(cfg),
		benchCommand(cfg),
		getCommand(cfg),
		harnessCommand(cfg),
		serveCommand(cfg),
		migrateCommand(cfg),
		JWTCommand(cfg),
	)

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			logger.Sync()

			panic(p)
		}
	}()

	err := newRootCommand(&config.Config{}).ExecuteContext(ctx)
	stop()
	if err == nil {
		logger.Sync()

		return
	}

	code := 1
	var exitErr exitCodeError
	if errors.As(err, &exitErr) {
		code = exitErr.code
	}
	logger.Error(ctx, "command failed", zap.Error(err))
	fmt.Fprintln(os.Stderr, "Error:", err) //nolint: forbidigo
	logger.Sync()

	os.Exit(code) //nolint: gocritic
}
