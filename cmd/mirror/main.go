package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/tvmirror/playlist-mirror/internal/client"
	"github.com/tvmirror/playlist-mirror/internal/config"
	"github.com/tvmirror/playlist-mirror/internal/download"
	"github.com/tvmirror/playlist-mirror/internal/metrics"
	"github.com/tvmirror/playlist-mirror/internal/mirror"
	"github.com/tvmirror/playlist-mirror/internal/playlist"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Mirror IPTV playlists and their channel icons",
	Long: `Fetches the configured playlists, rewrites tvg-logo icon URLs to point at
the mirror host and downloads every referenced icon variant.`,
	Run: func(cmd *cobra.Command, args []string) {
		run()
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "Path to the configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run() {
	cfg, err := config.LoadConfig(configFile)
	logger := config.GetLogger()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger.Info().
		Str("mirror_base", cfg.MirrorBaseURL()).
		Strs("sources", cfg.Sources).
		Int("workers", cfg.Workers).
		Int("batch_size", cfg.BatchSize).
		Msg("Application started with configuration")

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Sentry, continuing without error reporting")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Start Prometheus metrics HTTP server
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewHTTPServer(cfg.Metrics.Address, cfg.Metrics.Port)
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("Starting Prometheus metrics HTTP server")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("Failed to serve metrics")
			}
		}()
		defer func() {
			if err := metricsServer.Shutdown(context.Background()); err != nil {
				logger.Error().Err(err).Msg("Failed to shutdown metrics server")
			}
		}()
	}

	// Handle graceful shutdown: stop starting new work, let bounded work finish
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal, finishing bounded work")
		cancel()
	}()

	httpClient := client.New(cfg)

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	rewriter := playlist.NewRewriter(httpClient, cfg)
	fetcher := download.NewFetcher(httpClient, cfg, limiter)
	service := mirror.NewService(cfg, rewriter, download.NewScheduler(fetcher, cfg))

	// Partial runs and timeouts still exit zero; only configuration and
	// bootstrap problems are fatal.
	if _, err := service.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Mirror run could not start")
	}
}
