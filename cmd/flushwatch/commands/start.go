package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/flushwatch/internal/logger"
	"github.com/marmos91/flushwatch/internal/telemetry"
	"github.com/marmos91/flushwatch/pkg/api"
	"github.com/marmos91/flushwatch/pkg/api/handlers"
	"github.com/marmos91/flushwatch/pkg/config"
	"github.com/marmos91/flushwatch/pkg/filecache"
	"github.com/marmos91/flushwatch/pkg/flusher"
	"github.com/marmos91/flushwatch/pkg/metrics"
	promMetrics "github.com/marmos91/flushwatch/pkg/metrics/prometheus"
)

var ingestCacheID string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the flush scheduler",
	Long: `Start the flush scheduler in the foreground.

Every configured cache is opened in append mode and registered with the
scheduler. The status API (and /metrics, when enabled) is served until
SIGINT or SIGTERM, after which in-flight flushes are drained within
shutdown_timeout and every cache is closed with a final sync.

Examples:
  # Start with the default config location
  flushwatch start

  # Append stdin, line by line, to the "audit" cache
  tail -F /var/log/app.log | flushwatch start --ingest audit

  # Start with environment variable overrides
  FLUSHWATCH_LOGGING_LEVEL=DEBUG flushwatch start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&ingestCacheID, "ingest", "", "Append stdin to the cache with this ID")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := initTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)

	var (
		cacheOpts   []filecache.Option
		flusherOpts = []flusher.Option{flusher.WithFlushTimeout(cfg.Flusher.FlushTimeout)}
	)
	if cfg.Metrics.Enabled {
		reg := metrics.InitRegistry()
		cacheOpts = append(cacheOpts, filecache.WithMetrics(promMetrics.NewFileCacheMetrics(reg)))
		flusherOpts = append(flusherOpts, flusher.WithMetrics(promMetrics.NewFlusherMetrics(reg)))
		logger.Info("Metrics enabled", "path", "/metrics")
	} else {
		logger.Info("Metrics collection disabled")
	}

	caches, err := openCaches(afero.NewOsFs(), cfg.Caches, cacheOpts...)
	if err != nil {
		return err
	}
	defer closeCaches(caches)

	handles := make([]flusher.Handle, len(caches))
	files := make([]handlers.FileStatter, len(caches))
	for i, c := range caches {
		handles[i] = c
		files[i] = c
	}

	var ingestTarget *filecache.Cache
	if ingestCacheID != "" {
		if ingestTarget, err = findCache(caches, ingestCacheID); err != nil {
			return err
		}
	}

	mgr, err := flusher.New(handles, flusherOpts...)
	if err != nil {
		return fmt.Errorf("failed to create flush scheduler: %w", err)
	}

	// The scheduler outlives the signal context; Stop drains it below.
	if err := mgr.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start flush scheduler: %w", err)
	}

	watchConfig(GetConfigFile())

	g, gctx := errgroup.WithContext(ctx)

	if cfg.API.IsEnabled() {
		srv := api.NewServer(cfg.API, mgr, files...)
		g.Go(func() error { return srv.Start(gctx) })
	} else {
		logger.Info("API server disabled")
	}

	if ingestTarget != nil {
		g.Go(func() error { return ingestStdin(gctx, ingestTarget) })
	}

	g.Go(func() error { return monitorScheduler(gctx, mgr) })

	logger.Info("flushwatch is running. Press Ctrl+C to stop.")

	runErr := g.Wait()
	if runErr != nil {
		logger.Error("Shutting down after error", logger.Err(runErr))
	} else {
		logger.Info("Shutdown signal received, initiating graceful shutdown")
	}

	if err := mgr.Stop(cfg.ShutdownTimeout); err != nil {
		logger.Error("Flush scheduler shutdown error", logger.Err(err))
		runErr = errors.Join(runErr, err)
	}

	return runErr
}

func initTelemetry(ctx context.Context, cfg *config.Config) (func(), error) {
	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "flushwatch",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Headers:        cfg.Telemetry.Headers,
		ExportTimeout:  cfg.Telemetry.ExportTimeout,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "flushwatch",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		_ = telemetryShutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize profiling: %w", err)
	}

	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	return func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetryShutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}, nil
}

// openCaches opens every configured cache, closing the ones already opened
// if any fails.
func openCaches(fs afero.Fs, cfgs []config.CacheConfig, opts ...filecache.Option) ([]*filecache.Cache, error) {
	caches := make([]*filecache.Cache, 0, len(cfgs))
	for _, cc := range cfgs {
		c, err := filecache.New(fs, cc.FileCacheConfig(), opts...)
		if err != nil {
			closeCaches(caches)
			return nil, err
		}
		caches = append(caches, c)
	}
	return caches, nil
}

func closeCaches(caches []*filecache.Cache) {
	for _, c := range caches {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close cache", logger.CacheID(c.ID()), logger.Err(err))
		}
	}
}

func findCache(caches []*filecache.Cache, id string) (*filecache.Cache, error) {
	for _, c := range caches {
		if c.ID() == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("--ingest: no cache with id %q", id)
}

// ingestStdin copies stdin into c. Reaching EOF does not stop the process.
func ingestStdin(ctx context.Context, c *filecache.Cache) error {
	n, err := filecache.Ingest(ctx, c, os.Stdin)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("ingest into cache %q failed: %w", c.ID(), err)
	}
	logger.Info("Stdin ingest finished", logger.CacheID(c.ID()), logger.Bytes(n))
	return nil
}

// monitorScheduler returns the watcher's fatal error once it has one.
func monitorScheduler(ctx context.Context, mgr *flusher.Manager) error {
	ticker := time.NewTicker(mgr.ScanInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := mgr.Err(); err != nil {
				return err
			}
		}
	}
}

// watchConfig applies log level changes from the config file at runtime.
func watchConfig(configFile string) {
	path := resolveConfigPath(configFile)
	if path == "" {
		return
	}

	err := config.Watch(path, func(cfg *config.Config) {
		if cfg.Logging.Level != logger.GetLevel().String() {
			logger.SetLevel(cfg.Logging.Level)
			logger.Info("Log level changed", "level", cfg.Logging.Level)
		}
	})
	if err != nil {
		logger.Warn("Config watch disabled", logger.Err(err))
	}
}
