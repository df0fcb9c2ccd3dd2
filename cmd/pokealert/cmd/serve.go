package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/AbdullahP/pokealert/internal/api"
	"github.com/AbdullahP/pokealert/internal/config"
	"github.com/AbdullahP/pokealert/internal/detect"
	"github.com/AbdullahP/pokealert/internal/fetch"
	"github.com/AbdullahP/pokealert/internal/filter"
	"github.com/AbdullahP/pokealert/internal/monitor"
	"github.com/AbdullahP/pokealert/internal/notify"
	"github.com/AbdullahP/pokealert/internal/parser"
	"github.com/AbdullahP/pokealert/internal/store"
	"github.com/AbdullahP/pokealert/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the monitor, notification pipeline, and API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cliLog := log.NewWithOptions(os.Stderr, log.Options{
		Level: parseLogLevel(cfg.Logging.Level),
	})
	slogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	fetcher := fetch.NewHTTPClient(cfg.Monitor.RequestTimeout,
		fetch.WithDelayRange(cfg.Monitor.AntiDetection.MinDelay, cfg.Monitor.AntiDetection.MaxDelay),
		fetch.WithCacheBusting(cfg.Monitor.AntiDetection.CacheBusting),
		fetch.WithLimiter(fetch.NewDomainLimiter(cfg.Monitor.RateLimit.PerSecond, cfg.Monitor.RateLimit.Burst)),
		fetch.WithLogger(slogger),
	)

	var transport notify.Transport
	if cfg.Notifications.Discord.Enabled {
		transport = notify.NewDiscordTransport(cfg.Notifications.Discord.Token,
			notify.WithAPIURL(cfg.Notifications.Discord.APIURL))
		cliLog.Info("discord transport enabled")
	} else {
		transport = notify.NewNoopTransport(slogger)
		cliLog.Warn("discord disabled, notifications are logged and discarded")
	}

	pipeline := notify.NewPipeline(st, transport,
		notify.WithLogger(slogger),
		notify.WithRetryPolicy(cfg.Notifications.MaxRetries, cfg.Notifications.RetryBase, cfg.Notifications.RetryMax),
		notify.WithBatchWindow(cfg.Notifications.BatchWindow),
		notify.WithDispatchInterval(cfg.Notifications.DispatchInterval),
		notify.WithSweepInterval(cfg.Notifications.SweepInterval),
	)
	if err := pipeline.Start(); err != nil {
		return fmt.Errorf("starting notification pipeline: %w", err)
	}

	mon := monitor.New(
		st,
		fetcher,
		parser.New(parser.WithLogger(slogger)),
		filter.New(slogger),
		detect.New(st, detect.WithLogger(slogger)),
		pipeline,
		monitor.WithLogger(slogger),
		monitor.WithIntervals(cfg.Monitor.DefaultInterval, cfg.Monitor.MinInterval, cfg.Monitor.ErrorBackoff),
		monitor.WithMaxConcurrent(cfg.Monitor.MaxConcurrent),
	)

	targets, err := st.ListTargets(ctx, true)
	if err != nil {
		return fmt.Errorf("loading active targets: %w", err)
	}
	mon.Start(targets)
	cliLog.Info("monitoring started", "targets", len(targets))

	e := api.NewRouter(st, mon.Status(), mon, slogger)
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	cliLog.Info("starting server", "addr", addr)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cliLog.Error("server error", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cliLog.Info("shutting down")

	// Stop producing before stopping delivery, then close the listener.
	mon.StopAll()
	fetcher.Close()
	pipeline.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	cliLog.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "postgres":
		st, err := store.NewPostgresStore(ctx, cfg.Store.Postgres.DSN(),
			store.WithPoolSize(cfg.Store.Postgres.PoolSize))
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return st, nil
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func parseLogLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
