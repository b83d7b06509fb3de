package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360/ponybridge/bridge"
	"github.com/c360/ponybridge/config"
	"github.com/c360/ponybridge/health"
	"github.com/c360/ponybridge/intercept"
	"github.com/c360/ponybridge/metric"
	"github.com/c360/ponybridge/pkg/retry"
)

func newServeCmd(flags *CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the demo application with the bridge attached",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, flags.ShutdownTimeout)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, shutdownTimeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	base := setupHandler(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	bridgeLogger := withServiceAttrs(base)

	metricsRegistry := metric.NewMetricsRegistry()
	monitor := health.NewMonitor()

	b, err := bridge.NewBridge(cfg, bridge.Setup{
		Logger:   bridgeLogger,
		Metrics:  metricsRegistry,
		Health:   monitor,
		Bindings: map[string]any{
			"config":  cfg,
			"version": Version,
		},
	})
	if err != nil {
		return fmt.Errorf("create bridge: %w", err)
	}

	// Application logs are mirrored to the debugging console while the
	// Console domain is enabled. The bridge keeps the plain logger.
	logger := withServiceAttrs(b.Console.NewHandler(base, nil))
	slog.SetDefault(logger)

	logger.Info("Starting ponybridge",
		"version", Version,
		"build_time", BuildTime,
		"gateway", cfg.Gateway.URL)

	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := b.Start(signalCtx); err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}

	var metricsServer *metric.Server
	if cfg.Metrics.Port > 0 {
		metricsServer = metric.NewServer(fmt.Sprintf(":%d", cfg.Metrics.Port), cfg.Metrics.Path, metricsRegistry)
		metricsServer.Handle("/healthz", monitor.Handler(appName))
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		logger.Info("Metrics server started", "address", metricsServer.Address())
	}

	listener, err := listen(signalCtx, cfg.App.Addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/", intercept.Middleware(b.Network, intercept.Options{Logger: logger})(newDemoApp(logger)))
	mux.Handle("/healthz", monitor.Handler(appName))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()
	logger.Info("Demo application listening", "address", listener.Addr().String())

	select {
	case <-signalCtx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("demo application: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error stopping demo application", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping metrics server", "error", err)
		}
	}

	signalCancel()
	select {
	case <-b.Done():
	case <-shutdownCtx.Done():
		logger.Warn("Bridge did not stop before the shutdown timeout")
	}

	logger.Info("ponybridge shutdown complete")
	return nil
}

// listen binds addr, retrying briefly in case a previous instance is still
// releasing the port.
func listen(ctx context.Context, addr string) (net.Listener, error) {
	listener, err := retry.DoWithResult(ctx, retry.Quick(), func() (net.Listener, error) {
		return net.Listen("tcp", addr)
	})
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return listener, nil
}
