package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daichi-629/obsiscripta-mcp/internal/config"
	"github.com/daichi-629/obsiscripta-mcp/internal/mcpsession"
	"github.com/daichi-629/obsiscripta-mcp/internal/pluginbridge"
	"github.com/daichi-629/obsiscripta-mcp/internal/toolregistry"
	"github.com/daichi-629/obsiscripta-mcp/pkg/logging"
	"github.com/daichi-629/obsiscripta-mcp/pkg/metrics"
	"github.com/spf13/cobra"
)

const (
	bridgeSessionIdleTimeout = 30 * time.Minute
	bridgeMaxSessions        = 256
	bridgeShutdownGrace      = 5 * time.Second
)

// runServe wires the registry, session table, and Bridge, then serves
// until the process receives an interrupt or termination signal.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadBridgeConfig()
	if err != nil {
		return err
	}

	registry := toolregistry.New()
	if err := registerDemoTools(registry); err != nil {
		return err
	}

	sessions := mcpsession.New(bridgeSessionIdleTimeout, bridgeMaxSessions)
	defer sessions.Stop()

	meterShutdown, err := initMetrics()
	if err != nil {
		return err
	}
	defer meterShutdown()

	bridge := pluginbridge.New(pluginbridge.Config{
		ListenAddr:   cfg.ListenAddr,
		APIKey:       cfg.APIKey,
		APIKeyHeader: "",
	}, registry, sessions)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: bridge.Handler(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logging.Info("PluginBridge", "listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logging.Info("PluginBridge", "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), bridgeShutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serveErr:
		return err
	}
}

func initMetrics() (func(), error) {
	_, shutdown, err := metrics.InitProvider("obsiscripta-plugin-bridge")
	if err != nil {
		return nil, err
	}
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), bridgeShutdownGrace)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logging.Warn("PluginBridge", "metrics shutdown: %v", err)
		}
	}, nil
}
