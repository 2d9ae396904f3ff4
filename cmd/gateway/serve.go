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
	"github.com/daichi-629/obsiscripta-mcp/internal/gateway"
	"github.com/daichi-629/obsiscripta-mcp/internal/idp"
	"github.com/daichi-629/obsiscripta-mcp/internal/mcpsession"
	"github.com/daichi-629/obsiscripta-mcp/internal/oauthserver"
	"github.com/daichi-629/obsiscripta-mcp/pkg/logging"
	"github.com/daichi-629/obsiscripta-mcp/pkg/metrics"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

const (
	gatewaySessionIdleTimeout = 30 * time.Minute
	gatewayMaxSessions        = 4096
	gatewayShutdownGrace      = 5 * time.Second
)

// runServe wires the upstream IdP provider, the authorization server, the
// session table, and the Router into a gateway.Server, then serves until
// the process receives an interrupt or termination signal.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadGatewayConfig()
	if err != nil {
		return err
	}

	provider := idp.NewOIDCProvider(&oauth2.Config{
		ClientID:     cfg.IdPClientID,
		ClientSecret: cfg.IdPClientSecret,
		RedirectURL:  cfg.ExternalURL + "/oauth/upstream/callback",
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.IdPAuthURL,
			TokenURL: cfg.IdPTokenURL,
		},
	}, cfg.IdPUserInfoURL)

	auth := oauthserver.New(oauthserver.Config{
		IssuerURL:         cfg.ExternalURL,
		Scopes:            []string{"mcp"},
		AdminSharedSecret: cfg.AdminSharedSecret,
	}, provider)
	defer auth.Stop()

	sessions := mcpsession.New(gatewaySessionIdleTimeout, gatewayMaxSessions)
	defer sessions.Stop()

	meterShutdown, err := initMetrics()
	if err != nil {
		return err
	}
	defer meterShutdown()

	gatewaySrv := gateway.NewServer(auth, sessions, gateway.Config{})
	defer gatewaySrv.Stop()

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: gatewaySrv.Handler(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logging.Info("Gateway", "listening on %s", cfg.ListenAddr)
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
		logging.Info("Gateway", "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gatewayShutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serveErr:
		return err
	}
}

func initMetrics() (func(), error) {
	_, shutdown, err := metrics.InitProvider("obsiscripta-gateway")
	if err != nil {
		return nil, err
	}
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gatewayShutdownGrace)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logging.Warn("Gateway", "metrics shutdown: %v", err)
		}
	}, nil
}
