package oauthserver

import (
	"net/http"

	"github.com/daichi-629/obsiscripta-mcp/internal/idp"
)

// Server is the OAuthAuthorizationServer: discovery, dynamic registration,
// the authorize/callback/token/revoke endpoints, the AuthMiddleware
// protecting /mcp, and the admin API over PluginToken records.
type Server struct {
	config   Config
	store    *Store
	upstream idp.Provider
}

// New creates a Server. The store is created fresh; callers obtain it via
// Store() to wire the admin API or share it with tests.
func New(config Config, upstream idp.Provider) *Server {
	return &Server{config: config, store: NewStore(), upstream: upstream}
}

// Store exposes the underlying Store, e.g. for seeding PluginToken records
// from configuration at startup.
func (s *Server) Store() *Store { return s.store }

// Stop releases the store's background sweeper.
func (s *Server) Stop() { s.store.Stop() }

// Handler builds the full HTTP mux for the authorization server's own
// endpoints (discovery, registration, authorize, callback, token, revoke,
// admin). It does not include /mcp, which the gateway wraps separately
// with Middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/.well-known/oauth-protected-resource", s.handleProtectedResourceMetadata)
	mux.HandleFunc("/.well-known/oauth-authorization-server", s.handleAuthorizationServerMetadata)
	mux.HandleFunc("/oauth/register", s.handleRegister)
	mux.HandleFunc("/oauth/authorize", s.handleAuthorize)
	mux.HandleFunc("/oauth/upstream/callback", s.handleUpstreamCallback)
	mux.HandleFunc("/oauth/token", s.handleToken)
	mux.HandleFunc("/oauth/revoke", s.handleRevoke)
	mux.Handle("/admin/plugin-tokens", s.adminAuth(http.HandlerFunc(s.handlePluginTokensCollection)))
	mux.Handle("/admin/plugin-tokens/", s.adminAuth(http.HandlerFunc(s.handlePluginTokenItem)))

	return mux
}
