package gateway

import (
	"fmt"
	"io"
	"net/http"

	"github.com/daichi-629/obsiscripta-mcp/internal/mcpsession"
	"github.com/daichi-629/obsiscripta-mcp/internal/oauthserver"
	"github.com/daichi-629/obsiscripta-mcp/pkg/logging"
	"github.com/daichi-629/obsiscripta-mcp/pkg/metrics"
)

const maxBodyBytes = 4 << 20 // 4 MiB, generous for a JSON-RPC tool call/result

// Server is tier B's MCP surface: bearer-authenticated, per-session
// upstream routing on top of the Router. It owns the SessionTable entries
// the gateway mints itself (unlike tier A, it does not run an mcp-go
// server directly, so it is responsible for the session header contract
// and its own local initialize handshake).
type Server struct {
	auth     *oauthserver.Server
	sessions *mcpsession.Table
	router   *Router
	streams  *streamRegistry
}

// NewServer wires a gateway Server. auth supplies bearer validation and the
// PluginToken lookup the Router dispatches through.
func NewServer(auth *oauthserver.Server, sessions *mcpsession.Table, routerConfig Config) *Server {
	s := &Server{auth: auth, sessions: sessions, streams: newStreamRegistry()}
	s.router = NewRouter(routerConfig, s.lookupPlugin, s.notifyPlugin, s.streams.bind)
	return s
}

// Stop releases the router's background pollers.
func (s *Server) Stop() { s.router.Stop() }

func (s *Server) lookupPlugin(userID string) (*PluginBinding, bool) {
	token, ok := s.auth.Store().LookupPluginTokenByUser(userID)
	if !ok {
		return nil, false
	}
	return &PluginBinding{
		ID:             token.ID,
		Host:           token.PluginHost,
		Port:           token.PluginPort,
		SharedSecret:   token.SharedSecret,
		RequiresSecret: token.RequiresSecret,
	}, true
}

// notifyPlugin is invoked by the router's poller when a bound plugin's
// tool fingerprint changes. It fans the notification out to every open SSE
// stream currently bound to that plugin, per the session-to-plugin index
// the router keeps in sync through BindNotifier.
func (s *Server) notifyPlugin(pluginID string) {
	logging.Info("Gateway", "tool fingerprint changed for plugin %s", pluginID)
	s.streams.notify(pluginID, toolsListChangedNotification())
}

// Handler builds the gateway's HTTP mux: /health and /metrics plus the
// authorization server's own endpoints and /mcp, the latter wrapped in the
// bearer middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/mcp", s.auth.Middleware(http.HandlerFunc(s.handleMCP)))

	authMux := s.auth.Handler()
	mux.Handle("/.well-known/", authMux)
	mux.Handle("/oauth/", authMux)
	mux.Handle("/admin/", authMux)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleMCP implements the gateway's half of the Streamable-HTTP contract:
// POST carries one JSON-RPC request, GET opens the SSE stream that
// notifications/tools/list_changed is delivered over, DELETE tears the
// session down.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	accessToken := oauthserver.AccessTokenFromContext(r.Context())
	if accessToken == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r, accessToken.UserID)
	case http.MethodGet:
		s.handleGet(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request, userID string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	env, envErr := parseEnvelope(body)

	sessionID := r.Header.Get(sessionHeaderName)

	if sessionID == "" {
		// No session header: the only request this can legally be is the
		// opening initialize. Anything else is a protocol error, per the
		// same -32000 session-error channel every other session failure
		// uses.
		if envErr != nil || env.Method != methodInitialize {
			s.writeRPCError(w, nil, "missing "+sessionHeaderName+" header on non-initialize request")
			return
		}

		session, err := s.sessions.Create(userID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		session.MarkInitialized()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(sessionHeaderName, session.ID)
		w.WriteHeader(http.StatusOK)
		w.Write(initializeResult(env.ID))
		return
	}

	_, err = s.sessions.Get(sessionID)
	if err != nil {
		// Tier B speaks strictly JSON-RPC over /mcp, so an unknown session
		// stays in the JSON-RPC error channel rather than a bare HTTP 404
		// (the shape tier A uses, which has no JSON-RPC method context to
		// answer within).
		var id []byte
		if env != nil {
			id = env.ID
		}
		s.writeRPCError(w, id, err.Error())
		return
	}

	if envErr == nil && env.Method == methodInitialize {
		s.writeRPCError(w, env.ID, fmt.Sprintf("session %s already initialized", logging.TruncateSessionID(sessionID)))
		return
	}

	status, respBody, err := s.router.Forward(r.Context(), sessionID, userID, body)
	if err != nil {
		logging.Error("Gateway", "forwarding request for session %s: %v", logging.TruncateSessionID(sessionID), err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(sessionHeaderName, sessionID)
	w.WriteHeader(status)
	w.Write(respBody)
}

// writeRPCError answers a session-category protocol error: missing session
// header on a non-initialize request, an unknown session id, or a
// duplicate initialize on an already-open session. All three share JSON-RPC
// error code -32000 and HTTP 400 on tier B.
func (s *Server) writeRPCError(w http.ResponseWriter, id []byte, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	w.Write(rpcError(id, -32000, message))
}

// handleGet opens the SSE stream notifications/tools/list_changed is
// delivered over. The stream stays open for the lifetime of the request;
// the client is expected to keep the connection alive for as long as it
// wants to receive notifications and reconnect after a drop.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(sessionHeaderName)
	if sessionID == "" {
		http.Error(w, "missing session header", http.StatusBadRequest)
		return
	}

	if _, err := s.sessions.Get(sessionID); err != nil {
		s.writeRPCError(w, nil, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ch := s.streams.open(sessionID)
	defer s.streams.close(sessionID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case frame, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", frame)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(sessionHeaderName)
	if sessionID == "" {
		http.Error(w, "missing session header", http.StatusBadRequest)
		return
	}

	s.router.Close(sessionID)
	s.sessions.Delete(sessionID)
	s.streams.unbind(sessionID)
	w.WriteHeader(http.StatusNoContent)
}
