package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/daichi-629/obsiscripta-mcp/pkg/logging"
)

// Router is the UpstreamRouter: for each local MCP session it selects the
// plugin bridge registered to the session's resolved user, opens one
// upstream MCP session the first time the session is used, and replays
// every subsequent client request against that same upstream session.
type Router struct {
	config Config
	lookup PluginLookup
	client httpDoer
	onBind BindNotifier

	mu       sync.Mutex
	sessions map[string]*upstreamSession

	pollers *pollerSet
}

// NewRouter builds a Router. notify is called whenever a bound plugin's
// tool fingerprint changes, so the caller can fan out
// notifications/tools/list_changed to every session bound to it. onBind is
// called whenever a local session is (re)bound to a plugin, so the caller
// can keep its own session-to-plugin index in sync; either may be nil.
func NewRouter(config Config, lookup PluginLookup, notify Notifier, onBind BindNotifier) *Router {
	config = config.withDefaults()
	r := &Router{
		config:   config,
		lookup:   lookup,
		client:   &http.Client{Timeout: config.HopTimeout},
		onBind:   onBind,
		sessions: make(map[string]*upstreamSession),
	}
	r.pollers = newPollerSet(config.PollInterval, r.client, notify)
	return r
}

// Stop halts every background poller the router has started.
func (r *Router) Stop() { r.pollers.stopAll() }

// sessionFor returns (creating if absent) the router's bookkeeping entry
// for a local MCP session.
func (r *Router) sessionFor(localSessionID string) *upstreamSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[localSessionID]
	if !ok {
		s = &upstreamSession{state: stateUnbound}
		r.sessions[localSessionID] = s
	}
	return s
}

// Close releases a local session's upstream binding (e.g. on client DELETE
// or idle timeout). It does not attempt an upstream DELETE round trip
// itself; callers that want one should issue it before calling Close.
func (r *Router) Close(localSessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[localSessionID]; ok {
		s.mu.Lock()
		s.state = stateClosed
		s.mu.Unlock()
		delete(r.sessions, localSessionID)
	}
}

// Forward routes one client MCP request for localSessionID, owned by
// userID, to that user's plugin bridge. It returns the HTTP status and raw
// body the caller should relay back to the client (already a complete
// JSON-RPC response body, synthesized or passed through verbatim).
func (r *Router) Forward(ctx context.Context, localSessionID, userID string, body []byte) (int, []byte, error) {
	env, err := parseEnvelope(body)
	if err != nil {
		return http.StatusBadRequest, rpcError(nil, -32700, "invalid JSON-RPC request body"), nil
	}

	binding, ok := r.lookup(userID)
	if !ok {
		return http.StatusOK, noPluginResponse(env, userID), nil
	}

	session := r.sessionFor(localSessionID)

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.state == stateClosed {
		session.state = stateUnbound
	}

	r.bindBinding(localSessionID, session, binding)

	if session.state == stateUnbound {
		if err := r.openUpstreamSession(ctx, session, binding); err != nil {
			return http.StatusBadGateway, rpcError(env.ID, -32000, err.Error()), nil
		}
		r.pollers.ensure(binding)
	}

	resp, err := doUpstream(ctx, r.client, binding, session.upstreamSessionID, body)
	if err != nil {
		return http.StatusBadGateway, rpcError(env.ID, -32000, err.Error()), nil
	}

	if resp.status == http.StatusNotFound && env.Method != methodInitialize {
		logging.Warn("UpstreamRouter", "upstream session %s expired for local session %s, re-initializing once",
			logging.TruncateSessionID(session.upstreamSessionID), logging.TruncateSessionID(localSessionID))

		if err := r.openUpstreamSession(ctx, session, binding); err != nil {
			return http.StatusBadGateway, rpcError(env.ID, -32000, err.Error()), nil
		}

		retry, err := doUpstream(ctx, r.client, binding, session.upstreamSessionID, body)
		if err != nil {
			return http.StatusBadGateway, rpcError(env.ID, -32000, err.Error()), nil
		}
		if retry.status == http.StatusNotFound {
			return http.StatusOK, toolCallErrorResult(env.ID, (&ErrSessionExpiredTwice{SessionID: localSessionID}).Error()), nil
		}
		return retry.status, retry.body, nil
	}

	return resp.status, resp.body, nil
}

func (r *Router) bindBinding(localSessionID string, session *upstreamSession, binding *PluginBinding) {
	if session.pluginTokenID == binding.ID {
		return
	}
	session.pluginTokenID = binding.ID
	session.pluginHost = binding.Host
	session.pluginPort = binding.Port
	session.pluginSharedSecret = binding.SharedSecret
	session.pluginRequiresAuth = binding.RequiresSecret
	session.state = stateUnbound
	session.upstreamSessionID = ""

	if r.onBind != nil {
		r.onBind(localSessionID, binding.ID)
	}
}

// openUpstreamSession issues an upstream initialize call and records the
// session id the plugin bridge assigns. Caller must hold session.mu.
func (r *Router) openUpstreamSession(ctx context.Context, session *upstreamSession, binding *PluginBinding) error {
	initBody, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      "gateway-init",
		"method":  methodInitialize,
		"params": map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]interface{}{},
			"clientInfo": map[string]interface{}{
				"name":    "obsiscripta-gateway",
				"version": "1.0.0",
			},
		},
	})

	resp, err := doUpstream(ctx, r.client, binding, "", initBody)
	if err != nil {
		return err
	}
	if resp.status != http.StatusOK || resp.sessionID == "" {
		return &ErrUpstreamUnavailable{Status: resp.status, Body: string(resp.body)}
	}

	session.upstreamSessionID = resp.sessionID
	session.state = stateOpen
	return nil
}

// noPluginResponse answers a request for an unconfigured user in-band,
// without failing the transport: tools/call gets a tool-level error
// result, tools/list gets an empty tool set, anything else gets a
// JSON-RPC error.
func noPluginResponse(env *rpcEnvelope, userID string) []byte {
	switch env.Method {
	case methodToolsCall:
		return toolCallErrorResult(env.ID, (&ErrNoPluginConfigured{UserID: userID}).Error())
	case methodToolsList:
		return rpcResult(env.ID, map[string]interface{}{"tools": []interface{}{}})
	default:
		return rpcError(env.ID, -32000, (&ErrNoPluginConfigured{UserID: userID}).Error())
	}
}
