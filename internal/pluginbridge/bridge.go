// Package pluginbridge implements tier A: a plugin-local MCP server and a
// parallel v1 REST surface, both backed by one shared ToolRegistry and
// bound to the host's loopback interface.
package pluginbridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/daichi-629/obsiscripta-mcp/internal/mcpsession"
	"github.com/daichi-629/obsiscripta-mcp/internal/toolexec"
	"github.com/daichi-629/obsiscripta-mcp/internal/toolregistry"
	"github.com/daichi-629/obsiscripta-mcp/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Config holds the bridge's runtime parameters.
type Config struct {
	// ListenAddr must be a loopback address (127.0.0.1:port or
	// localhost:port); the bridge never binds a public interface.
	ListenAddr string
	// APIKey, when non-empty, is required on /mcp via the configured
	// header name. Empty disables the check (the host already restricts
	// access to the loopback interface).
	APIKey string
	// APIKeyHeader is the header name the API key is read from.
	APIKeyHeader string
}

const defaultAPIKeyHeader = "X-Bridge-Api-Key"

// Bridge wires a ToolRegistry to both the MCP Streamable-HTTP transport and
// the legacy v1 REST surface.
type Bridge struct {
	config   Config
	registry *toolregistry.Registry
	executor *toolexec.Executor
	sessions *mcpsession.Table

	mu          sync.Mutex
	mcpServer   *server.MCPServer
	httpServer  *server.StreamableHTTPServer
	fingerprint string
}

// New creates a Bridge over the given registry. The session table tracks
// precondition state keyed by the mcp-go transport's own session id.
func New(cfg Config, registry *toolregistry.Registry, sessions *mcpsession.Table) *Bridge {
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = defaultAPIKeyHeader
	}

	b := &Bridge{
		config:   cfg,
		registry: registry,
		executor: toolexec.New(registry),
		sessions: sessions,
	}

	mcpSrv := server.NewMCPServer(
		"obsiscripta-plugin-bridge",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	b.mcpServer = mcpSrv
	b.httpServer = server.NewStreamableHTTPServer(mcpSrv)

	b.RefreshTools()
	return b
}

// RefreshTools rebuilds the mcp-go tool set from the registry and, if the
// registry's fingerprint changed since the last call, notifies every open
// session via notifications/tools/list_changed.
func (b *Bridge) RefreshTools() {
	defs, fp, err := b.registry.List()
	if err != nil {
		logging.Error("PluginBridge", err, "failed to list tools for refresh")
		return
	}

	tools := make([]server.ServerTool, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, server.ServerTool{
			Tool: mcp.Tool{
				Name:        def.Name,
				Description: def.Description,
				InputSchema: toMCPSchema(def.InputSchema),
			},
			Handler: b.makeHandler(def.Name),
		})
	}

	b.mu.Lock()
	changed := b.fingerprint != "" && b.fingerprint != fp
	b.fingerprint = fp
	b.mu.Unlock()

	b.mcpServer.SetTools(tools...)

	if changed {
		logging.Info("PluginBridge", "tool fingerprint changed, broadcasting list_changed")
		b.broadcastToolsChanged()
	}
}

// makeHandler builds the mcp-go CallTool handler for one tool name,
// binding the caller's mcp-go session id to our own precondition state.
func (b *Bridge) makeHandler(name string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]interface{}{}
		if req.Params.Arguments != nil {
			if m, ok := req.Params.Arguments.(map[string]interface{}); ok {
				args = m
			}
		}

		sessionID := sessionIDFromContext(ctx)
		session, err := b.sessions.GetOrCreate(sessionID, "")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("session error: %v", err)), nil
		}

		host := &toolregistry.HostContext{SessionID: sessionID}
		result, err := b.executor.Execute(ctx, name, args, host, session)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return toMCPResult(result), nil
	}
}

// broadcastToolsChanged notifies every session mcp-go currently knows about.
// mcp-go does not expose session enumeration, so the bridge relies on its
// own session table (populated lazily on first tool call) as the roster.
func (b *Bridge) broadcastToolsChanged() {
	for _, id := range b.sessions.IDs() {
		if err := b.mcpServer.SendNotificationToSpecificClient(id, "notifications/tools/list_changed", nil); err != nil {
			logging.Warn("PluginBridge", "failed to notify session %s: %v", logging.TruncateSessionID(id), err)
		}
	}
}

// MCPHandler returns the raw mcp-go Streamable-HTTP handler, unauthenticated.
func (b *Bridge) MCPHandler() *server.StreamableHTTPServer {
	return b.httpServer
}

func sessionIDFromContext(ctx context.Context) string {
	if session := server.ClientSessionFromContext(ctx); session != nil {
		if id := session.SessionID(); id != "" {
			return id
		}
	}
	return "stdio-default"
}
