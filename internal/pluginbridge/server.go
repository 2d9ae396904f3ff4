package pluginbridge

import (
	"net/http"
	"strings"

	"github.com/daichi-629/obsiscripta-mcp/pkg/logging"
	"github.com/daichi-629/obsiscripta-mcp/pkg/metrics"
)

// Handler builds the full HTTP mux: /health, /metrics, /mcp (API-key
// gated, unknown session handling delegated to mcp-go), and /bridge/v1/*.
func (b *Bridge) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", v1Health)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/bridge/v1/health", v1Health)
	mux.HandleFunc("/bridge/v1/tools", b.v1Tools)
	mux.HandleFunc("/bridge/v1/tools/", b.dispatchToolCall)
	mux.Handle("/mcp", b.apiKeyMiddleware(b.httpServer))

	return mux
}

// dispatchToolCall extracts {name} from /bridge/v1/tools/{name}/call and
// routes to the per-tool handler.
func (b *Bridge) dispatchToolCall(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/bridge/v1/tools/")
	name, suffix, found := strings.Cut(rest, "/")
	if !found || suffix != "call" || name == "" {
		writeError(w, http.StatusNotFound, "not_found", "expected /bridge/v1/tools/{name}/call")
		return
	}
	b.v1Call(name)(w, r)
}

// apiKeyMiddleware enforces the shared API key on /mcp when configured.
// Disabled entirely when Config.APIKey is empty, matching hosts that
// already restrict loopback access by other means.
func (b *Bridge) apiKeyMiddleware(next http.Handler) http.Handler {
	if b.config.APIKey == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(b.config.APIKeyHeader) != b.config.APIKey {
			logging.Warn("PluginBridge", "rejected /mcp request with missing or invalid API key")
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
