package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/daichi-629/obsiscripta-mcp/pkg/logging"
)

const pluginSharedSecretHeader = "X-Bridge-Api-Key"

// upstreamResponse is one HTTP round trip's worth of result, enough for the
// router to decide whether to recover, propagate, or re-initialize.
type upstreamResponse struct {
	status    int
	body      []byte
	sessionID string
}

// pluginURL builds the plugin bridge's /mcp endpoint from a binding.
func pluginURL(b *PluginBinding) string {
	return fmt.Sprintf("http://%s:%d/mcp", b.Host, b.Port)
}

// doUpstream issues one MCP request against the plugin bridge, propagating
// the upstream session id (if any) and the plugin's shared secret (if
// required), but never the client's own bearer token.
func doUpstream(ctx context.Context, client httpDoer, binding *PluginBinding, upstreamSessionID string, body []byte) (*upstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pluginURL(binding), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if upstreamSessionID != "" {
		req.Header.Set(sessionHeaderName, upstreamSessionID)
	}
	if binding.RequiresSecret && binding.SharedSecret != "" {
		req.Header.Set(pluginSharedSecretHeader, binding.SharedSecret)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling plugin bridge at %s: %w", pluginURL(binding), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading plugin bridge response: %w", err)
	}

	logging.Debug("UpstreamRouter", "plugin %s:%d -> status %d", binding.Host, binding.Port, resp.StatusCode)

	return &upstreamResponse{
		status:    resp.StatusCode,
		body:      respBody,
		sessionID: resp.Header.Get(sessionHeaderName),
	}, nil
}

// fetchUpstreamToolsFingerprint polls the plugin's v1 REST surface for its
// current tool-list hash, used by the poller to detect tool-set changes
// without holding an MCP session open.
func fetchUpstreamToolsFingerprint(ctx context.Context, client httpDoer, binding *PluginBinding) (string, error) {
	url := fmt.Sprintf("http://%s:%d/bridge/v1/tools", binding.Host, binding.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building tools poll request: %w", err)
	}
	if binding.RequiresSecret && binding.SharedSecret != "" {
		req.Header.Set(pluginSharedSecretHeader, binding.SharedSecret)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("polling plugin bridge tools: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &ErrUpstreamUnavailable{Status: resp.StatusCode, Body: string(body)}
	}

	var decoded struct {
		Hash string `json:"hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding tools poll response: %w", err)
	}
	return decoded.Hash, nil
}
