package pluginbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daichi-629/obsiscripta-mcp/internal/mcpsession"
	"github.com/daichi-629/obsiscripta-mcp/internal/toolregistry"
)

func pingHandler(ctx context.Context, args map[string]interface{}, host *toolregistry.HostContext) (*toolregistry.CallResult, error) {
	return &toolregistry.CallResult{Content: []toolregistry.ContentItem{toolregistry.Text("pong")}}, nil
}

func TestHealth(t *testing.T) {
	registry := toolregistry.New()
	sessions := mcpsession.New(time.Minute, 0)
	defer sessions.Stop()

	b := New(Config{}, registry, sessions)
	server := httptest.NewServer(b.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestV1Tools_PublishesFingerprint(t *testing.T) {
	registry := toolregistry.New()
	require.NoError(t, registry.Register(&toolregistry.ToolDefinition{Name: "ping", Handler: pingHandler}, toolregistry.SourceBuiltin))

	sessions := mcpsession.New(time.Minute, 0)
	defer sessions.Stop()

	b := New(Config{}, registry, sessions)
	server := httptest.NewServer(b.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/bridge/v1/tools")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestV1Call_BodyTooLarge(t *testing.T) {
	registry := toolregistry.New()
	sessions := mcpsession.New(time.Minute, 0)
	defer sessions.Stop()

	b := New(Config{}, registry, sessions)
	server := httptest.NewServer(b.Handler())
	defer server.Close()

	oversized := bytes.Repeat([]byte("a"), maxV1BodyBytes+10)
	resp, err := http.Post(server.URL+"/bridge/v1/tools/ping/call", "application/json", bytes.NewReader(oversized))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestV1Call_ToolNotFound(t *testing.T) {
	registry := toolregistry.New()
	sessions := mcpsession.New(time.Minute, 0)
	defer sessions.Stop()

	b := New(Config{}, registry, sessions)
	server := httptest.NewServer(b.Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+"/bridge/v1/tools/missing/call", "application/json", bytes.NewReader([]byte(`{"arguments":{}}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded callResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.True(t, decoded.IsError)
	assert.False(t, decoded.Success)
	require.Len(t, decoded.Content, 1)
	assert.Equal(t, "Error: Tool 'missing' not found", decoded.Content[0].Text)
}

func TestV1Call_ExecutesTool(t *testing.T) {
	registry := toolregistry.New()
	require.NoError(t, registry.Register(&toolregistry.ToolDefinition{Name: "ping", Handler: pingHandler}, toolregistry.SourceBuiltin))

	sessions := mcpsession.New(time.Minute, 0)
	defer sessions.Stop()

	b := New(Config{}, registry, sessions)
	server := httptest.NewServer(b.Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+"/bridge/v1/tools/ping/call", "application/json", bytes.NewReader([]byte(`{"arguments":{}}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMCPEndpoint_RejectsMissingAPIKey(t *testing.T) {
	registry := toolregistry.New()
	sessions := mcpsession.New(time.Minute, 0)
	defer sessions.Stop()

	b := New(Config{APIKey: "secret"}, registry, sessions)
	server := httptest.NewServer(b.Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+"/mcp", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
