package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daichi-629/obsiscripta-mcp/internal/idp"
	"github.com/daichi-629/obsiscripta-mcp/internal/mcpsession"
	"github.com/daichi-629/obsiscripta-mcp/internal/oauthserver"
	"golang.org/x/oauth2"
)

type noopProvider struct{}

func (noopProvider) AuthCodeURL(state, codeChallenge string) string { return "" }
func (noopProvider) Exchange(ctx context.Context, code, codeVerifier string) (*oauth2.Token, error) {
	return nil, nil
}
func (noopProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*idp.Profile, error) {
	return nil, nil
}

func newTestGatewayServer(t *testing.T) (*Server, *oauthserver.Server) {
	t.Helper()
	auth := oauthserver.New(oauthserver.Config{IssuerURL: "https://gateway.example.com", AdminSharedSecret: "admin-secret"}, noopProvider{})
	t.Cleanup(auth.Stop)

	sessions := mcpsession.New(30*time.Minute, mcpsession.DefaultMaxSessions)
	t.Cleanup(sessions.Stop)

	s := NewServer(auth, sessions, Config{})
	t.Cleanup(s.Stop)
	return s, auth
}

// initializeSession performs the opening initialize handshake and returns
// the session id the gateway minted for it.
func initializeSession(t *testing.T, baseURL, bearer string) string {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, baseURL+"/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sessionID := resp.Header.Get(sessionHeaderName)
	require.NotEmpty(t, sessionID)
	return sessionID
}

func TestGatewayHandler_RejectsMissingBearer(t *testing.T) {
	s, _ := newTestGatewayServer(t)
	server := httptest.NewServer(s.Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+"/mcp", "application/json", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGatewayHandler_MissingSessionHeaderNonInitializeIsRejected(t *testing.T) {
	s, auth := newTestGatewayServer(t)
	auth.Store().SaveAccessToken(&oauthserver.AccessToken{Token: "tok-1", UserID: "user-unbound", ExpiresAt: time.Now().Add(time.Hour)})

	server := httptest.NewServer(s.Handler())
	defer server.Close()

	req, err := http.NewRequest(http.MethodPost, server.URL+"/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer tok-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGatewayHandler_InitializeMintsSession(t *testing.T) {
	s, auth := newTestGatewayServer(t)
	auth.Store().SaveAccessToken(&oauthserver.AccessToken{Token: "tok-1", UserID: "user-unbound", ExpiresAt: time.Now().Add(time.Hour)})

	server := httptest.NewServer(s.Handler())
	defer server.Close()

	sessionID := initializeSession(t, server.URL, "tok-1")
	assert.NotEmpty(t, sessionID)
}

func TestGatewayHandler_DuplicateInitializeIsRejected(t *testing.T) {
	s, auth := newTestGatewayServer(t)
	auth.Store().SaveAccessToken(&oauthserver.AccessToken{Token: "tok-1", UserID: "user-unbound", ExpiresAt: time.Now().Add(time.Hour)})

	server := httptest.NewServer(s.Handler())
	defer server.Close()

	sessionID := initializeSession(t, server.URL, "tok-1")

	req, err := http.NewRequest(http.MethodPost, server.URL+"/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":2,"method":"initialize"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer tok-1")
	req.Header.Set(sessionHeaderName, sessionID)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGatewayHandler_NoPluginConfiguredStillAnswersToolsList(t *testing.T) {
	s, auth := newTestGatewayServer(t)
	auth.Store().SaveAccessToken(&oauthserver.AccessToken{Token: "tok-1", UserID: "user-unbound", ExpiresAt: time.Now().Add(time.Hour)})

	server := httptest.NewServer(s.Handler())
	defer server.Close()

	sessionID := initializeSession(t, server.URL, "tok-1")

	req, err := http.NewRequest(http.MethodPost, server.URL+"/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer tok-1")
	req.Header.Set(sessionHeaderName, sessionID)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, sessionID, resp.Header.Get(sessionHeaderName))
}

func TestGatewayHandler_UnknownSessionIDReturnsJSONRPCError(t *testing.T) {
	s, auth := newTestGatewayServer(t)
	auth.Store().SaveAccessToken(&oauthserver.AccessToken{Token: "tok-1", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)})

	server := httptest.NewServer(s.Handler())
	defer server.Close()

	req, err := http.NewRequest(http.MethodPost, server.URL+"/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer tok-1")
	req.Header.Set(sessionHeaderName, "does-not-exist")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGatewayHandler_DeleteTearsDownSession(t *testing.T) {
	s, auth := newTestGatewayServer(t)
	auth.Store().SaveAccessToken(&oauthserver.AccessToken{Token: "tok-1", UserID: "user-unbound", ExpiresAt: time.Now().Add(time.Hour)})

	server := httptest.NewServer(s.Handler())
	defer server.Close()

	sessionID := initializeSession(t, server.URL, "tok-1")

	delReq, err := http.NewRequest(http.MethodDelete, server.URL+"/mcp", nil)
	require.NoError(t, err)
	delReq.Header.Set("Authorization", "Bearer tok-1")
	delReq.Header.Set(sessionHeaderName, sessionID)
	delResp, err := http.DefaultClient.Do(delReq)
	require.NoError(t, err)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	// A subsequent request reusing the deleted session id is now unknown.
	req2, err := http.NewRequest(http.MethodPost, server.URL+"/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	require.NoError(t, err)
	req2.Header.Set("Authorization", "Bearer tok-1")
	req2.Header.Set(sessionHeaderName, sessionID)
	resp2, err := http.DefaultClient.Do(req2)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}
