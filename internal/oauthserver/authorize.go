package oauthserver

import (
	"net/http"
	"time"

	"github.com/daichi-629/obsiscripta-mcp/pkg/logging"
	"github.com/daichi-629/obsiscripta-mcp/pkg/pkce"
)

// handleAuthorize implements GET /oauth/authorize. It validates the client
// and redirect, mints a PendingAuth keyed by a fresh upstream state token,
// and redirects the browser to the upstream IdP.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clientID := q.Get("client_id")
	redirectURI := q.Get("redirect_uri")
	responseType := q.Get("response_type")
	codeChallenge := q.Get("code_challenge")
	codeChallengeMethod := q.Get("code_challenge_method")
	clientState := q.Get("state")
	scope := q.Get("scope")

	if clientID == "" || redirectURI == "" || codeChallenge == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "client_id, redirect_uri, and code_challenge are required")
		return
	}
	if responseType != "code" {
		writeErrorJSON(w, http.StatusBadRequest, "unsupported_response_type", "only response_type=code is supported")
		return
	}
	if codeChallengeMethod != "S256" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "only code_challenge_method=S256 is supported")
		return
	}

	client, err := s.store.GetClient(clientID)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_client", err.Error())
		return
	}
	if !client.HasRedirectURI(redirectURI) {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "redirect_uri is not registered for this client")
		return
	}

	upstreamState, err := pkce.NewToken()
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "server_error", "failed to mint upstream state")
		return
	}

	upstreamVerifier, upstreamChallenge, err := pkce.GenerateRaw()
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "server_error", "failed to generate upstream PKCE challenge")
		return
	}

	now := time.Now()
	s.store.SavePendingAuth(&PendingAuth{
		UpstreamState:        upstreamState,
		ClientID:             clientID,
		RedirectURI:          redirectURI,
		Scope:                scope,
		CodeChallenge:        codeChallenge,
		ClientState:          clientState,
		UpstreamCodeVerifier: upstreamVerifier,
		CreatedAt:            now,
		ExpiresAt:            now.Add(PendingAuthTTL),
	})

	logging.Audit(logging.AuditEvent{Action: "oauth_authorize", Outcome: "redirect", Details: "client=" + clientID})

	http.Redirect(w, r, s.upstream.AuthCodeURL(upstreamState, upstreamChallenge), http.StatusFound)
}
