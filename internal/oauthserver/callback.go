package oauthserver

import (
	"net/http"
	"net/url"
	"time"

	"github.com/daichi-629/obsiscripta-mcp/pkg/logging"
	"github.com/daichi-629/obsiscripta-mcp/pkg/pkce"
)

// handleUpstreamCallback implements GET /oauth/{idp}/callback (mounted at
// /oauth/upstream/callback here, a single-upstream deployment). It
// exchanges the upstream code, resolves the user, mints an internal
// AuthorizationCode, and redirects back to the client's registered
// redirect URI.
func (s *Server) handleUpstreamCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	state := q.Get("state")

	if code == "" || state == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "code and state are required")
		return
	}

	pending, err := s.store.ConsumePendingAuth(state)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	upstreamToken, err := s.upstream.Exchange(r.Context(), code, pending.UpstreamCodeVerifier)
	if err != nil {
		logging.Error("OAuthServer", err, "upstream token exchange failed")
		s.redirectWithError(w, r, pending.RedirectURI, pending.ClientState, "server_error")
		return
	}

	profile, err := s.upstream.FetchProfile(r.Context(), upstreamToken)
	if err != nil {
		logging.Error("OAuthServer", err, "fetching upstream profile failed")
		s.redirectWithError(w, r, pending.RedirectURI, pending.ClientState, "server_error")
		return
	}

	authCode, err := pkce.NewToken()
	if err != nil {
		s.redirectWithError(w, r, pending.RedirectURI, pending.ClientState, "server_error")
		return
	}

	s.store.SaveCode(&AuthorizationCode{
		Code:                authCode,
		ClientID:            pending.ClientID,
		RedirectURI:         pending.RedirectURI,
		Scope:               pending.Scope,
		CodeChallenge:       pending.CodeChallenge,
		UpstreamAccessToken: upstreamToken.AccessToken,
		UserID:              profile.UserID,
		ExpiresAt:           time.Now().Add(AuthorizationCodeTTL),
	})

	logging.Audit(logging.AuditEvent{Action: "oauth_callback", Outcome: "success", UserID: profile.UserID})

	redirectURL, err := url.Parse(pending.RedirectURI)
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "server_error", "invalid stored redirect_uri")
		return
	}
	q2 := redirectURL.Query()
	q2.Set("code", authCode)
	if pending.ClientState != "" {
		q2.Set("state", pending.ClientState)
	}
	redirectURL.RawQuery = q2.Encode()

	http.Redirect(w, r, redirectURL.String(), http.StatusFound)
}

func (s *Server) redirectWithError(w http.ResponseWriter, r *http.Request, redirectURI, clientState, errorCode string) {
	redirectURL, err := url.Parse(redirectURI)
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "server_error", "invalid stored redirect_uri")
		return
	}
	q := redirectURL.Query()
	q.Set("error", errorCode)
	if clientState != "" {
		q.Set("state", clientState)
	}
	redirectURL.RawQuery = q.Encode()
	http.Redirect(w, r, redirectURL.String(), http.StatusFound)
}
