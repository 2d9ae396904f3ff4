package oauthserver

import (
	"net/http"
	"time"

	"github.com/daichi-629/obsiscripta-mcp/pkg/pkce"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope,omitempty"`
}

// handleToken implements POST /oauth/token for both supported grant types.
// Accepts JSON or application/x-www-form-urlencoded bodies.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "invalid_request", "only POST is supported")
		return
	}

	params, err := parseTokenRequestBody(r)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	switch params.Get("grant_type") {
	case "authorization_code":
		s.handleAuthorizationCodeGrant(w, params)
	case "refresh_token":
		s.handleRefreshTokenGrant(w, params)
	default:
		writeErrorJSON(w, http.StatusBadRequest, "unsupported_grant_type", "grant_type must be authorization_code or refresh_token")
	}
}

func (s *Server) handleAuthorizationCodeGrant(w http.ResponseWriter, params formValues) {
	code := params.Get("code")
	redirectURI := params.Get("redirect_uri")
	clientID := params.Get("client_id")
	clientSecret := params.Get("client_secret")
	codeVerifier := params.Get("code_verifier")

	if code == "" || redirectURI == "" || clientID == "" || codeVerifier == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "code, redirect_uri, client_id, and code_verifier are required")
		return
	}

	client, err := s.store.GetClient(clientID)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_client", err.Error())
		return
	}
	if client.IsConfidential() && client.ClientSecret != clientSecret {
		writeErrorJSON(w, http.StatusUnauthorized, "invalid_client", "client_secret mismatch")
		return
	}

	authCode, err := s.store.ConsumeCode(code)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_grant", err.Error())
		return
	}
	if authCode.ClientID != clientID || authCode.RedirectURI != redirectURI {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_grant", "client_id or redirect_uri does not match the authorization code")
		return
	}
	if pkce.ChallengeFromVerifier(codeVerifier) != authCode.CodeChallenge {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_grant", "code_verifier does not match code_challenge")
		return
	}

	s.issueTokenPair(w, clientID, authCode.Scope, authCode.UserID)
}

func (s *Server) handleRefreshTokenGrant(w http.ResponseWriter, params formValues) {
	refreshToken := params.Get("refresh_token")
	clientID := params.Get("client_id")
	clientSecret := params.Get("client_secret")

	if refreshToken == "" || clientID == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "refresh_token and client_id are required")
		return
	}

	client, err := s.store.GetClient(clientID)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_client", err.Error())
		return
	}
	if client.IsConfidential() && client.ClientSecret != clientSecret {
		writeErrorJSON(w, http.StatusUnauthorized, "invalid_client", "client_secret mismatch")
		return
	}

	old, err := s.store.ConsumeRefreshToken(refreshToken)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_grant", err.Error())
		return
	}
	if old.ClientID != clientID {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_grant", "client_id does not match the refresh token")
		return
	}

	s.issueTokenPair(w, clientID, old.Scope, old.UserID)
}

// issueTokenPair mints a new AccessToken/RefreshToken pair and writes the
// RFC 6749 token response.
func (s *Server) issueTokenPair(w http.ResponseWriter, clientID, scope, userID string) {
	accessToken, err := pkce.NewToken()
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "server_error", "failed to mint access_token")
		return
	}
	refreshToken, err := pkce.NewToken()
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "server_error", "failed to mint refresh_token")
		return
	}

	s.store.SaveAccessToken(&AccessToken{
		Token:     accessToken,
		ClientID:  clientID,
		Scope:     scope,
		UserID:    userID,
		ExpiresAt: time.Now().Add(AccessTokenTTL),
	})
	s.store.SaveRefreshToken(&RefreshToken{
		Token:           refreshToken,
		ClientID:        clientID,
		Scope:           scope,
		UserID:          userID,
		LastAccessToken: accessToken,
	})

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(AccessTokenTTL.Seconds()),
		RefreshToken: refreshToken,
		Scope:        scope,
	})
}
