package oauthserver

import (
	"encoding/json"
	"net/http"
)

type protectedResourceMetadata struct {
	Resource             string   `json:"resource"`
	AuthorizationServers []string `json:"authorization_servers"`
	ScopesSupported      []string `json:"scopes_supported,omitempty"`
}

type authorizationServerMetadata struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	RegistrationEndpoint              string   `json:"registration_endpoint"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	ScopesSupported                   []string `json:"scopes_supported,omitempty"`
}

// handleProtectedResourceMetadata serves RFC 9728 discovery, naming this
// server as both the resource and its own authorization server.
func (s *Server) handleProtectedResourceMetadata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protectedResourceMetadata{
		Resource:             s.config.IssuerURL,
		AuthorizationServers: []string{s.config.IssuerURL},
		ScopesSupported:      s.config.Scopes,
	})
}

// handleAuthorizationServerMetadata serves RFC 8414 discovery.
func (s *Server) handleAuthorizationServerMetadata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, authorizationServerMetadata{
		Issuer:                            s.config.IssuerURL,
		AuthorizationEndpoint:             s.config.IssuerURL + "/oauth/authorize",
		TokenEndpoint:                     s.config.IssuerURL + "/oauth/token",
		RegistrationEndpoint:              s.config.IssuerURL + "/oauth/register",
		RevocationEndpoint:                s.config.IssuerURL + "/oauth/revoke",
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               []string{"authorization_code", "refresh_token"},
		CodeChallengeMethodsSupported:     []string{"S256"},
		TokenEndpointAuthMethodsSupported: []string{string(AuthMethodNone), string(AuthMethodClientSecretPost)},
		ScopesSupported:                   s.config.Scopes,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorJSON(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{"error": code, "error_description": description})
}
