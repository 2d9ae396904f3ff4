package oauthserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/daichi-629/obsiscripta-mcp/pkg/pkce"
)

var registerValidate = validator.New()

type registerRequest struct {
	RedirectURIs            []string `json:"redirect_uris" validate:"required,min=1,dive,required"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	Scope                   string   `json:"scope"`
}

type registerResponse struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret,omitempty"`
	RedirectURIs            []string `json:"redirect_uris"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	Scope                   string   `json:"scope,omitempty"`
}

// handleRegister implements POST /oauth/register (RFC 7591).
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "invalid_request", "only POST is supported")
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_client_metadata", err.Error())
		return
	}
	if err := registerValidate.Struct(req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_client_metadata", err.Error())
		return
	}

	authMethod := TokenEndpointAuthMethod(req.TokenEndpointAuthMethod)
	if authMethod == "" {
		authMethod = AuthMethodNone
	}

	clientID, err := pkce.NewToken()
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "server_error", "failed to mint client_id")
		return
	}

	client := &OAuthClient{
		ClientID:                clientID,
		RedirectURIs:            req.RedirectURIs,
		TokenEndpointAuthMethod: authMethod,
		GrantTypes:              []string{"authorization_code", "refresh_token"},
		ResponseTypes:           []string{"code"},
		Scope:                   req.Scope,
		CreatedAt:               time.Now(),
	}

	if authMethod == AuthMethodClientSecretPost {
		secret, err := pkce.NewToken()
		if err != nil {
			writeErrorJSON(w, http.StatusInternalServerError, "server_error", "failed to mint client_secret")
			return
		}
		client.ClientSecret = secret
	}

	s.store.SaveClient(client)

	writeJSON(w, http.StatusCreated, registerResponse{
		ClientID:                client.ClientID,
		ClientSecret:            client.ClientSecret,
		RedirectURIs:            client.RedirectURIs,
		TokenEndpointAuthMethod: string(client.TokenEndpointAuthMethod),
		GrantTypes:              client.GrantTypes,
		ResponseTypes:           client.ResponseTypes,
		Scope:                   client.Scope,
	})
}
