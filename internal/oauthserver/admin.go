package oauthserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/daichi-629/obsiscripta-mcp/pkg/pkce"
)

// adminAuth enforces the admin API's own shared-secret bearer, distinct
// from the MCP bearer challenge: a missing secret is 401, a wrong one is
// 403, and the two are never confused with each other or with the MCP
// AuthMiddleware's 401 challenge (no WWW-Authenticate header is set here).
func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "

		if !strings.HasPrefix(header, prefix) {
			writeErrorJSON(w, http.StatusUnauthorized, "unauthorized", "missing admin bearer token")
			return
		}
		if strings.TrimPrefix(header, prefix) != s.config.AdminSharedSecret {
			writeErrorJSON(w, http.StatusForbidden, "forbidden", "invalid admin shared secret")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type pluginTokenRequest struct {
	DisplayName    string `json:"display_name" validate:"required"`
	PluginHost     string `json:"plugin_host" validate:"required"`
	PluginPort     int    `json:"plugin_port" validate:"required"`
	UserID         string `json:"user_id" validate:"required"`
	RequiresSecret bool   `json:"requires_secret"`
}

type pluginTokenResponse struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	SharedSecret   string `json:"shared_secret,omitempty"`
	PluginHost     string `json:"plugin_host"`
	PluginPort     int    `json:"plugin_port"`
	UserID         string `json:"user_id"`
	RequiresSecret bool   `json:"requires_secret"`
}

func toPluginTokenResponse(p *PluginToken, includeSecret bool) pluginTokenResponse {
	resp := pluginTokenResponse{
		ID:             p.ID,
		DisplayName:    p.DisplayName,
		PluginHost:     p.PluginHost,
		PluginPort:     p.PluginPort,
		UserID:         p.UserID,
		RequiresSecret: p.RequiresSecret,
	}
	if includeSecret {
		resp.SharedSecret = p.SharedSecret
	}
	return resp
}

// handlePluginTokensCollection handles GET/POST /admin/plugin-tokens.
func (s *Server) handlePluginTokensCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tokens := s.store.ListPluginTokens()
		out := make([]pluginTokenResponse, len(tokens))
		for i, t := range tokens {
			out[i] = toPluginTokenResponse(t, false)
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req pluginTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorJSON(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if err := registerValidate.Struct(req); err != nil {
			writeErrorJSON(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		id, err := pkce.NewToken()
		if err != nil {
			writeErrorJSON(w, http.StatusInternalServerError, "server_error", "failed to mint plugin token id")
			return
		}
		secret, err := pkce.NewToken()
		if err != nil {
			writeErrorJSON(w, http.StatusInternalServerError, "server_error", "failed to mint shared secret")
			return
		}

		token := &PluginToken{
			ID:             id,
			DisplayName:    req.DisplayName,
			SharedSecret:   secret,
			PluginHost:     req.PluginHost,
			PluginPort:     req.PluginPort,
			UserID:         req.UserID,
			RequiresSecret: req.RequiresSecret,
			CreatedAt:      time.Now(),
		}
		s.store.SavePluginToken(token)
		writeJSON(w, http.StatusCreated, toPluginTokenResponse(token, true))

	default:
		writeErrorJSON(w, http.StatusMethodNotAllowed, "invalid_request", "only GET and POST are supported")
	}
}

// handlePluginTokenItem handles GET and DELETE /admin/plugin-tokens/{id}.
func (s *Server) handlePluginTokenItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/admin/plugin-tokens/")
	if id == "" {
		writeErrorJSON(w, http.StatusNotFound, "not_found", "missing plugin token id")
		return
	}

	switch r.Method {
	case http.MethodDelete:
		s.store.DeletePluginToken(id)
		w.WriteHeader(http.StatusNoContent)

	case http.MethodGet:
		token, ok := s.store.GetPluginToken(id)
		if !ok {
			writeErrorJSON(w, http.StatusNotFound, "not_found", "plugin token not found")
			return
		}
		writeJSON(w, http.StatusOK, toPluginTokenResponse(token, false))

	default:
		writeErrorJSON(w, http.StatusMethodNotAllowed, "invalid_request", "only GET and DELETE are supported")
	}
}
