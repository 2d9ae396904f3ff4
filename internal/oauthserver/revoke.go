package oauthserver

import "net/http"

// handleRevoke implements POST /oauth/revoke (RFC 7009). Always returns 200
// with an empty JSON body, never disclosing whether the token existed.
func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "invalid_request", "only POST is supported")
		return
	}

	params, err := parseTokenRequestBody(r)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if token := params.Get("token"); token != "" {
		s.store.RevokeAccessToken(token)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{})
}
