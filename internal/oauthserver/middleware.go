package oauthserver

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const accessTokenContextKey contextKey = "oauthserver.access_token"

// AccessTokenFromContext returns the AccessToken attached by Middleware, or
// nil if the request was never authenticated (never happens once
// Middleware has run, since it rejects unauthenticated requests itself).
func AccessTokenFromContext(ctx context.Context) *AccessToken {
	token, _ := ctx.Value(accessTokenContextKey).(*AccessToken)
	return token
}

// Middleware enforces bearer-token authentication on /mcp. On success it
// attaches the resolved AccessToken to the request context for downstream
// handlers (the upstream router reads the bound user id from it).
func (s *Server) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "

		if !strings.HasPrefix(header, prefix) {
			w.Header().Set("WWW-Authenticate", buildBearerChallenge(s.config.protectedResourceMetadataURL(), ""))
			writeErrorJSON(w, http.StatusUnauthorized, "invalid_request", "missing bearer token")
			return
		}

		token := strings.TrimPrefix(header, prefix)
		accessToken, ok := s.store.GetAccessToken(token)
		if !ok {
			w.Header().Set("WWW-Authenticate", buildBearerChallenge(s.config.protectedResourceMetadataURL(), "invalid_token"))
			writeErrorJSON(w, http.StatusUnauthorized, "invalid_token", "token is invalid or expired")
			return
		}

		ctx := context.WithValue(r.Context(), accessTokenContextKey, accessToken)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
