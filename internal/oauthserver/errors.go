package oauthserver

// ErrInvalidGrant is returned when an authorization code or refresh token
// is unknown, expired, or already consumed. Callers translate it to the
// RFC 6749 `invalid_grant` error response.
type ErrInvalidGrant struct {
	Reason string
}

func (e *ErrInvalidGrant) Error() string { return "invalid_grant: " + e.Reason }

// ErrClientNotFound is returned when a client_id does not match any
// registered OAuthClient.
type ErrClientNotFound struct {
	ClientID string
}

func (e *ErrClientNotFound) Error() string { return "client not found: " + e.ClientID }

// ErrRedirectMismatch is returned when a redirect_uri does not exactly
// match one of the client's registered values.
type ErrRedirectMismatch struct {
	RedirectURI string
}

func (e *ErrRedirectMismatch) Error() string { return "redirect_uri not registered: " + e.RedirectURI }

// ErrPendingAuthNotFound is returned when an upstream callback's state
// parameter does not match a live PendingAuth.
type ErrPendingAuthNotFound struct{}

func (e *ErrPendingAuthNotFound) Error() string { return "pending authorization not found or expired" }

// ErrUnconfiguredUser is returned when an authenticated user has no
// PluginToken bound, per the specification's global invariant.
type ErrUnconfiguredUser struct {
	UserID string
}

func (e *ErrUnconfiguredUser) Error() string { return "unconfigured user: " + e.UserID }
