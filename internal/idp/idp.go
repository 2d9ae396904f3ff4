// Package idp wraps the upstream identity provider round-trip the
// authorization server's /oauth/{idp}/callback handler drives: exchanging
// the upstream authorization code and resolving the profile of the user it
// belongs to.
package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// Profile is the minimal upstream identity the authorization server needs
// to bind an AuthorizationCode to a user.
type Profile struct {
	UserID string
	Email  string
}

// Provider exchanges an upstream authorization code and resolves the
// profile of its owner.
type Provider interface {
	// AuthCodeURL returns the upstream authorize URL for the given state.
	AuthCodeURL(state, codeChallenge string) string
	// Exchange trades the upstream code for an upstream access token,
	// presenting the PKCE verifier generated alongside the state.
	Exchange(ctx context.Context, code, codeVerifier string) (*oauth2.Token, error)
	// FetchProfile resolves the profile behind an upstream access token.
	FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error)
}

// OIDCProvider is a generic OAuth2/OIDC-shaped Provider built from a
// standard authorization-code config plus a userinfo endpoint.
type OIDCProvider struct {
	Config      *oauth2.Config
	UserInfoURL string
	HTTPClient  *http.Client
}

// NewOIDCProvider builds a Provider from an oauth2.Config and a userinfo
// endpoint returning a JSON object with "sub" and "email" fields.
func NewOIDCProvider(config *oauth2.Config, userInfoURL string) *OIDCProvider {
	return &OIDCProvider{Config: config, UserInfoURL: userInfoURL, HTTPClient: http.DefaultClient}
}

func (p *OIDCProvider) AuthCodeURL(state, codeChallenge string) string {
	return p.Config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (p *OIDCProvider) Exchange(ctx context.Context, code, codeVerifier string) (*oauth2.Token, error) {
	return p.Config.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", codeVerifier))
}

func (p *OIDCProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	token.SetAuthHeader(req)

	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching upstream profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream userinfo returned status %d", resp.StatusCode)
	}

	var body struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding upstream profile: %w", err)
	}
	if body.Sub == "" {
		return nil, fmt.Errorf("upstream profile missing sub claim")
	}

	return &Profile{UserID: body.Sub, Email: body.Email}, nil
}
