package idp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestFetchProfile_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer upstream-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"user-123","email":"alice@example.com"}`))
	}))
	defer server.Close()

	provider := NewOIDCProvider(&oauth2.Config{}, server.URL)
	profile, err := provider.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "upstream-token"})
	require.NoError(t, err)
	assert.Equal(t, "user-123", profile.UserID)
	assert.Equal(t, "alice@example.com", profile.Email)
}

func TestFetchProfile_MissingSub(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"email":"nosub@example.com"}`))
	}))
	defer server.Close()

	provider := NewOIDCProvider(&oauth2.Config{}, server.URL)
	_, err := provider.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "t"})
	require.Error(t, err)
}

func TestFetchProfile_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := NewOIDCProvider(&oauth2.Config{}, server.URL)
	_, err := provider.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "t"})
	require.Error(t, err)
}

func TestAuthCodeURL_IncludesPKCEParams(t *testing.T) {
	provider := NewOIDCProvider(&oauth2.Config{
		ClientID: "client1",
		Endpoint: oauth2.Endpoint{AuthURL: "https://idp.example.com/authorize"},
	}, "https://idp.example.com/userinfo")

	url := provider.AuthCodeURL("state1", "challenge1")
	assert.Contains(t, url, "code_challenge=challenge1")
	assert.Contains(t, url, "code_challenge_method=S256")
	assert.Contains(t, url, "state=state1")
}
