package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/jakechorley/support-match/internal/config"
)

func TestGetOAuthConfig(t *testing.T) {
	cfg := &config.OAuthClientConfig{
		Installed: config.OAuthInstalled{
			ClientID:                "client-id",
			ProjectID:               "support-match",
			AuthURI:                 "https://accounts.google.com/o/oauth2/auth",
			TokenURI:                "https://oauth2.googleapis.com/token",
			AuthProviderX509CertURL: "https://www.googleapis.com/oauth2/v1/certs",
			ClientSecret:            "secret",
			RedirectURIs:            []string{"http://localhost"},
		},
	}

	oauthConfig, err := GetOAuthConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "client-id", oauthConfig.ClientID)
	assert.ElementsMatch(t, []string{ScopeGmailSend, ScopeSheets}, oauthConfig.Scopes)
	assert.Equal(t, "http://localhost:3000/oauth/callback", oauthConfig.RedirectURL)
}

func TestTokenStore_RoundTrip(t *testing.T) {
	store := &TokenStore{Dir: t.TempDir()}

	token, err := store.Load("test")
	require.NoError(t, err)
	assert.Nil(t, token)

	saved := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour).Truncate(time.Second)}
	require.NoError(t, store.Save("test", saved))

	loaded, err := store.Load("test")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "access", loaded.AccessToken)
	assert.Equal(t, "refresh", loaded.RefreshToken)
	assert.True(t, saved.Expiry.Equal(loaded.Expiry))

	require.NoError(t, store.Delete("test"))
	require.NoError(t, store.Delete("test"))
	loaded, err = store.Load("test")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestGetTokenWithFlow_UsesSavedToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"scope": ScopeGmailSend + " " + ScopeSheets})
	}))
	defer server.Close()

	original := tokenInfoURL
	tokenInfoURL = server.URL
	defer func() { tokenInfoURL = original }()
	ClearToken()
	defer ClearToken()

	store := &TokenStore{Dir: t.TempDir()}
	saved := &oauth2.Token{AccessToken: "access", Expiry: time.Now().Add(time.Hour)}
	require.NoError(t, store.Save("test", saved))

	token, err := GetTokenWithFlow(context.Background(), &oauth2.Config{}, store, "test", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "access", token.AccessToken)
}

func TestMissingScopes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.URL.Query().Get("access_token"))
		json.NewEncoder(w).Encode(map[string]string{"scope": ScopeGmailSend})
	}))
	defer server.Close()

	original := tokenInfoURL
	tokenInfoURL = server.URL
	defer func() { tokenInfoURL = original }()

	missing, err := missingScopes(context.Background(), &oauth2.Token{AccessToken: "abc"})
	require.NoError(t, err)
	assert.Equal(t, []string{ScopeSheets}, missing)
}
