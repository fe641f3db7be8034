package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validOAuthJSON = `{
  "installed": {
    "client_id": "support-match.apps.googleusercontent.com",
    "project_id": "support-match",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "auth_provider_x509_cert_url": "https://www.googleapis.com/oauth2/v1/certs",
    "client_secret": "test-secret",
    "redirect_uris": ["http://localhost"]
  }
}`

func validOAuthClient() *OAuthClientConfig {
	return &OAuthClientConfig{
		Installed: OAuthInstalled{
			ClientID:                "support-match.apps.googleusercontent.com",
			ProjectID:               "support-match",
			AuthURI:                 "https://accounts.google.com/o/oauth2/auth",
			TokenURI:                "https://oauth2.googleapis.com/token",
			AuthProviderX509CertURL: "https://www.googleapis.com/oauth2/v1/certs",
			ClientSecret:            "test-secret",
			RedirectURIs:            []string{"http://localhost"},
		},
	}
}

func TestValidateOAuthClient(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*OAuthClientConfig)
		wantErr bool
	}{
		{"valid", func(*OAuthClientConfig) {}, false},
		{"missing client id", func(c *OAuthClientConfig) { c.Installed.ClientID = "" }, true},
		{"bad auth uri", func(c *OAuthClientConfig) { c.Installed.AuthURI = "not-a-valid-url" }, true},
		{"no redirect uris", func(c *OAuthClientConfig) { c.Installed.RedirectURIs = nil }, true},
		{"bad redirect uri", func(c *OAuthClientConfig) { c.Installed.RedirectURIs = []string{"not a valid uri"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validOAuthClient()
			tt.mutate(cfg)
			err := ValidateOAuthClient(cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "validation failed")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadOAuthClientFromPath(t *testing.T) {
	path := writeFile(t, "oauthClient.json", validOAuthJSON)

	cfg, err := LoadOAuthClientFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "support-match", cfg.Installed.ProjectID)
	assert.Equal(t, []string{"http://localhost"}, cfg.Installed.RedirectURIs)
}

func TestLoadOAuthClientFromPath_InvalidJSON(t *testing.T) {
	path := writeFile(t, "oauthClient.json", `{"installed": {"client_id": "x" "project_id": "y"}}`)

	_, err := LoadOAuthClientFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse oauth client file")
}

func TestLoadOAuthClientWithEnv_PrefersConfigDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "oauthClient.staging.json"), []byte(validOAuthJSON), 0644))

	cfg, err := LoadOAuthClientWithEnv("staging", dir)
	require.NoError(t, err)
	assert.Equal(t, "test-secret", cfg.Installed.ClientSecret)
}

func TestOAuthFileName(t *testing.T) {
	assert.Equal(t, "oauthClient.json", oauthFileName(""))
	assert.Equal(t, "oauthClient.prod.json", oauthFileName("prod"))
}
