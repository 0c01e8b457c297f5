package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("CLIENT_ID", "11111111-2222-3333-4444-555555555555")
	t.Setenv("CLIENT_SECRET", "secret")
	t.Setenv("REDIRECT_URI", "http://localhost:3000/auth/callback")
	t.Setenv("TENANT_ID", "contoso")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "https://login.microsoftonline.com", cfg.OAuth.AuthorityHost)
	assert.Equal(t, "form_post", cfg.OAuth.ResponseMode)
	assert.Equal(t, []string{"openid", "profile", "email"}, cfg.OAuth.ScopeList())
	assert.Equal(t, 24*time.Hour, cfg.Session.Lifetime)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, TokenStoreMemory, cfg.Storage.TokenStore)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvFile(t *testing.T) {
	for _, key := range []string{"CLIENT_ID", "CLIENT_SECRET", "REDIRECT_URI", "TENANT_ID"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "CLIENT_ID=from-file\nCLIENT_SECRET=s3cret\nREDIRECT_URI=https://app.example.com/auth/callback\nTENANT_ID=fabrikam\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))
	t.Cleanup(func() {
		for _, key := range []string{"CLIENT_ID", "CLIENT_SECRET", "REDIRECT_URI", "TENANT_ID"} {
			os.Unsetenv(key)
		}
	})

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.OAuth.ClientID)
	assert.Equal(t, "fabrikam", cfg.OAuth.TenantID)
	assert.Equal(t, "https://login.microsoftonline.com/fabrikam/v2.0", cfg.OAuth.IssuerURL())
}

func TestValidate_ReportsAllMissingKeys(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{TokenStore: TokenStoreMemory},
		HTTP:    HTTPClientConfig{Timeout: time.Second},
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, key := range []string{"CLIENT_ID", "CLIENT_SECRET", "REDIRECT_URI", "TENANT_ID"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := &Config{
		OAuth: OAuthConfig{
			ClientID:     "id",
			ClientSecret: "secret",
			RedirectURI:  "/auth/callback",
			TenantID:     "contoso",
		},
		Storage: StorageConfig{TokenStore: "redis"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIRECT_URI must be an absolute URL")
	assert.Contains(t, err.Error(), "TOKEN_STORE")
	assert.Contains(t, err.Error(), "HTTP_CLIENT_TIMEOUT")
}

func TestIssuerURL_TrimsTrailingSlash(t *testing.T) {
	c := OAuthConfig{AuthorityHost: "https://login.example.com/", TenantID: "common"}
	assert.Equal(t, "https://login.example.com/common/v2.0", c.IssuerURL())
}

func TestValidate_ResponseMode(t *testing.T) {
	tests := []struct {
		mode    string
		wantErr bool
		warns   bool
	}{
		{mode: ResponseModeFormPost},
		{mode: ResponseModeQuery},
		{mode: ResponseModeFragment, warns: true},
		{mode: "form-post", wantErr: true},
		{mode: "web_message", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			cfg := &Config{
				OAuth: OAuthConfig{
					ClientID:     "id",
					ClientSecret: "secret",
					RedirectURI:  "http://localhost:3000/auth/callback",
					TenantID:     "contoso",
					ResponseMode: tt.mode,
				},
				Storage: StorageConfig{TokenStore: TokenStoreMemory},
				HTTP:    HTTPClientConfig{Timeout: time.Second},
			}

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "RESPONSE_MODE")
			} else {
				assert.NoError(t, err)
			}
			if tt.warns {
				assert.Len(t, cfg.Warnings(), 1)
			} else {
				assert.Empty(t, cfg.Warnings())
			}
		})
	}
}
