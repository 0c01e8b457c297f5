package authenticator

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/blogem/entra-sso/idptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, idp *idptest.TestProvider) Provider {
	t.Helper()
	p, err := NewMicrosoftProvider(context.Background(), MicrosoftConfig{
		IssuerURL:    idp.IssuerURL(),
		TenantID:     idp.Tenant(),
		ClientID:     idptest.DefaultClientID,
		ClientSecret: idptest.DefaultClientSecret,
		RedirectURL:  "http://localhost:3000/auth/callback",
		Scopes:       []string{"openid", "profile", "email"},
		ResponseMode: "form_post",
		HTTPClient:   idp.Client(),
	})
	require.NoError(t, err)
	return p
}

func TestNewMicrosoftProvider_Discovery(t *testing.T) {
	idp := idptest.StartTestProvider(t)
	p := newTestProvider(t, idp)

	md := p.Metadata()
	assert.Equal(t, idp.IssuerURL(), md.Issuer)
	assert.Equal(t, idp.Addr()+"/contoso/oauth2/v2.0/authorize", md.AuthorizationEndpoint)
	assert.Equal(t, idp.Addr()+"/contoso/oauth2/v2.0/token", md.TokenEndpoint)
	assert.Equal(t, idp.Addr()+"/oidc/userinfo", md.UserInfoEndpoint)
}

func TestNewMicrosoftProvider_DiscoveryFailure(t *testing.T) {
	idp := idptest.StartTestProvider(t)

	_, err := NewMicrosoftProvider(context.Background(), MicrosoftConfig{
		IssuerURL:    idp.Addr() + "/unknown-tenant/v2.0",
		TenantID:     "unknown-tenant",
		ClientID:     idptest.DefaultClientID,
		ClientSecret: idptest.DefaultClientSecret,
		RedirectURL:  "http://localhost:3000/auth/callback",
		HTTPClient:   idp.Client(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDiscovery))
}

func TestNewMicrosoftProvider_MissingConfiguration(t *testing.T) {
	tests := []struct {
		name string
		cfg  MicrosoftConfig
		want string
	}{
		{"issuer", MicrosoftConfig{ClientID: "c", ClientSecret: "s", RedirectURL: "r"}, "issuer URL is required"},
		{"client id", MicrosoftConfig{IssuerURL: "i", ClientSecret: "s", RedirectURL: "r"}, "client ID is required"},
		{"secret", MicrosoftConfig{IssuerURL: "i", ClientID: "c", RedirectURL: "r"}, "client secret is required"},
		{"redirect", MicrosoftConfig{IssuerURL: "i", ClientID: "c", ClientSecret: "s"}, "redirect URL is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMicrosoftProvider(context.Background(), tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAuthURL(t *testing.T) {
	idp := idptest.StartTestProvider(t)
	p := newTestProvider(t, idp)

	req, err := NewAuthRequest()
	require.NoError(t, err)

	u, err := url.Parse(p.AuthURL(req))
	require.NoError(t, err)
	assert.Equal(t, idp.Addr()+"/contoso/oauth2/v2.0/authorize", u.Scheme+"://"+u.Host+u.Path)

	q := u.Query()
	assert.Equal(t, idptest.DefaultClientID, q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "http://localhost:3000/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "openid profile email", q.Get("scope"))
	assert.Equal(t, "form_post", q.Get("response_mode"))
	assert.Equal(t, req.State, q.Get("state"))
	assert.Equal(t, req.Nonce, q.Get("nonce"))
}

func TestExchangeCode(t *testing.T) {
	idp := idptest.StartTestProvider(t)
	p := newTestProvider(t, idp)

	token, err := p.ExchangeCode(context.Background(), idptest.DefaultAuthCode, "nonce")
	require.NoError(t, err)

	assert.Equal(t, idptest.DefaultAccessToken, token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, idptest.DefaultRefreshToken, token.RefreshToken)
	assert.InDelta(t, time.Hour.Seconds(), token.Lifetime().Seconds(), 5)
	assert.False(t, token.IsExpired(time.Now()))

	calls := idp.TokenRequests()
	require.Len(t, calls, 1)
	form := calls[0].Form
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, idptest.DefaultClientID, form.Get("client_id"))
	assert.Equal(t, idptest.DefaultClientSecret, form.Get("client_secret"))
	assert.Equal(t, "http://localhost:3000/auth/callback", form.Get("redirect_uri"))
	assert.Equal(t, idptest.DefaultAuthCode, form.Get("code"))
}

func TestExchangeCode_ProviderError(t *testing.T) {
	idp := idptest.StartTestProvider(t)
	idp.FailTokenEndpoint(http.StatusBadRequest, `{"error":"invalid_grant","error_description":"expired code"}`)
	p := newTestProvider(t, idp)

	_, err := p.ExchangeCode(context.Background(), "stale", "nonce")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTokenExchange))

	var pErr *ProviderError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, http.StatusBadRequest, pErr.StatusCode)
	assert.Contains(t, pErr.Body, "expired code")
}

func TestExchangeCode_EmptyCode(t *testing.T) {
	idp := idptest.StartTestProvider(t)
	p := newTestProvider(t, idp)

	_, err := p.ExchangeCode(context.Background(), "", "nonce")
	assert.True(t, errors.Is(err, ErrTokenExchange))
	assert.Empty(t, idp.TokenRequests())
}

func TestUserInfo(t *testing.T) {
	idp := idptest.StartTestProvider(t)
	p := newTestProvider(t, idp)

	token, err := p.ExchangeCode(context.Background(), idptest.DefaultAuthCode, "")
	require.NoError(t, err)

	claims, err := p.UserInfo(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, idptest.DefaultSubject, claims["sub"])
	assert.Equal(t, "Alice Example", claims["name"])
}

func TestUserInfo_Failure(t *testing.T) {
	idp := idptest.StartTestProvider(t)
	idp.FailUserInfo(http.StatusInternalServerError)
	p := newTestProvider(t, idp)

	token, err := p.ExchangeCode(context.Background(), idptest.DefaultAuthCode, "")
	require.NoError(t, err)

	_, err = p.UserInfo(context.Background(), token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUserInfo))
}

const (
	homeTenantGUID  = "72f988bf-86f1-41af-91ab-2d7cd011db47"
	otherTenantGUID = "9188040d-6c67-4c5b-b112-36a304b66dad"
)

func newTenantProvider(t *testing.T, idp *idptest.TestProvider, tenant string) (Provider, error) {
	t.Helper()
	return NewMicrosoftProvider(context.Background(), MicrosoftConfig{
		IssuerURL:    idp.Addr() + "/" + tenant + "/v2.0",
		TenantID:     tenant,
		ClientID:     idptest.DefaultClientID,
		ClientSecret: idptest.DefaultClientSecret,
		RedirectURL:  "http://localhost:3000/auth/callback",
		HTTPClient:   idp.Client(),
	})
}

func TestNewMicrosoftProvider_DomainTenant(t *testing.T) {
	idp := idptest.StartTestProviderForTenant(t, "contoso.onmicrosoft.com")
	idp.ReportIssuerTenant(homeTenantGUID)

	p, err := newTenantProvider(t, idp, "contoso.onmicrosoft.com")
	require.NoError(t, err)
	assert.Equal(t, idp.Addr()+"/"+homeTenantGUID+"/v2.0", p.Metadata().Issuer)

	idp.IssueIDToken("N1")
	token, err := p.ExchangeCode(context.Background(), idptest.DefaultAuthCode, "N1")
	require.NoError(t, err)
	assert.NotEmpty(t, token.IDToken)

	// tokens must still come from the tenant discovery resolved to
	idp.SetIDTokenIssuer(idp.Addr() + "/" + otherTenantGUID + "/v2.0")
	_, err = p.ExchangeCode(context.Background(), idptest.DefaultAuthCode, "N1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTokenExchange))
	assert.Contains(t, err.Error(), "issuer")
}

func TestNewMicrosoftProvider_GUIDTenant(t *testing.T) {
	idp := idptest.StartTestProviderForTenant(t, homeTenantGUID)

	p, err := newTenantProvider(t, idp, homeTenantGUID)
	require.NoError(t, err)
	assert.Equal(t, idp.IssuerURL(), p.Metadata().Issuer)

	idp.IssueIDToken("N1")
	_, err = p.ExchangeCode(context.Background(), idptest.DefaultAuthCode, "N1")
	require.NoError(t, err)

	idp.SetIDTokenIssuer(idp.Addr() + "/" + otherTenantGUID + "/v2.0")
	_, err = p.ExchangeCode(context.Background(), idptest.DefaultAuthCode, "N1")
	assert.True(t, errors.Is(err, ErrTokenExchange))
}

func TestNewMicrosoftProvider_GUIDTenantIssuerMismatch(t *testing.T) {
	idp := idptest.StartTestProviderForTenant(t, homeTenantGUID)
	idp.ReportIssuerTenant(otherTenantGUID)

	_, err := newTenantProvider(t, idp, homeTenantGUID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDiscovery))
}

func TestNewMicrosoftProvider_MultiTenantAlias(t *testing.T) {
	idp := idptest.StartTestProviderForTenant(t, "organizations")
	idp.ReportIssuerTenant("{tenantid}")

	p, err := newTenantProvider(t, idp, "organizations")
	require.NoError(t, err)

	// any directory may sign in through an alias
	idp.IssueIDToken("N1")
	for _, tenant := range []string{homeTenantGUID, otherTenantGUID} {
		idp.SetIDTokenIssuer(idp.Addr() + "/" + tenant + "/v2.0")
		_, err = p.ExchangeCode(context.Background(), idptest.DefaultAuthCode, "N1")
		assert.NoError(t, err, tenant)
	}
}

func TestExchangeCode_IDToken(t *testing.T) {
	tests := []struct {
		name       string
		nonce      string
		unknownKey bool
		wantErr    string
	}{
		{name: "matching nonce", nonce: "N1"},
		{name: "nonce mismatch", nonce: "OTHER", wantErr: "nonce does not match"},
		{name: "bad signature", nonce: "N1", unknownKey: true, wantErr: "signature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idp := idptest.StartTestProvider(t)
			idp.IssueIDToken("N1")
			if tt.unknownKey {
				idp.SignWithUnknownKey()
			}
			p := newTestProvider(t, idp)

			token, err := p.ExchangeCode(context.Background(), idptest.DefaultAuthCode, tt.nonce)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.NotEmpty(t, token.IDToken)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTokenExchange))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
