package authenticator

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/blogem/entra-sso/models"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Tenant aliases that accept users from several directories. Their discovery
// document reports an issuer with a {tenantid} placeholder.
var multiTenantAliases = map[string]bool{
	"common":        true,
	"organizations": true,
	"consumers":     true,
}

var tenantGUID = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// MicrosoftProvider implements the Provider interface for the Microsoft identity platform
type MicrosoftProvider struct {
	provider     *oidc.Provider
	verifier     *oidc.IDTokenVerifier
	issuer       string
	config       oauth2.Config
	metadata     ProviderMetadata
	responseMode string
	httpClient   *http.Client
	now          func() time.Time
}

// MicrosoftConfig holds the app registration and endpoints for a tenant
type MicrosoftConfig struct {
	IssuerURL    string
	TenantID     string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	ResponseMode string
	HTTPClient   *http.Client
}

// NewMicrosoftProvider runs OpenID discovery against the issuer and returns a
// provider bound to the discovered endpoints
func NewMicrosoftProvider(ctx context.Context, cfg MicrosoftConfig) (Provider, error) {
	const op = "authenticator.NewMicrosoftProvider"

	// Validate required configuration
	if cfg.IssuerURL == "" {
		return nil, errors.New("issuer URL is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(30 * time.Second)
	}
	ctx = oidc.ClientContext(ctx, httpClient)

	// Only a tenant GUID appears verbatim in the issuer. Aliases and domain
	// names are discovered under the name they were given.
	multiTenant := multiTenantAliases[strings.ToLower(cfg.TenantID)]
	byName := !tenantGUID.MatchString(cfg.TenantID)
	if byName {
		ctx = oidc.InsecureIssuerURLContext(ctx, cfg.IssuerURL)
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, &ProviderError{Op: op, Kind: ErrDiscovery, Err: err}
	}

	var extra struct {
		Issuer      string `json:"issuer"`
		UserInfoURL string `json:"userinfo_endpoint"`
	}
	if err := provider.Claims(&extra); err != nil {
		return nil, &ProviderError{Op: op, Kind: ErrDiscovery, Err: err}
	}

	endpoint := provider.Endpoint()
	metadata := ProviderMetadata{
		Issuer:                extra.Issuer,
		AuthorizationEndpoint: endpoint.AuthURL,
		TokenEndpoint:         endpoint.TokenURL,
		UserInfoEndpoint:      extra.UserInfoURL,
	}
	if metadata.Issuer == "" {
		metadata.Issuer = cfg.IssuerURL
	}
	if metadata.AuthorizationEndpoint == "" || metadata.TokenEndpoint == "" || metadata.UserInfoEndpoint == "" {
		return nil, &ProviderError{Op: op, Kind: ErrDiscovery, Body: "discovery document is missing an endpoint"}
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	conf := oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   endpoint.AuthURL,
			TokenURL:  endpoint.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: scopes,
	}

	// go-oidc compares id_token issuers with the discovery URL. For a domain
	// tenant the token carries the GUID issuer reported by discovery, which
	// ExchangeCode checks instead. Multi-tenant aliases have no fixed issuer.
	verifier := provider.Verifier(&oidc.Config{
		ClientID:        cfg.ClientID,
		SkipIssuerCheck: byName,
	})
	var issuer string
	if byName && !multiTenant {
		issuer = metadata.Issuer
	}

	return &MicrosoftProvider{
		provider:     provider,
		verifier:     verifier,
		issuer:       issuer,
		config:       conf,
		metadata:     metadata,
		responseMode: cfg.ResponseMode,
		httpClient:   httpClient,
		now:          time.Now,
	}, nil
}

// Metadata returns the endpoints discovered at startup
func (p *MicrosoftProvider) Metadata() ProviderMetadata {
	return p.metadata
}

// AuthURL returns the authorization URL carrying the request's state and nonce
func (p *MicrosoftProvider) AuthURL(req AuthRequest) string {
	opts := []oauth2.AuthCodeOption{oidc.Nonce(req.Nonce)}
	if p.responseMode != "" {
		opts = append(opts, oauth2.SetAuthURLParam("response_mode", p.responseMode))
	}
	return p.config.AuthCodeURL(req.State, opts...)
}

// ExchangeCode exchanges an authorization code for tokens. When the provider
// returns an id_token its signature, audience and nonce are checked.
func (p *MicrosoftProvider) ExchangeCode(ctx context.Context, code string, nonce string) (*models.TokenRecord, error) {
	const op = "MicrosoftProvider.ExchangeCode"
	if code == "" {
		return nil, &ProviderError{Op: op, Kind: ErrTokenExchange, Body: "authorization code is empty"}
	}

	ctx = oidc.ClientContext(ctx, p.httpClient)
	issuedAt := p.now()

	oauth2Token, err := p.config.Exchange(ctx, code)
	if err != nil {
		pErr := &ProviderError{Op: op, Kind: ErrTokenExchange, Err: err}
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) {
			pErr.Body = string(rErr.Body)
			if rErr.Response != nil {
				pErr.StatusCode = rErr.Response.StatusCode
			}
		}
		return nil, pErr
	}

	// Convert oauth2.Token to our TokenRecord type
	token := &models.TokenRecord{
		AccessToken:  oauth2Token.AccessToken,
		TokenType:    oauth2Token.Type(),
		RefreshToken: oauth2Token.RefreshToken,
		IssuedAt:     issuedAt,
	}
	switch {
	case oauth2Token.ExpiresIn > 0:
		token.ExpiresAt = issuedAt.Add(time.Duration(oauth2Token.ExpiresIn) * time.Second)
	case !oauth2Token.Expiry.IsZero():
		token.ExpiresAt = oauth2Token.Expiry
	}

	// Extract ID token if present
	if idToken, ok := oauth2Token.Extra("id_token").(string); ok && idToken != "" {
		verified, err := p.verifier.Verify(ctx, idToken)
		if err != nil {
			return nil, &ProviderError{Op: op, Kind: ErrTokenExchange, Err: err}
		}
		if p.issuer != "" && verified.Issuer != p.issuer {
			return nil, &ProviderError{Op: op, Kind: ErrTokenExchange, Body: "id_token issuer " + verified.Issuer + " does not match " + p.issuer}
		}
		if nonce != "" && verified.Nonce != nonce {
			return nil, &ProviderError{Op: op, Kind: ErrTokenExchange, Body: "id_token nonce does not match"}
		}
		token.IDToken = idToken
	}

	return token, nil
}

// UserInfo fetches the claims of the token's owner from the userinfo endpoint
func (p *MicrosoftProvider) UserInfo(ctx context.Context, token *models.TokenRecord) (Claims, error) {
	const op = "MicrosoftProvider.UserInfo"
	if token == nil || token.AccessToken == "" {
		return nil, &ProviderError{Op: op, Kind: ErrUserInfo, Body: "access token is empty"}
	}

	ctx = oidc.ClientContext(ctx, p.httpClient)
	source := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
	})

	userInfo, err := p.provider.UserInfo(ctx, source)
	if err != nil {
		return nil, &ProviderError{Op: op, Kind: ErrUserInfo, Err: err}
	}

	var claims Claims
	if err := userInfo.Claims(&claims); err != nil {
		return nil, &ProviderError{Op: op, Kind: ErrUserInfo, Err: err}
	}
	if sub, _ := claims["sub"].(string); sub == "" {
		return nil, &ProviderError{Op: op, Kind: ErrUserInfo, Body: "userinfo response has no sub claim"}
	}

	return claims, nil
}
