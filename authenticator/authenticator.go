package authenticator

import (
	"context"

	"github.com/blogem/entra-sso/models"
)

// ProviderMetadata holds the endpoints discovered from the issuer.
// It is fetched once at startup and never refreshed.
type ProviderMetadata struct {
	Issuer                string
	AuthorizationEndpoint string
	TokenEndpoint         string
	UserInfoEndpoint      string
}

// Claims represents the user claims returned by the userinfo endpoint
type Claims map[string]interface{}

// AuthorizationURLBuilder builds the browser redirect that starts a login
type AuthorizationURLBuilder interface {
	AuthURL(req AuthRequest) string
}

// TokenExchanger redeems an authorization code at the token endpoint
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code string, nonce string) (*models.TokenRecord, error)
}

// UserInfoFetcher retrieves the claims of the user owning an access token
type UserInfoFetcher interface {
	UserInfo(ctx context.Context, token *models.TokenRecord) (Claims, error)
}

// Provider interface abstracts the identity provider operations used by the login flow
type Provider interface {
	AuthorizationURLBuilder
	TokenExchanger
	UserInfoFetcher
	Metadata() ProviderMetadata
}
