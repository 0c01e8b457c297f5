package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Token store backends
const (
	TokenStoreMemory = "memory"
	TokenStoreSQLite = "sqlite"
)

// Authorization response modes
const (
	ResponseModeFormPost = "form_post"
	ResponseModeQuery    = "query"
	ResponseModeFragment = "fragment"
)

// Config holds the application configuration read from the environment
type Config struct {
	OAuth   OAuthConfig
	Server  ServerConfig
	Session SessionConfig
	Storage StorageConfig
	Logging LoggingConfig
	Graph   GraphConfig
	HTTP    HTTPClientConfig
}

// OAuthConfig holds the identity provider registration
type OAuthConfig struct {
	ClientID      string `env:"CLIENT_ID" env-description:"Application (client) ID of the app registration"`
	ClientSecret  string `env:"CLIENT_SECRET" env-description:"Client secret of the app registration"`
	RedirectURI   string `env:"REDIRECT_URI" env-description:"Callback URL registered with the provider"`
	TenantID      string `env:"TENANT_ID" env-description:"Directory (tenant) ID, or common/organizations/consumers"`
	AuthorityHost string `env:"AUTHORITY_HOST" env-default:"https://login.microsoftonline.com" env-description:"Base URL of the identity provider"`
	Scopes        string `env:"SCOPES" env-default:"openid profile email" env-description:"Space separated scopes requested at login"`
	ResponseMode  string `env:"RESPONSE_MODE" env-default:"form_post" env-description:"How the provider returns the authorization response"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port           string        `env:"PORT" env-default:"3000" env-description:"HTTP listen port"`
	UseHTTPS       bool          `env:"USE_HTTPS" env-default:"false" env-description:"Mark session cookies secure"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" env-default:"60s" env-description:"Per request handler timeout"`
}

// SessionConfig holds browser session settings
type SessionConfig struct {
	CookieName string        `env:"SESSION_COOKIE_NAME" env-default:"entra_session" env-description:"Session cookie name"`
	Lifetime   time.Duration `env:"SESSION_LIFETIME" env-default:"24h" env-description:"Session lifetime"`
}

// StorageConfig selects the token cache backend and database location
type StorageConfig struct {
	TokenStore   string `env:"TOKEN_STORE" env-default:"memory" env-description:"Token cache backend: memory or sqlite"`
	DatabasePath string `env:"DATABASE_PATH" env-default:"entra_sso.db" env-description:"SQLite database file for the audit log and sqlite token store"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info" env-description:"debug, info, warn or error"`
	Format string `env:"LOG_FORMAT" env-default:"console" env-description:"console or json"`
}

// GraphConfig holds the downstream user API settings
type GraphConfig struct {
	BaseURL string `env:"GRAPH_API_BASE_URL" env-default:"https://graph.microsoft.com/v1.0" env-description:"Base URL of the Graph API"`
}

// HTTPClientConfig holds outbound HTTP settings
type HTTPClientConfig struct {
	Timeout time.Duration `env:"HTTP_CLIENT_TIMEOUT" env-default:"30s" env-description:"Timeout for calls to the identity provider and Graph"`
}

// Load reads the optional .env files and decodes the environment into a Config.
// It does not validate; call Validate before starting the OAuth subsystem.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &cfg, nil
}

// Validate reports every missing or malformed setting at once
func (c *Config) Validate() error {
	var result *multierror.Error

	required := map[string]string{
		"CLIENT_ID":     c.OAuth.ClientID,
		"CLIENT_SECRET": c.OAuth.ClientSecret,
		"REDIRECT_URI":  c.OAuth.RedirectURI,
		"TENANT_ID":     c.OAuth.TenantID,
	}
	for _, key := range []string{"CLIENT_ID", "CLIENT_SECRET", "REDIRECT_URI", "TENANT_ID"} {
		if strings.TrimSpace(required[key]) == "" {
			result = multierror.Append(result, fmt.Errorf("%s is required", key))
		}
	}

	if c.OAuth.RedirectURI != "" {
		if u, err := url.Parse(c.OAuth.RedirectURI); err != nil || u.Scheme == "" || u.Host == "" {
			result = multierror.Append(result, fmt.Errorf("REDIRECT_URI must be an absolute URL"))
		}
	}

	switch c.OAuth.ResponseMode {
	case "", ResponseModeFormPost, ResponseModeQuery, ResponseModeFragment:
	default:
		result = multierror.Append(result, fmt.Errorf("RESPONSE_MODE must be %q, %q or %q, got %q",
			ResponseModeFormPost, ResponseModeQuery, ResponseModeFragment, c.OAuth.ResponseMode))
	}

	switch c.Storage.TokenStore {
	case TokenStoreMemory, TokenStoreSQLite:
	default:
		result = multierror.Append(result, fmt.Errorf("TOKEN_STORE must be %q or %q, got %q", TokenStoreMemory, TokenStoreSQLite, c.Storage.TokenStore))
	}

	if c.HTTP.Timeout <= 0 {
		result = multierror.Append(result, errors.New("HTTP_CLIENT_TIMEOUT must be positive"))
	}

	return result.ErrorOrNil()
}

// Warnings lists settings that are valid but will not work as expected
func (c *Config) Warnings() []string {
	var warnings []string
	if c.OAuth.ResponseMode == ResponseModeFragment {
		warnings = append(warnings, "RESPONSE_MODE=fragment keeps the authorization code in the browser; the server-side callback will never receive it")
	}
	return warnings
}

// IssuerURL derives the OpenID issuer from the authority host and tenant
func (c OAuthConfig) IssuerURL() string {
	return strings.TrimRight(c.AuthorityHost, "/") + "/" + c.TenantID + "/v2.0"
}

// ScopeList splits the configured scopes on whitespace
func (c OAuthConfig) ScopeList() []string {
	return strings.Fields(c.Scopes)
}

// Usage returns a description of every supported environment variable
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return text
}
