// Package idptest runs a disposable identity provider and Graph API for tests.
// It serves OpenID discovery, the token and userinfo endpoints of a single
// tenant, and the handful of Graph routes the application proxies.
package idptest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/coreos/go-oidc/v3/oidc/oidctest"
	"github.com/go-chi/chi/v5"
	jose "github.com/go-jose/go-jose/v4"
)

// Defaults used when a test does not override them
const (
	DefaultTenant       = "contoso"
	DefaultClientID     = "11111111-2222-3333-4444-555555555555"
	DefaultClientSecret = "test-secret"
	DefaultAuthCode     = "abc"
	DefaultAccessToken  = "access-token-1"
	DefaultRefreshToken = "refresh-token-1"
	DefaultSubject      = "alice-sub"
	SigningKeyID        = "idptest-key-1"
)

var (
	keysOnce   sync.Once
	signingKey *rsa.PrivateKey
	unknownKey *rsa.PrivateKey
)

// loadKeys generates the RSA keys shared by every provider in the test binary
func loadKeys() {
	keysOnce.Do(func() {
		var err error
		if signingKey, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
			panic("idptest: generating signing key: " + err.Error())
		}
		if unknownKey, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
			panic("idptest: generating signing key: " + err.Error())
		}
	})
}

// TokenRequest is a recorded call to the token endpoint
type TokenRequest struct {
	Form url.Values
}

// TestProvider is a local identity provider and Graph server
type TestProvider struct {
	httpServer *httptest.Server
	tenant     string

	mu                sync.Mutex
	clientID          string
	clientSecret      string
	expectedAuthCode  string
	accessToken       string
	expiresIn         int
	userInfo          map[string]interface{}
	tokenStatus       int
	tokenErrorBody    string
	userInfoStatus    int
	photo             []byte
	calendarEvents    []map[string]interface{}
	calendarStatus    int
	tokenRequests     []TokenRequest
	lastCalendarQuery url.Values

	// id_token settings; no id_token is issued until IssueIDToken is called
	issueIDToken   bool
	idTokenNonce   string
	idTokenIssuer  string
	issuerTenant   string
	signUnknownKey bool
}

// StartTestProvider starts a provider for DefaultTenant and stops it when the test ends
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	return StartTestProviderForTenant(t, DefaultTenant)
}

// StartTestProviderForTenant starts a provider serving tenant, which may be a
// GUID, a domain name or a multi-tenant alias
func StartTestProviderForTenant(t *testing.T, tenant string) *TestProvider {
	t.Helper()
	loadKeys()

	p := &TestProvider{
		tenant:           tenant,
		clientID:         DefaultClientID,
		clientSecret:     DefaultClientSecret,
		expectedAuthCode: DefaultAuthCode,
		accessToken:      DefaultAccessToken,
		expiresIn:        3600,
		userInfo: map[string]interface{}{
			"sub":                DefaultSubject,
			"name":               "Alice Example",
			"email":              "alice@contoso.example",
			"preferred_username": "alice@contoso.example",
		},
		photo: []byte{0xff, 0xd8, 0xff, 0xe0},
		calendarEvents: []map[string]interface{}{
			{"subject": "Standup", "start": map[string]interface{}{"dateTime": "2026-10-19T09:00:00"}},
		},
	}

	r := chi.NewRouter()
	r.Get("/{tenant}/v2.0/.well-known/openid-configuration", p.discovery)
	r.Get("/{tenant}/discovery/v2.0/keys", p.keys)
	r.Post("/{tenant}/oauth2/v2.0/token", p.token)
	r.Get("/oidc/userinfo", p.userinfo)
	r.Get("/v1.0/me", p.graphMe)
	r.Get("/v1.0/me/photo/$value", p.graphPhoto)
	r.Get("/v1.0/me/calendar/events", p.graphCalendar)

	p.httpServer = httptest.NewServer(r)
	t.Cleanup(p.httpServer.Close)
	return p
}

// Addr returns the base URL of the server; use it as the authority host
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// Tenant returns the tenant served by the provider
func (p *TestProvider) Tenant() string { return p.tenant }

// IssuerURL returns the issuer for the served tenant
func (p *TestProvider) IssuerURL() string { return p.Addr() + "/" + p.tenant + "/v2.0" }

// ReportedIssuer returns the issuer announced by discovery and put in id_tokens
func (p *TestProvider) ReportedIssuer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reportedIssuer()
}

func (p *TestProvider) reportedIssuer() string {
	if p.issuerTenant != "" {
		return p.Addr() + "/" + p.issuerTenant + "/v2.0"
	}
	return p.IssuerURL()
}

// ReportIssuerTenant makes discovery announce the issuer of tenantID, the way
// a tenant looked up by domain name reports its GUID. Discovery is also served
// under tenantID.
func (p *TestProvider) ReportIssuerTenant(tenantID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issuerTenant = tenantID
}

// IssueIDToken makes the token endpoint return a signed id_token carrying nonce
func (p *TestProvider) IssueIDToken(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issueIDToken = true
	p.idTokenNonce = nonce
}

// SetIDTokenIssuer overrides the iss claim of issued id_tokens
func (p *TestProvider) SetIDTokenIssuer(issuer string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idTokenIssuer = issuer
}

// SignWithUnknownKey signs id_tokens with a key missing from the JWKS
func (p *TestProvider) SignWithUnknownKey() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signUnknownKey = true
}

// GraphURL returns the base URL of the fake Graph API
func (p *TestProvider) GraphURL() string { return p.Addr() + "/v1.0" }

// Client returns an HTTP client for the server
func (p *TestProvider) Client() *http.Client { return p.httpServer.Client() }

// SetExpiresIn sets the lifetime returned by the token endpoint
func (p *TestProvider) SetExpiresIn(seconds int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expiresIn = seconds
}

// SetUserInfo replaces the claims returned by the userinfo endpoint
func (p *TestProvider) SetUserInfo(claims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userInfo = claims
}

// FailTokenEndpoint makes the token endpoint answer with status and body
func (p *TestProvider) FailTokenEndpoint(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenStatus = status
	p.tokenErrorBody = body
}

// FailUserInfo makes the userinfo endpoint answer with status
func (p *TestProvider) FailUserInfo(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userInfoStatus = status
}

// FailCalendar makes the calendar route answer with status
func (p *TestProvider) FailCalendar(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calendarStatus = status
}

// RemovePhoto makes the photo route answer 404
func (p *TestProvider) RemovePhoto() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.photo = nil
}

// TokenRequests returns the recorded token endpoint calls
func (p *TestProvider) TokenRequests() []TokenRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TokenRequest, len(p.tokenRequests))
	copy(out, p.tokenRequests)
	return out
}

// LastCalendarQuery returns the query of the most recent calendar call
func (p *TestProvider) LastCalendarQuery() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCalendarQuery
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, status int, out interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(out)
}

func (p *TestProvider) discovery(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tenant := chi.URLParam(r, "tenant")
	if tenant != p.tenant && (p.issuerTenant == "" || tenant != p.issuerTenant) {
		http.NotFound(w, r)
		return
	}
	base := p.Addr() + "/" + p.tenant
	p.writeJSON(w, http.StatusOK, map[string]interface{}{
		"issuer":                                p.reportedIssuer(),
		"authorization_endpoint":                base + "/oauth2/v2.0/authorize",
		"token_endpoint":                        base + "/oauth2/v2.0/token",
		"userinfo_endpoint":                     p.Addr() + "/oidc/userinfo",
		"jwks_uri":                              base + "/discovery/v2.0/keys",
		"response_modes_supported":              []string{"query", "fragment", "form_post"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (p *TestProvider) keys(w http.ResponseWriter, r *http.Request) {
	p.writeJSON(w, http.StatusOK, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &signingKey.PublicKey,
		KeyID:     SigningKeyID,
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}})
}

// idToken signs the id_token returned with a successful code exchange
func (p *TestProvider) idToken() (string, error) {
	issuer := p.idTokenIssuer
	if issuer == "" {
		issuer = p.reportedIssuer()
	}
	now := time.Now()
	claims, err := json.Marshal(map[string]interface{}{
		"iss":   issuer,
		"aud":   p.clientID,
		"sub":   p.userInfo["sub"],
		"nonce": p.idTokenNonce,
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"name":  p.userInfo["name"],
	})
	if err != nil {
		return "", err
	}
	key := signingKey
	if p.signUnknownKey {
		key = unknownKey
	}
	return oidctest.SignIDToken(key, SigningKeyID, oidc.RS256, string(claims)), nil
}

func (p *TestProvider) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		p.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenRequests = append(p.tokenRequests, TokenRequest{Form: r.PostForm})

	if p.tokenStatus != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(p.tokenStatus)
		_, _ = w.Write([]byte(p.tokenErrorBody))
		return
	}

	switch {
	case r.PostForm.Get("grant_type") != "authorization_code":
		p.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	case r.PostForm.Get("client_id") != p.clientID || r.PostForm.Get("client_secret") != p.clientSecret:
		p.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
	case r.PostForm.Get("code") != p.expectedAuthCode:
		p.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "AADSTS70008: code is invalid"})
	default:
		resp := map[string]interface{}{
			"access_token":  p.accessToken,
			"token_type":    "Bearer",
			"expires_in":    p.expiresIn,
			"refresh_token": DefaultRefreshToken,
			"scope":         "openid profile email",
		}
		if p.issueIDToken {
			idToken, err := p.idToken()
			if err != nil {
				p.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
				return
			}
			resp["id_token"] = idToken
		}
		p.writeJSON(w, http.StatusOK, resp)
	}
}

func (p *TestProvider) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+p.accessToken
}

func (p *TestProvider) userinfo(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.userInfoStatus != 0 {
		p.writeJSON(w, p.userInfoStatus, map[string]string{"error": "server_error"})
		return
	}
	if !p.authorized(r) {
		p.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
		return
	}
	p.writeJSON(w, http.StatusOK, p.userInfo)
}

func (p *TestProvider) graphMe(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.authorized(r) {
		p.writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"error": map[string]string{"code": "InvalidAuthenticationToken"}})
		return
	}
	p.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":                p.userInfo["sub"],
		"displayName":       p.userInfo["name"],
		"mail":              p.userInfo["email"],
		"userPrincipalName": p.userInfo["preferred_username"],
		"jobTitle":          "Engineer",
	})
}

func (p *TestProvider) graphPhoto(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if p.photo == nil {
		p.writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": map[string]string{"code": "ImageNotFound"}})
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(p.photo)
}

func (p *TestProvider) graphCalendar(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastCalendarQuery = r.URL.Query()
	if !p.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if p.calendarStatus != 0 {
		p.writeJSON(w, p.calendarStatus, map[string]interface{}{"error": map[string]string{"code": "ErrorItemNotFound"}})
		return
	}
	p.writeJSON(w, http.StatusOK, map[string]interface{}{"value": p.calendarEvents})
}

// StateFromLocation extracts the state parameter from an authorization redirect
func StateFromLocation(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	return u.Query().Get("state")
}

// IsAuthorizeURL reports whether location points at the provider's authorization endpoint
func (p *TestProvider) IsAuthorizeURL(location string) bool {
	return strings.HasPrefix(location, p.Addr()+"/"+p.tenant+"/oauth2/v2.0/authorize?")
}
