package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blogem/entra-sso/authenticator"
	"github.com/blogem/entra-sso/models"
	"github.com/blogem/entra-sso/repositories"
	"go.uber.org/zap"
)

// CallbackParams are the fields the provider posts back to the redirect URI
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// AuthService interface defines the login flow and session binding
type AuthService interface {
	BeginLogin(sess SessionStore) (string, error)
	CompleteLogin(ctx context.Context, sess SessionStore, params CallbackParams) (*models.UserIdentity, error)
	Logout(sess SessionStore)
	CurrentUser(sess SessionStore) (models.UserIdentity, bool)
	TokenExpired(userID string) bool
	PopReturnTo(sess SessionStore) string
}

// authService implements AuthService interface
type authService struct {
	provider  authenticator.Provider
	tokenRepo repositories.TokenRepository
	auditRepo repositories.AuditRepository
	log       *zap.Logger
	now       func() time.Time
}

// NewAuthService creates a new auth service. provider may be nil, in which
// case every login attempt fails with authenticator.ErrNotInitialized.
func NewAuthService(provider authenticator.Provider, tokenRepo repositories.TokenRepository, auditRepo repositories.AuditRepository, log *zap.Logger) AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &authService{
		provider:  provider,
		tokenRepo: tokenRepo,
		auditRepo: auditRepo,
		log:       log,
		now:       time.Now,
	}
}

// BeginLogin stores a fresh state and nonce in the session and returns the
// authorization URL carrying them
func (s *authService) BeginLogin(sess SessionStore) (string, error) {
	if s.provider == nil {
		return "", authenticator.ErrNotInitialized
	}

	req, err := authenticator.NewAuthRequest()
	if err != nil {
		return "", err
	}

	if err := sess.Set(SessionKeyAuthState, req.State); err != nil {
		return "", fmt.Errorf("failed to store state in session: %w", err)
	}
	if err := sess.Set(SessionKeyAuthNonce, req.Nonce); err != nil {
		return "", fmt.Errorf("failed to store nonce in session: %w", err)
	}

	return s.provider.AuthURL(req), nil
}

// CompleteLogin validates the callback state, exchanges the code, fetches the
// user's claims, caches the token and binds the user to the session
func (s *authService) CompleteLogin(ctx context.Context, sess SessionStore, params CallbackParams) (*models.UserIdentity, error) {
	if s.provider == nil {
		return nil, authenticator.ErrNotInitialized
	}

	storedState := sessionString(sess, SessionKeyAuthState)
	nonce := sessionString(sess, SessionKeyAuthNonce)

	if err := authenticator.ValidateState(storedState, params.State); err != nil {
		s.recordFailure("", "state mismatch")
		return nil, err
	}

	// state and nonce are single use once validated
	s.clearAuthRequest(sess)

	if params.Error != "" {
		err := &authenticator.ProviderError{
			Op:   "AuthService.CompleteLogin",
			Kind: authenticator.ErrTokenExchange,
			Body: strings.TrimSpace(params.Error + ": " + params.ErrorDescription),
		}
		s.recordFailure("", err.Body)
		return nil, err
	}

	token, err := s.provider.ExchangeCode(ctx, params.Code, nonce)
	if err != nil {
		s.recordFailure("", err.Error())
		return nil, err
	}

	claims, err := s.provider.UserInfo(ctx, token)
	if err != nil {
		s.recordFailure("", err.Error())
		return nil, err
	}

	user := models.NewUserIdentity(authenticator.EnrichUserInfo(claims))
	if user.Sub == "" {
		err := &authenticator.ProviderError{Op: "AuthService.CompleteLogin", Kind: authenticator.ErrUserInfo, Body: "missing sub claim"}
		s.recordFailure("", err.Error())
		return nil, err
	}

	if err := s.tokenRepo.Store(user.Sub, token); err != nil {
		s.recordFailure(user.AuditName(), err.Error())
		return nil, fmt.Errorf("failed to cache token: %w", err)
	}

	if err := sess.Set(SessionKeyUser, user); err != nil {
		return nil, fmt.Errorf("failed to store user in session: %w", err)
	}
	if err := sess.Set(SessionKeyIsAuthenticated, true); err != nil {
		return nil, fmt.Errorf("failed to store authentication flag in session: %w", err)
	}

	s.log.Info("user logged in",
		zap.String("sub", user.Sub),
		zap.Duration("token_lifetime", token.Lifetime()),
		zap.Bool("refresh_token_present", token.RefreshToken != ""),
	)
	s.record(&models.AuditLogEntry{
		Event:     models.AuditEventLoginSucceeded,
		UserEmail: user.AuditName(),
		Path:      "/auth/callback",
	})

	return &user, nil
}

// Logout drops the user's cached token and authentication from the session.
// Destroying the session itself is left to the caller.
func (s *authService) Logout(sess SessionStore) {
	user, ok := sessionUserAny(sess)
	if ok {
		if err := s.tokenRepo.Delete(user.Sub); err != nil {
			s.log.Error("failed to delete cached token", zap.String("sub", user.Sub), zap.Error(err))
		}
	}

	for _, key := range []string{SessionKeyIsAuthenticated, SessionKeyUser, SessionKeyAuthState, SessionKeyAuthNonce, SessionKeyReturnTo} {
		if err := sess.Delete(key); err != nil {
			s.log.Warn("failed to delete session key", zap.String("key", key), zap.Error(err))
		}
	}

	if ok {
		s.record(&models.AuditLogEntry{
			Event:     models.AuditEventLogout,
			UserEmail: user.AuditName(),
			Path:      "/auth/logout",
		})
	}
}

// CurrentUser returns the authenticated user of the session
func (s *authService) CurrentUser(sess SessionStore) (models.UserIdentity, bool) {
	return SessionUser(sess)
}

// TokenExpired reports whether userID has a cached token that is expired.
// A missing token is not reported as expired.
func (s *authService) TokenExpired(userID string) bool {
	if userID == "" {
		return false
	}

	token, err := s.tokenRepo.Get(userID)
	if err != nil {
		if !errors.Is(err, repositories.ErrTokenNotFound) {
			s.log.Error("failed to read cached token", zap.String("sub", userID), zap.Error(err))
		}
		return false
	}

	return token.IsExpired(s.now())
}

// PopReturnTo returns and clears the destination saved before login. Only
// local absolute paths are returned.
func (s *authService) PopReturnTo(sess SessionStore) string {
	target := sessionString(sess, SessionKeyReturnTo)
	if target == "" {
		return ""
	}
	_ = sess.Delete(SessionKeyReturnTo)

	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return ""
	}
	if strings.HasPrefix(target, "/auth/") {
		return ""
	}
	return target
}

func (s *authService) clearAuthRequest(sess SessionStore) {
	for _, key := range []string{SessionKeyAuthState, SessionKeyAuthNonce} {
		if err := sess.Delete(key); err != nil {
			s.log.Warn("failed to delete session key", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *authService) recordFailure(user, detail string) {
	s.log.Warn("login failed", zap.String("detail", detail))
	s.record(&models.AuditLogEntry{
		Event:     models.AuditEventLoginFailed,
		UserEmail: user,
		Path:      "/auth/callback",
		Detail:    detail,
	})
}

func (s *authService) record(entry *models.AuditLogEntry) {
	if s.auditRepo == nil {
		return
	}
	if err := s.auditRepo.Create(entry); err != nil {
		s.log.Error("failed to create audit log", zap.String("event", entry.Event), zap.Error(err))
	}
}
