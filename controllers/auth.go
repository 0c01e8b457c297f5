package controllers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/blogem/entra-sso/authenticator"
	"github.com/blogem/entra-sso/services"
)

// Fixed client-facing bodies; provider details are only logged
const (
	msgNotInitialized       = "OpenID client not initialized"
	msgStateVerification    = "State verification failed"
	msgAuthenticationFailed = "Authentication failed"
)

// defaultLandingPath is where a successful login lands without a saved destination
const defaultLandingPath = "/profile"

type AuthController struct {
	auth    services.AuthService
	log     *zap.Logger
	session func(*http.Request) services.Session
}

func NewAuthController(auth services.AuthService, log *zap.Logger) *AuthController {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthController{auth: auth, log: log, session: services.RequestSession}
}

// Login initiates the authentication process
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	sess := ac.session(r)
	if sess == nil {
		ac.log.Error("login requested without a session")
		http.Error(w, msgAuthenticationFailed, http.StatusInternalServerError)
		return
	}

	authURL, err := ac.auth.BeginLogin(sess)
	if err != nil {
		ac.log.Error("failed to start login", zap.Error(err))
		if errors.Is(err, authenticator.ErrNotInitialized) {
			http.Error(w, msgNotInitialized, http.StatusInternalServerError)
			return
		}
		http.Error(w, msgAuthenticationFailed, http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback handles the authorization response posted back by the provider
func (ac *AuthController) Callback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, msgAuthenticationFailed, http.StatusBadRequest)
		return
	}

	sess := ac.session(r)
	if sess == nil {
		ac.log.Error("callback received without a session")
		http.Error(w, msgAuthenticationFailed, http.StatusInternalServerError)
		return
	}
	params := services.CallbackParams{
		Code:             r.Form.Get("code"),
		State:            r.Form.Get("state"),
		Error:            r.Form.Get("error"),
		ErrorDescription: r.Form.Get("error_description"),
	}

	if _, err := ac.auth.CompleteLogin(r.Context(), sess, params); err != nil {
		switch {
		case errors.Is(err, authenticator.ErrNotInitialized):
			ac.log.Error("callback before provider initialization")
			http.Error(w, msgNotInitialized, http.StatusInternalServerError)
		case errors.Is(err, authenticator.ErrStateMismatch):
			ac.log.Warn("state verification failed", zap.String("remote_addr", r.RemoteAddr))
			http.Error(w, msgStateVerification, http.StatusForbidden)
		default:
			ac.log.Error("authentication error", zap.Error(err))
			http.Error(w, msgAuthenticationFailed, http.StatusInternalServerError)
		}
		return
	}

	target := ac.auth.PopReturnTo(sess)
	if target == "" {
		target = defaultLandingPath
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Logout clears the user's token and session and always returns home. The
// authenticated flag is cleared before the session is destroyed, so a failed
// destroy still logs the user out.
func (ac *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := ac.session(r); sess != nil {
		ac.auth.Logout(sess)
		if err := sess.Destroy(w, r); err != nil {
			ac.log.Error("error destroying session", zap.Error(err))
		}
	}

	http.Redirect(w, r, "/", http.StatusFound)
}
