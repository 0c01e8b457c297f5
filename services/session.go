package services

import (
	"net/http"

	"gitea.com/go-chi/session"

	"github.com/blogem/entra-sso/models"
)

// Session keys written by the login flow
const (
	SessionKeyUser            = "user"
	SessionKeyIsAuthenticated = "isAuthenticated"
	SessionKeyAuthState       = "authState"
	SessionKeyAuthNonce       = "authNonce"
	SessionKeyReturnTo        = "returnTo"
)

// SessionStore is the per-browser key/value storage the flow reads and writes.
// gitea.com/go-chi/session stores satisfy it.
type SessionStore interface {
	Set(key, value interface{}) error
	Get(key interface{}) interface{}
	Delete(key interface{}) error
}

// Session is a SessionStore that can also be destroyed
type Session interface {
	SessionStore
	Destroy(w http.ResponseWriter, r *http.Request) error
}

// RequestSession returns the session attached by session.Sessioner, or nil
// when none ran. session.GetSession wraps a nil pointer in that case.
func RequestSession(r *http.Request) Session {
	if r.Context().Value("Session") == nil {
		return nil
	}
	return session.GetSession(r)
}

func sessionString(sess SessionStore, key string) string {
	v, _ := sess.Get(key).(string)
	return v
}

// SessionUser returns the user bound to sess. The second result is false
// unless the session is authenticated and carries a user.
func SessionUser(sess SessionStore) (models.UserIdentity, bool) {
	if sess == nil {
		return models.UserIdentity{}, false
	}
	if authenticated, _ := sess.Get(SessionKeyIsAuthenticated).(bool); !authenticated {
		return models.UserIdentity{}, false
	}

	return sessionUserAny(sess)
}

// sessionUserAny returns the stored user regardless of the authenticated flag
func sessionUserAny(sess SessionStore) (models.UserIdentity, bool) {
	switch u := sess.Get(SessionKeyUser).(type) {
	case models.UserIdentity:
		return u, u.Sub != ""
	case *models.UserIdentity:
		if u == nil {
			return models.UserIdentity{}, false
		}
		return *u, u.Sub != ""
	default:
		return models.UserIdentity{}, false
	}
}
