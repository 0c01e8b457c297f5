package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/blogem/entra-sso/services"
	"github.com/blogem/entra-sso/userctx"
)

// LoginPath is where unauthenticated and expired users are sent
const LoginPath = "/auth/login"

// sessionStore returns the session of r, or nil when no session middleware ran
func sessionStore(r *http.Request) services.SessionStore {
	if sess := services.RequestSession(r); sess != nil {
		return sess
	}
	return nil
}

// RequireAuth ensures the user is authenticated
// If not authenticated, redirects to /auth/login and stores the intended destination
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionStore(r)
		user, ok := services.SessionUser(sess)

		if !ok {
			if sess != nil {
				// Store the intended destination for redirect after login
				_ = sess.Set(services.SessionKeyReturnTo, r.URL.RequestURI())
			}
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}

		next.ServeHTTP(w, r.WithContext(userctx.SetUser(r.Context(), user)))
	})
}

// CheckTokenValidity sends users whose cached access token has expired back
// through the login flow. The /auth/ routes are never gated.
func CheckTokenValidity(auth services.AuthService, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/auth/") {
				next.ServeHTTP(w, r)
				return
			}

			user, ok := services.SessionUser(sessionStore(r))
			if ok && auth.TokenExpired(user.Sub) {
				log.Info("access token expired, redirecting to login", zap.String("sub", user.Sub), zap.String("path", r.URL.Path))
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SetUserLocals places the session user, if any, on the request context so
// handlers and templates can read it without requiring authentication
func SetUserLocals(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := services.SessionUser(sessionStore(r)); ok {
			r = r.WithContext(userctx.SetUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}
