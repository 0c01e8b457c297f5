package main

import (
	"fmt"
	"net/http"

	"gitea.com/go-chi/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authmiddleware "github.com/blogem/entra-sso/middleware"
)

// sessionOptions builds the session middleware options. The authorization
// response arrives as a cross-site POST in form_post mode, so the cookie
// cannot be SameSite=Lax there.
func sessionOptions(a *application) session.Options {
	lifetime := int64(a.cfg.Session.Lifetime.Seconds())
	sameSite := http.SameSiteLaxMode
	if a.cfg.OAuth.ResponseMode == "form_post" {
		sameSite = http.SameSiteDefaultMode
		if a.cfg.Server.UseHTTPS {
			sameSite = http.SameSiteNoneMode
		}
	}

	return session.Options{
		Provider:       "memory",
		ProviderConfig: "",
		CookieName:     a.cfg.Session.CookieName,
		Secure:         a.cfg.Server.UseHTTPS,
		SameSite:       sameSite,
		Gclifetime:     lifetime,
		Maxlifetime:    lifetime,
	}
}

// setupRouter configures all routes
func setupRouter(a *application) (*chi.Mux, error) {
	r := chi.NewRouter()
	ctrl := a.ctrl

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(authmiddleware.AccessLog(a.log.Named("access")))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(a.cfg.Server.RequestTimeout))

	sessionHandler, err := session.Sessioner(sessionOptions(a))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	r.Use(sessionHandler)
	r.Use(authmiddleware.SetUserLocals)
	r.Use(authmiddleware.CheckTokenValidity(a.services.Auth, a.log.Named("gate")))
	r.Use(authmiddleware.AuditLogger(a.repos.Audit, a.log.Named("audit")))

	// PUBLIC ROUTES (no authentication required)
	r.Get("/", ctrl.Pages.Home)
	r.Get("/health", ctrl.API.Health)
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", ctrl.Auth.Login)
		r.Post("/callback", ctrl.Auth.Callback)
		// RESPONSE_MODE=query returns the authorization response on a GET
		r.Get("/callback", ctrl.Auth.Callback)
		r.Get("/logout", ctrl.Auth.Logout)
	})

	// PROTECTED ROUTES (authentication required)
	r.Group(func(r chi.Router) {
		r.Use(authmiddleware.RequireAuth)

		r.Get("/profile", ctrl.Pages.Profile)
		r.Get("/dashboard", ctrl.Pages.Dashboard)

		r.Route("/api/me", func(r chi.Router) {
			r.Get("/", ctrl.API.Me)
			r.Get("/photo", ctrl.API.Photo)
			r.Get("/calendar", ctrl.API.Calendar)
		})
	})

	return r, nil
}
