package controllers

import (
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/blogem/entra-sso/services"
)

//go:embed templates/*.html
var templateFS embed.FS

// renderTemplate creates a template set and renders it with the provided data
func renderTemplate(w http.ResponseWriter, pageTemplate string, data interface{}) error {
	return renderTemplateWithStatus(w, http.StatusOK, pageTemplate, data)
}

// renderTemplateWithStatus creates a template set and renders it with the provided data and status code
func renderTemplateWithStatus(w http.ResponseWriter, statusCode int, pageTemplate string, data interface{}) error {
	tmpl := template.New(pageTemplate).Funcs(template.FuncMap{
		"orDefault": func(v, fallback string) string {
			if v == "" {
				return fallback
			}
			return v
		},
	})

	// Parse layout and page template
	if _, err := tmpl.ParseFS(templateFS, "templates/layout.html", "templates/"+pageTemplate); err != nil {
		http.Error(w, "Failed to parse template", http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}

	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		return err
	}

	return nil
}

// Controllers holds all controller instances
type Controllers struct {
	Auth  *AuthController
	Pages *PageController
	API   *APIController
}

// NewControllers creates and initializes all controller instances
func NewControllers(services *services.Services, log *zap.Logger) *Controllers {
	return &Controllers{
		Auth:  NewAuthController(services.Auth, log),
		Pages: NewPageController(log),
		API:   NewAPIController(services.Graph, log),
	}
}
