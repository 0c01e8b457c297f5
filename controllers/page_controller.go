package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/blogem/entra-sso/models"
	"github.com/blogem/entra-sso/userctx"
)

// datetimeLocal is the layout of an HTML datetime-local input
const datetimeLocal = "2006-01-02T15:04"

// pageData is the data every page template receives
type pageData struct {
	Title           string
	CurrentPage     string
	IsAuthenticated bool
	User            models.UserIdentity
	ClaimsJSON      string
	CalendarStart   string
	CalendarEnd     string
}

// PageController handles the HTML pages
type PageController struct {
	log *zap.Logger
	now func() time.Time
}

// NewPageController creates a new page controller
func NewPageController(log *zap.Logger) *PageController {
	if log == nil {
		log = zap.NewNop()
	}
	return &PageController{log: log, now: time.Now}
}

func (c *PageController) data(r *http.Request, title, page string) pageData {
	user, ok := userctx.GetUser(r.Context())
	return pageData{
		Title:           title,
		CurrentPage:     page,
		IsAuthenticated: ok,
		User:            user,
	}
}

// Home handles GET /
func (c *PageController) Home(w http.ResponseWriter, r *http.Request) {
	if err := renderTemplate(w, "home.html", c.data(r, "Microsoft SSO Authentication", "home")); err != nil {
		c.log.Error("failed to render home page", zap.Error(err))
	}
}

// Profile handles GET /profile
func (c *PageController) Profile(w http.ResponseWriter, r *http.Request) {
	data := c.data(r, "Profile", "profile")

	claims, err := json.MarshalIndent(data.User.Claims, "", "  ")
	if err != nil {
		c.log.Warn("failed to encode user claims", zap.Error(err))
	}
	data.ClaimsJSON = string(claims)

	if err := renderTemplate(w, "profile.html", data); err != nil {
		c.log.Error("failed to render profile page", zap.Error(err))
	}
}

// Dashboard handles GET /dashboard
func (c *PageController) Dashboard(w http.ResponseWriter, r *http.Request) {
	data := c.data(r, "Dashboard", "dashboard")
	now := c.now().UTC()
	data.CalendarStart = now.Format(datetimeLocal)
	data.CalendarEnd = now.Add(7 * 24 * time.Hour).Format(datetimeLocal)

	if err := renderTemplate(w, "dashboard.html", data); err != nil {
		c.log.Error("failed to render dashboard page", zap.Error(err))
	}
}
