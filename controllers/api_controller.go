package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/blogem/entra-sso/services"
	"github.com/blogem/entra-sso/userctx"
)

// ServiceName is reported by the health endpoint
const ServiceName = "entra-sso"

type errorResponse struct {
	Error string `json:"error"`
}

// APIController serves the JSON routes backed by the Graph API
type APIController struct {
	graph services.GraphService
	log   *zap.Logger
}

// NewAPIController creates a new API controller
func NewAPIController(graph services.GraphService, log *zap.Logger) *APIController {
	if log == nil {
		log = zap.NewNop()
	}
	return &APIController{graph: graph, log: log}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}

// userID returns the subject of the authenticated user, answering 401 when there is none
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	sub := userctx.GetUserID(r.Context())
	if sub == "" {
		respondError(w, r, http.StatusUnauthorized, "User not authenticated")
		return "", false
	}
	return sub, true
}

// Me handles GET /api/me
func (c *APIController) Me(w http.ResponseWriter, r *http.Request) {
	sub, ok := userID(w, r)
	if !ok {
		return
	}

	profile, err := c.graph.GetUserProfile(r.Context(), sub)
	if err != nil {
		c.log.Error("error fetching user profile", zap.String("sub", sub), zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "Failed to fetch user profile")
		return
	}
	render.JSON(w, r, profile)
}

// Photo handles GET /api/me/photo
func (c *APIController) Photo(w http.ResponseWriter, r *http.Request) {
	sub, ok := userID(w, r)
	if !ok {
		return
	}

	photo := c.graph.GetUserPhoto(r.Context(), sub)
	if photo == "" {
		respondError(w, r, http.StatusNotFound, "User photo not found")
		return
	}
	render.JSON(w, r, map[string]string{"photo": photo})
}

// Calendar handles GET /api/me/calendar
func (c *APIController) Calendar(w http.ResponseWriter, r *http.Request) {
	sub, ok := userID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	opts := services.CalendarOptions{
		StartDateTime: q.Get("startDateTime"),
		EndDateTime:   q.Get("endDateTime"),
	}
	if top := q.Get("top"); top != "" {
		// an unparsable value falls back to the default page size
		opts.Top, _ = strconv.Atoi(top)
	}

	events := c.graph.GetUserCalendarEvents(r.Context(), sub, opts)
	render.JSON(w, r, map[string]interface{}{"events": events})
}

// Health handles GET /health
func (c *APIController) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "healthy", "service": ServiceName})
}
