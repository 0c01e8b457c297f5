package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/blogem/entra-sso/authenticator"
	"github.com/blogem/entra-sso/repositories"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// DefaultCalendarTop is the page size used when the caller does not ask for one
const DefaultCalendarTop = 10

// maxPhotoBytes bounds the profile photo read into memory
const maxPhotoBytes = 4 << 20

// ErrTokenUnavailable is returned when the user has no usable cached token
var ErrTokenUnavailable = errors.New("token is missing or expired")

// CalendarOptions narrows the calendar events query
type CalendarOptions struct {
	StartDateTime string
	EndDateTime   string
	Top           int
}

// GraphService interface defines calls to the user API on behalf of a logged in user
type GraphService interface {
	GetUserProfile(ctx context.Context, userID string) (map[string]interface{}, error)
	GetUserPhoto(ctx context.Context, userID string) string
	GetUserCalendarEvents(ctx context.Context, userID string, opts CalendarOptions) []map[string]interface{}
}

// graphService implements GraphService interface
type graphService struct {
	baseURL    string
	tokenRepo  repositories.TokenRepository
	httpClient *http.Client
	log        *zap.Logger
	now        func() time.Time
}

// NewGraphService creates a new Graph API service
func NewGraphService(baseURL string, tokenRepo repositories.TokenRepository, httpClient *http.Client, log *zap.Logger) GraphService {
	if httpClient == nil {
		httpClient = authenticator.NewHTTPClient(30 * time.Second)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &graphService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokenRepo:  tokenRepo,
		httpClient: httpClient,
		log:        log,
		now:        time.Now,
	}
}

// GetUserProfile returns the /me resource
func (s *graphService) GetUserProfile(ctx context.Context, userID string) (map[string]interface{}, error) {
	client, err := s.client(ctx, userID)
	if err != nil {
		return nil, err
	}

	var profile map[string]interface{}
	if err := s.getJSON(ctx, client, s.baseURL+"/me", &profile); err != nil {
		s.log.Error("failed to fetch user profile", zap.String("sub", userID), zap.Error(err))
		return nil, err
	}
	return profile, nil
}

// GetUserPhoto returns the profile photo as a data URI, or "" when the photo
// cannot be fetched for any reason
func (s *graphService) GetUserPhoto(ctx context.Context, userID string) string {
	client, err := s.client(ctx, userID)
	if err != nil {
		s.log.Debug("no token for photo request", zap.String("sub", userID), zap.Error(err))
		return ""
	}

	resp, err := s.get(ctx, client, s.baseURL+"/me/photo/$value")
	if err != nil {
		s.log.Warn("failed to fetch user photo", zap.String("sub", userID), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes))
	if err != nil || len(data) == 0 {
		s.log.Warn("failed to read user photo", zap.String("sub", userID), zap.Error(err))
		return ""
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// GetUserCalendarEvents returns calendar events, or an empty slice when they
// cannot be fetched for any reason
func (s *graphService) GetUserCalendarEvents(ctx context.Context, userID string, opts CalendarOptions) []map[string]interface{} {
	events := []map[string]interface{}{}

	client, err := s.client(ctx, userID)
	if err != nil {
		s.log.Debug("no token for calendar request", zap.String("sub", userID), zap.Error(err))
		return events
	}

	var page struct {
		Value []map[string]interface{} `json:"value"`
	}
	if err := s.getJSON(ctx, client, s.calendarURL(opts), &page); err != nil {
		s.log.Warn("failed to fetch calendar events", zap.String("sub", userID), zap.Error(err))
		return events
	}
	if page.Value == nil {
		return events
	}
	return page.Value
}

func (s *graphService) calendarURL(opts CalendarOptions) string {
	top := opts.Top
	if top <= 0 {
		top = DefaultCalendarTop
	}

	q := url.Values{}
	q.Set("$top", strconv.Itoa(top))
	if opts.StartDateTime != "" && opts.EndDateTime != "" {
		q.Set("$filter", fmt.Sprintf("start/dateTime ge '%s' and end/dateTime le '%s'",
			odataString(opts.StartDateTime), odataString(opts.EndDateTime)))
	}
	return s.baseURL + "/me/calendar/events?" + q.Encode()
}

// odataString escapes a value for use inside an OData single quoted literal
func odataString(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}

// client returns an HTTP client that sends the user's cached bearer token
func (s *graphService) client(ctx context.Context, userID string) (*http.Client, error) {
	if userID == "" {
		return nil, ErrTokenUnavailable
	}

	token, err := s.tokenRepo.Get(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
	}
	if token.IsExpired(s.now()) {
		return nil, fmt.Errorf("%w: %w", ErrTokenUnavailable, authenticator.ErrTokenExpired)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
	})), nil
}

func (s *graphService) get(ctx context.Context, client *http.Client, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("graph request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

func (s *graphService) getJSON(ctx context.Context, client *http.Client, rawURL string, out interface{}) error {
	resp, err := s.get(ctx, client, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode graph response: %w", err)
	}
	return nil
}
