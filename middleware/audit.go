package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/blogem/entra-sso/models"
	"github.com/blogem/entra-sso/repositories"
	"github.com/blogem/entra-sso/userctx"
)

const redacted = "[REDACTED]"

// sensitiveFields are form fields never written to the audit log
var sensitiveFields = map[string]bool{
	"code":          true,
	"state":         true,
	"id_token":      true,
	"access_token":  true,
	"client_secret": true,
}

// AuditLogger middleware logs all POST/PUT/DELETE requests
func AuditLogger(auditRepo repositories.AuditRepository, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only log mutation operations
			if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodDelete {
				entry := &models.AuditLogEntry{
					Event:     models.AuditEventRequest,
					UserEmail: userctx.GetUserEmail(r.Context()),
					Method:    r.Method,
					Path:      r.URL.Path,
					UserAgent: r.UserAgent(),
					IPAddress: getIPAddress(r),
					FormData:  captureFormData(r),
				}

				// Log asynchronously to avoid blocking request
				go func() {
					if err := auditRepo.Create(entry); err != nil {
						log.Error("failed to create audit log", zap.String("path", entry.Path), zap.Error(err))
					}
				}()
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getIPAddress extracts IP address from request, checking X-Forwarded-For first
func getIPAddress(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// captureFormData captures form data as JSON string with credentials redacted
func captureFormData(r *http.Request) string {
	if err := r.ParseForm(); err != nil {
		return ""
	}
	if len(r.Form) == 0 {
		return ""
	}

	formMap := make(map[string]interface{}, len(r.Form))
	for key, values := range r.Form {
		switch {
		case sensitiveFields[strings.ToLower(key)]:
			formMap[key] = redacted
		case len(values) == 1:
			formMap[key] = values[0]
		default:
			formMap[key] = values
		}
	}

	jsonData, err := json.Marshal(formMap)
	if err != nil {
		return ""
	}
	return string(jsonData)
}
