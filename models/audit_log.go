package models

import "time"

// Audit event names
const (
	AuditEventRequest        = "request"
	AuditEventLoginSucceeded = "login_succeeded"
	AuditEventLoginFailed    = "login_failed"
	AuditEventLogout         = "logout"
)

// AuditLogEntry represents a single recorded request or authentication event
type AuditLogEntry struct {
	ID        int64
	Timestamp time.Time
	Event     string
	UserEmail string
	Method    string
	Path      string
	FormData  string
	Detail    string
	UserAgent string
	IPAddress string
}
