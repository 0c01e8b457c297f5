package repositories

import (
	"database/sql"
	"time"

	"github.com/blogem/entra-sso/models"
)

// AuditRepository handles audit log persistence
type AuditRepository interface {
	Create(entry *models.AuditLogEntry) error
	ListByEvent(event string, limit int) ([]models.AuditLogEntry, error)
}

type sqliteAuditRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &sqliteAuditRepository{db: db, now: time.Now}
}

// Create inserts a new audit log entry
func (r *sqliteAuditRepository) Create(entry *models.AuditLogEntry) error {
	query := `
		INSERT INTO audit_log (timestamp, event, user_email, method, path, form_data, detail, user_agent, ip_address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now()
	}
	if entry.Event == "" {
		entry.Event = models.AuditEventRequest
	}

	result, err := r.db.Exec(
		query,
		entry.Timestamp.UTC(),
		entry.Event,
		entry.UserEmail,
		entry.Method,
		entry.Path,
		entry.FormData,
		entry.Detail,
		entry.UserAgent,
		entry.IPAddress,
	)
	if err != nil {
		return err
	}

	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// ListByEvent returns the most recent entries of one event type, newest first
func (r *sqliteAuditRepository) ListByEvent(event string, limit int) ([]models.AuditLogEntry, error) {
	query := `
		SELECT id, timestamp, event, user_email, method, path, form_data, detail, user_agent, ip_address
		FROM audit_log
		WHERE event = ?
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, event, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.AuditLogEntry
	for rows.Next() {
		var e models.AuditLogEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Event, &e.UserEmail, &e.Method, &e.Path, &e.FormData, &e.Detail, &e.UserAgent, &e.IPAddress); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
