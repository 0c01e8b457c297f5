package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blogem/entra-sso/models"
)

// ErrTokenNotFound is returned when no token is cached for a user
var ErrTokenNotFound = errors.New("token not found")

// TokenRepository caches the latest token record per user. Store overwrites
// unconditionally; nothing is evicted except by Store or Delete.
type TokenRepository interface {
	Store(userID string, token *models.TokenRecord) error
	Get(userID string) (*models.TokenRecord, error)
	Delete(userID string) error
}

// memoryTokenRepository keeps tokens in process memory. It is not shared
// between instances and does not survive a restart.
type memoryTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]models.TokenRecord
}

// NewMemoryTokenRepository creates an in-memory token repository
func NewMemoryTokenRepository() TokenRepository {
	return &memoryTokenRepository{tokens: make(map[string]models.TokenRecord)}
}

// Store saves a copy of token under userID
func (r *memoryTokenRepository) Store(userID string, token *models.TokenRecord) error {
	if userID == "" {
		return errors.New("user ID is required")
	}
	if token == nil {
		return errors.New("token is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[userID] = *token
	return nil
}

// Get returns a copy of the token stored under userID
func (r *memoryTokenRepository) Get(userID string) (*models.TokenRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.tokens[userID]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return &token, nil
}

// Delete removes the token stored under userID
func (r *memoryTokenRepository) Delete(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, userID)
	return nil
}

type sqliteTokenRepository struct {
	db *sql.DB
}

// NewSQLiteTokenRepository creates a token repository backed by the token_cache table
func NewSQLiteTokenRepository(db *sql.DB) TokenRepository {
	return &sqliteTokenRepository{db: db}
}

// Store upserts the token for userID
func (r *sqliteTokenRepository) Store(userID string, token *models.TokenRecord) error {
	if userID == "" {
		return errors.New("user ID is required")
	}
	if token == nil {
		return errors.New("token is required")
	}

	query := `
		INSERT INTO token_cache (user_id, access_token, token_type, refresh_token, id_token, issued_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			token_type = excluded.token_type,
			refresh_token = excluded.refresh_token,
			id_token = excluded.id_token,
			issued_at = excluded.issued_at,
			expires_at = excluded.expires_at
	`

	var expiresAt sql.NullTime
	if !token.ExpiresAt.IsZero() {
		expiresAt = sql.NullTime{Time: token.ExpiresAt.UTC(), Valid: true}
	}

	_, err := r.db.Exec(
		query,
		userID,
		token.AccessToken,
		token.TokenType,
		token.RefreshToken,
		token.IDToken,
		token.IssuedAt.UTC(),
		expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Get loads the token for userID
func (r *sqliteTokenRepository) Get(userID string) (*models.TokenRecord, error) {
	query := `
		SELECT access_token, token_type, refresh_token, id_token, issued_at, expires_at
		FROM token_cache
		WHERE user_id = ?
	`

	var token models.TokenRecord
	var issuedAt time.Time
	var expiresAt sql.NullTime
	err := r.db.QueryRow(query, userID).Scan(
		&token.AccessToken,
		&token.TokenType,
		&token.RefreshToken,
		&token.IDToken,
		&issuedAt,
		&expiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	token.IssuedAt = issuedAt
	if expiresAt.Valid {
		token.ExpiresAt = expiresAt.Time
	}
	return &token, nil
}

// Delete removes the token for userID
func (r *sqliteTokenRepository) Delete(userID string) error {
	if _, err := r.db.Exec("DELETE FROM token_cache WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
