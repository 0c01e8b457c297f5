package models

import "time"

// TokenRecord is the cached result of a successful authorization code exchange
type TokenRecord struct {
	AccessToken string
	TokenType   string
	// RefreshToken is kept when the provider returns one but nothing redeems it;
	// an expired record forces a new login.
	RefreshToken string
	IDToken      string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// IsExpired reports whether the record is expired at now. The expiry instant
// itself counts as expired, and a record without an expiry is always expired.
func (t *TokenRecord) IsExpired(now time.Time) bool {
	if t == nil || t.ExpiresAt.IsZero() {
		return true
	}
	return !now.Before(t.ExpiresAt)
}

// Lifetime returns the declared lifetime of the token
func (t *TokenRecord) Lifetime() time.Duration {
	if t == nil || t.ExpiresAt.IsZero() {
		return 0
	}
	return t.ExpiresAt.Sub(t.IssuedAt)
}
