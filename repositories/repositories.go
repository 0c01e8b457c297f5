package repositories

import (
	"database/sql"
	"fmt"

	"github.com/blogem/entra-sso/config"
)

// Repositories struct holds all repository interfaces
type Repositories struct {
	Tokens TokenRepository
	Audit  AuditRepository
}

// NewRepositories creates the repositories for the configured token store
func NewRepositories(db *sql.DB, tokenStore string) (*Repositories, error) {
	var tokens TokenRepository
	switch tokenStore {
	case config.TokenStoreMemory, "":
		tokens = NewMemoryTokenRepository()
	case config.TokenStoreSQLite:
		tokens = NewSQLiteTokenRepository(db)
	default:
		return nil, fmt.Errorf("unknown token store %q", tokenStore)
	}

	return &Repositories{
		Tokens: tokens,
		Audit:  NewAuditRepository(db),
	}, nil
}
