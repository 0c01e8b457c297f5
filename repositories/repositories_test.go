package repositories

import (
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/blogem/entra-sso/config"
	"github.com/blogem/entra-sso/database"
	"github.com/blogem/entra-sso/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func tokenRepositories(t *testing.T) map[string]TokenRepository {
	return map[string]TokenRepository{
		"memory": NewMemoryTokenRepository(),
		"sqlite": NewSQLiteTokenRepository(setupTestDB(t)),
	}
}

func TestTokenRepository(t *testing.T) {
	issued := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	for name, repo := range tokenRepositories(t) {
		t.Run(name, func(t *testing.T) {
			// Missing
			_, err := repo.Get("alice")
			assert.ErrorIs(t, err, ErrTokenNotFound)

			first := &models.TokenRecord{
				AccessToken:  "first",
				TokenType:    "Bearer",
				RefreshToken: "refresh",
				IssuedAt:     issued,
				ExpiresAt:    issued.Add(time.Hour),
			}
			require.NoError(t, repo.Store("alice", first))

			got, err := repo.Get("alice")
			require.NoError(t, err)
			assert.Equal(t, "first", got.AccessToken)
			assert.Equal(t, "refresh", got.RefreshToken)
			assert.True(t, got.ExpiresAt.Equal(first.ExpiresAt))

			// Overwrite, not merge
			second := &models.TokenRecord{
				AccessToken: "second",
				TokenType:   "Bearer",
				IssuedAt:    issued.Add(time.Minute),
				ExpiresAt:   issued.Add(2 * time.Hour),
			}
			require.NoError(t, repo.Store("alice", second))

			got, err = repo.Get("alice")
			require.NoError(t, err)
			assert.Equal(t, "second", got.AccessToken)
			assert.Empty(t, got.RefreshToken)
			assert.True(t, got.ExpiresAt.Equal(second.ExpiresAt))

			// Other users are untouched
			_, err = repo.Get("bob")
			assert.ErrorIs(t, err, ErrTokenNotFound)

			require.NoError(t, repo.Delete("alice"))
			_, err = repo.Get("alice")
			assert.ErrorIs(t, err, ErrTokenNotFound)

			// Deleting twice is fine
			assert.NoError(t, repo.Delete("alice"))
		})
	}
}

func TestTokenRepository_RejectsInvalidInput(t *testing.T) {
	for name, repo := range tokenRepositories(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, repo.Store("", &models.TokenRecord{AccessToken: "x"}))
			assert.Error(t, repo.Store("alice", nil))
		})
	}
}

func TestSQLiteTokenRepository_NoExpiry(t *testing.T) {
	repo := NewSQLiteTokenRepository(setupTestDB(t))
	require.NoError(t, repo.Store("alice", &models.TokenRecord{AccessToken: "x", IssuedAt: time.Now()}))

	got, err := repo.Get("alice")
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.IsZero())
	assert.True(t, got.IsExpired(time.Now()))
}

func TestMemoryTokenRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryTokenRepository()
	token := &models.TokenRecord{AccessToken: "original"}
	require.NoError(t, repo.Store("alice", token))

	token.AccessToken = "mutated"
	got, err := repo.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, "original", got.AccessToken)

	got.AccessToken = "mutated again"
	again, err := repo.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, "original", again.AccessToken)
}

func TestMemoryTokenRepository_Concurrent(t *testing.T) {
	repo := NewMemoryTokenRepository()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.Store("alice", &models.TokenRecord{AccessToken: "t"})
			_, _ = repo.Get("alice")
		}()
	}
	wg.Wait()

	got, err := repo.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, "t", got.AccessToken)
}

func TestAuditRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAuditRepository(db)

	entry := &models.AuditLogEntry{
		Event:     models.AuditEventLoginSucceeded,
		UserEmail: "alice@contoso.example",
		Method:    "POST",
		Path:      "/auth/callback",
		UserAgent: "test",
		IPAddress: "127.0.0.1",
	}
	require.NoError(t, repo.Create(entry))
	assert.NotZero(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())

	require.NoError(t, repo.Create(&models.AuditLogEntry{Method: "POST", Path: "/auth/callback"}))

	entries, err := repo.ListByEvent(models.AuditEventLoginSucceeded, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice@contoso.example", entries[0].UserEmail)

	requests, err := repo.ListByEvent(models.AuditEventRequest, 10)
	require.NoError(t, err)
	assert.Len(t, requests, 1)
}

func TestNewRepositories(t *testing.T) {
	db := setupTestDB(t)

	repos, err := NewRepositories(db, config.TokenStoreMemory)
	require.NoError(t, err)
	assert.IsType(t, &memoryTokenRepository{}, repos.Tokens)

	repos, err = NewRepositories(db, config.TokenStoreSQLite)
	require.NoError(t, err)
	assert.IsType(t, &sqliteTokenRepository{}, repos.Tokens)

	_, err = NewRepositories(db, "redis")
	assert.Error(t, err)
}
