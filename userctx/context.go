package userctx

import (
	"context"

	"github.com/blogem/entra-sso/models"
)

// Context key type
type contextKey string

const userKey contextKey = "user"

// SetUser adds the authenticated user to the request context
func SetUser(ctx context.Context, user models.UserIdentity) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser retrieves the authenticated user from the request context
func GetUser(ctx context.Context) (models.UserIdentity, bool) {
	user, ok := ctx.Value(userKey).(models.UserIdentity)
	return user, ok
}

// GetUserID returns the subject of the user in ctx, or "" when anonymous
func GetUserID(ctx context.Context) string {
	if user, ok := GetUser(ctx); ok {
		return user.Sub
	}
	return ""
}

// GetUserEmail returns the audit name of the user in ctx
func GetUserEmail(ctx context.Context) string {
	user, ok := GetUser(ctx)
	if !ok {
		return "anonymous"
	}
	return user.AuditName()
}
