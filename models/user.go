package models

import (
	"encoding/gob"
)

// UserIdentity is the authenticated user bound to a browser session
type UserIdentity struct {
	Sub               string
	UserID            string
	DisplayName       string
	Name              string
	Email             string
	PreferredUsername string
	IsAuthenticated   bool
	// Claims holds every userinfo claim plus the derived ones
	Claims map[string]interface{}
}

func init() {
	// Session providers other than memory gob-encode their values.
	gob.Register(UserIdentity{})
	gob.Register(map[string]interface{}{})
	gob.Register([]interface{}{})
}

// NewUserIdentity builds an identity from an enriched claim set
func NewUserIdentity(claims map[string]interface{}) UserIdentity {
	return UserIdentity{
		Sub:               stringClaim(claims, "sub"),
		UserID:            stringClaim(claims, "userId"),
		DisplayName:       stringClaim(claims, "displayName"),
		Name:              stringClaim(claims, "name"),
		Email:             stringClaim(claims, "email"),
		PreferredUsername: stringClaim(claims, "preferred_username"),
		IsAuthenticated:   boolClaim(claims, "isAuthenticated"),
		Claims:            claims,
	}
}

// AuditName returns the best human readable identifier for audit records
func (u UserIdentity) AuditName() string {
	switch {
	case u.Email != "":
		return u.Email
	case u.PreferredUsername != "":
		return u.PreferredUsername
	default:
		return u.Sub
	}
}

func stringClaim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

func boolClaim(claims map[string]interface{}, key string) bool {
	v, _ := claims[key].(bool)
	return v
}
