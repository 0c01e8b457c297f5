package authenticator

// EnrichUserInfo returns a copy of claims with displayName, userId and
// isAuthenticated added. Keys already present in claims keep their value.
func EnrichUserInfo(claims Claims) Claims {
	enriched := make(Claims, len(claims)+3)
	for k, v := range claims {
		enriched[k] = v
	}

	setIfAbsent(enriched, "displayName", displayName(claims))
	if sub, ok := claims["sub"]; ok {
		setIfAbsent(enriched, "userId", sub)
	}
	setIfAbsent(enriched, "isAuthenticated", true)

	return enriched
}

func displayName(claims Claims) string {
	for _, key := range []string{"name", "preferred_username"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return "User"
}

func setIfAbsent(c Claims, key string, value interface{}) {
	if _, ok := c[key]; !ok {
		c[key] = value
	}
}
