package auth

// Known OAuth scopes used by the sync API.
const (
	ScopeHealthWrite    = "health:write"
	ScopeChallengesRead = "challenges:read"
)
