package auth

// Known OAuth scopes accepted by the API.
const (
	ScopeProjectsRead  = "projects:read"
	ScopeProjectsWrite = "projects:write"
)
