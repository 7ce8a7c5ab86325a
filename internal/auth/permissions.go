package auth

import "strings"

// Scope is a named capability granted by a token.
type Scope string

// Scope constants.
const (
	ScopeControl Scope = "downlink:control"
	ScopeObserve Scope = "downlink:observe"
)

// DefaultScopes is what an operator token carries when none are requested.
var DefaultScopes = []Scope{ScopeControl, ScopeObserve}

// ParseScopes splits a comma-separated scope list, ignoring blanks.
func ParseScopes(s string) []Scope {
	var out []Scope
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, Scope(part))
		}
	}
	return out
}

// HasScope reports whether the claims grant scope.
func (c *Claims) HasScope(scope Scope) bool {
	if c == nil {
		return false
	}
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
