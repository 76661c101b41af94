package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// ScopeJobsRun allows triggering scheduled jobs over the internal API.
const ScopeJobsRun = "jobs:run"

// ServiceTokenClaims identify an internal caller such as Cloud Scheduler.
type ServiceTokenClaims struct {
	Scopes []string `json:"scp,omitempty"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token grants scope.
func (c *ServiceTokenClaims) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.Scopes, scope)
}
