// SPDX-License-Identifier: Apache-2.0

// Package gate authorizes concrete procedure invocations. Gate decisions are
// stateless: they depend only on the configured allow-list and token, never
// on request ordering or on how the request was produced. A "run" decision
// from the planner still has to pass here before execution.
package gate

import (
	"crypto/subtle"
	"path"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/apperr"
)

// DenyNotAllowed and DenyUnauthorized are the two deny reasons.
const (
	DenyNotAllowed   = "not_allowed"
	DenyUnauthorized = "unauthorized"
)

// Gate validates (procedure path, credential) pairs.
type Gate struct {
	allowPatterns []string
	token         string
	requireAuth   bool
	exempt        map[string]bool
}

// Option configures a Gate.
type Option func(*Gate)

// WithAuthExempt marks endpoint paths that skip credential checking.
// The health/status path is exempt by default.
func WithAuthExempt(endpoints ...string) Option {
	return func(g *Gate) {
		for _, e := range endpoints {
			g.exempt[e] = true
		}
	}
}

// New creates a gate over an allow-list of glob patterns and a bearer token.
// With requireAuth false the credential is never inspected.
func New(allowPatterns []string, token string, requireAuth bool, opts ...Option) *Gate {
	g := &Gate{
		allowPatterns: allowPatterns,
		token:         token,
		requireAuth:   requireAuth,
		exempt:        map[string]bool{"/health": true},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize checks a procedure path against the allow-list and the
// credential against the configured token. Allow-list mismatch wins over a
// bad credential so operators see the more specific denial.
func (g *Gate) Authorize(procedurePath, credential string) error {
	if !g.allowed(procedurePath) {
		return &apperr.ForbiddenError{Path: procedurePath}
	}
	if g.requireAuth {
		if credential == "" {
			return &apperr.UnauthorizedError{Reason: "missing bearer token"}
		}
		if subtle.ConstantTimeCompare([]byte(credential), []byte(g.token)) != 1 {
			return &apperr.UnauthorizedError{Reason: "invalid bearer token"}
		}
	}
	return nil
}

// RequiresAuth reports whether an endpoint path needs a credential at all.
func (g *Gate) RequiresAuth(endpoint string) bool {
	if !g.requireAuth {
		return false
	}
	return !g.exempt[endpoint]
}

// AllowPatterns returns the configured allow-list (for /health reporting).
func (g *Gate) AllowPatterns() []string {
	out := make([]string, len(g.allowPatterns))
	copy(out, g.allowPatterns)
	return out
}

func (g *Gate) allowed(procedurePath string) bool {
	for _, pattern := range g.allowPatterns {
		if ok, err := path.Match(pattern, procedurePath); err == nil && ok {
			return true
		}
	}
	return false
}
