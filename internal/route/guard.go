// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package route

import (
	"path"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Well-known client paths.
const (
	LoginPath          = "/login"
	SignupPath         = "/signup"
	DefaultLoginTarget = "/feed"
	SignupTarget       = "/profile"
)

// CodeInvalidPattern is returned for a protected-route glob that does not compile.
const CodeInvalidPattern = "ROUTE_INVALID_PATTERN"

// DefaultProtected lists the pages that need a signed-in user.
func DefaultProtected() []string {
	return []string{
		"/feed",
		"/profile",
		"/profile/**",
		"/requests/**",
		"/connections",
	}
}

// Authenticator reports the current session status. *session.Store satisfies it.
type Authenticator interface {
	Authenticated() bool
}

// Decision is the outcome of a guard check.
type Decision struct {
	Allowed bool
	// Redirect is the page to show instead when not allowed.
	Redirect string
	// From is the page that was asked for, for returning after login.
	From string
}

type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Guard checks navigation against the protected-route patterns.
// Patterns are immutable after construction.
type Guard struct {
	patterns []compiledPattern
	auth     Authenticator
}

// NewGuard compiles patterns with '/' as the segment separator, so '*' matches
// within one segment and '**' across segments.
func NewGuard(patterns []string, auth Authenticator) (*Guard, error) {
	if auth == nil {
		return nil, oops.Code(CodeInvalidPattern).Errorf("authenticator cannot be nil")
	}
	compiled, err := compilePatterns(patterns)
	if err != nil {
		return nil, err
	}
	return &Guard{patterns: compiled, auth: auth}, nil
}

// ValidatePatterns reports the first pattern that does not compile.
func ValidatePatterns(patterns []string) error {
	_, err := compilePatterns(patterns)
	return err
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		if !strings.HasPrefix(p, "/") {
			return nil, oops.Code(CodeInvalidPattern).
				With("pattern", p).
				Errorf("protected route pattern must start with '/'")
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, oops.Code(CodeInvalidPattern).
				With("pattern", p).
				Wrap(err)
		}
		out = append(out, compiledPattern{pattern: p, glob: g})
	}
	return out, nil
}

// Protected reports whether p needs a signed-in user.
func (g *Guard) Protected(p string) bool {
	clean := Clean(p)
	for _, cp := range g.patterns {
		if cp.glob.Match(clean) {
			return true
		}
	}
	return false
}

// Check decides whether the current session may open p.
func (g *Guard) Check(p string) Decision {
	clean := Clean(p)
	if !g.Protected(clean) || g.auth.Authenticated() {
		return Decision{Allowed: true}
	}
	return Decision{Redirect: LoginPath, From: clean}
}

// Patterns returns the configured patterns.
func (g *Guard) Patterns() []string {
	out := make([]string, len(g.patterns))
	for i, cp := range g.patterns {
		out[i] = cp.pattern
	}
	return out
}

// Clean strips query and fragment and normalizes p to an absolute path.
func Clean(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// LoginTarget is where a successful login goes: from, or the feed.
func LoginTarget(from string) string {
	if strings.TrimSpace(from) == "" {
		return DefaultLoginTarget
	}
	clean := Clean(from)
	if clean == LoginPath || clean == SignupPath {
		return DefaultLoginTarget
	}
	return clean
}
