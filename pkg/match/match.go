// Package match evaluates glob patterns against object keys.
package match

import (
	"errors"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrNoIncludes is returned when no include patterns are provided.
	ErrNoIncludes = errors.New("at least one include pattern is required")

	// ErrInvalidPattern is returned when a pattern cannot be compiled.
	ErrInvalidPattern = errors.New("invalid glob pattern")
)

// PatternError wraps pattern-related errors with the offending pattern.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Config configures a Matcher.
type Config struct {
	// Includes are glob patterns a key must match at least one of.
	Includes []string

	// Excludes are glob patterns a key must not match any of.
	Excludes []string

	// IncludeHidden admits keys with a path segment starting with ".".
	IncludeHidden bool
}

// Matcher evaluates include/exclude glob patterns against object keys.
// Keys are matched as-is: object keys are opaque strings, not file
// paths. Safe for concurrent use after creation.
type Matcher struct {
	includes      []string
	excludes      []string
	prefixes      []string
	includeHidden bool
}

// New validates the patterns and builds a Matcher.
func New(cfg Config) (*Matcher, error) {
	if len(cfg.Includes) == 0 {
		return nil, ErrNoIncludes
	}
	for _, raw := range append(append([]string{}, cfg.Includes...), cfg.Excludes...) {
		if !doublestar.ValidatePattern(raw) {
			return nil, &PatternError{Pattern: raw, Err: ErrInvalidPattern}
		}
	}
	return &Matcher{
		includes:      cfg.Includes,
		excludes:      cfg.Excludes,
		prefixes:      derivePrefixes(cfg.Includes),
		includeHidden: cfg.IncludeHidden,
	}, nil
}

// Match reports whether key passes the include and exclude patterns.
func (m *Matcher) Match(key string) bool {
	if !m.includeHidden && isHidden(key) {
		return false
	}

	matched := false
	for _, inc := range m.includes {
		if ok, _ := doublestar.Match(inc, key); ok {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	for _, exc := range m.excludes {
		if ok, _ := doublestar.Match(exc, key); ok {
			return false
		}
	}
	return true
}

// Prefixes returns deduplicated literal prefixes derived from the
// include patterns, usable to narrow list requests. An empty string
// means at least one pattern needs a full listing.
func (m *Matcher) Prefixes() []string {
	return m.prefixes
}

// IsGlobPattern reports whether s contains unescaped glob metacharacters.
func IsGlobPattern(s string) bool {
	return firstMeta(s) >= 0
}

// DerivePrefix returns the literal key prefix before the first glob
// metacharacter, cut back to the last path separator so the prefix
// never splits a segment the pattern may still rewrite.
func DerivePrefix(pattern string) string {
	i := firstMeta(pattern)
	if i < 0 {
		return pattern
	}
	literal := pattern[:i]
	if j := strings.LastIndex(literal, "/"); j >= 0 {
		return literal[:j+1]
	}
	return ""
}

func derivePrefixes(patterns []string) []string {
	seen := make(map[string]bool)
	var prefixes []string
	for _, p := range patterns {
		prefix := DerivePrefix(p)
		if prefix == "" {
			// One unbounded pattern forces a full listing anyway.
			return []string{""}
		}
		if !seen[prefix] {
			seen[prefix] = true
			prefixes = append(prefixes, prefix)
		}
	}
	sort.Strings(prefixes)

	// Drop prefixes shadowed by a shorter one.
	var out []string
	for _, p := range prefixes {
		if len(out) == 0 || !strings.HasPrefix(p, out[len(out)-1]) {
			out = append(out, p)
		}
	}
	return out
}

func firstMeta(pattern string) int {
	escaped := false
	for i, r := range pattern {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '*', '?', '[', '{':
			return i
		}
	}
	return -1
}

func isHidden(key string) bool {
	for _, segment := range strings.Split(key, "/") {
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}
	return false
}
