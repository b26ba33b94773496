package models

import (
	"fmt"
	"strings"
)

// PermissionKind discriminates the three rule forms.
type PermissionKind int

const (
	// PermissionWildcard matches every endpoint path.
	PermissionWildcard PermissionKind = iota
	// PermissionExact matches on full path equality.
	PermissionExact
	// PermissionPrefix matches any path starting with the rule's base path.
	PermissionPrefix
)

// PermissionRule scopes an API key to a set of endpoint paths. Rules are
// serialized as strings: "*" (wildcard), "/path" (exact), "/path/*" (prefix).
type PermissionRule struct {
	Kind PermissionKind
	Path string
}

// ParsePermissionRule parses the string form of a rule. An empty string is
// rejected; everything else falls into one of the three forms.
func ParsePermissionRule(s string) (PermissionRule, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PermissionRule{}, fmt.Errorf("permission rule must not be empty")
	}
	if s == "*" {
		return PermissionRule{Kind: PermissionWildcard}, nil
	}
	if strings.HasSuffix(s, "/*") {
		base := strings.TrimSuffix(s, "*")
		return PermissionRule{Kind: PermissionPrefix, Path: base}, nil
	}
	return PermissionRule{Kind: PermissionExact, Path: s}, nil
}

// ParsePermissionRules parses a list of string rules, failing on the first
// invalid entry.
func ParsePermissionRules(raw []string) ([]PermissionRule, error) {
	rules := make([]PermissionRule, 0, len(raw))
	for _, s := range raw {
		rule, err := ParsePermissionRule(s)
		if err != nil {
			return nil, fmt.Errorf("invalid permission %q: %w", s, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// String returns the serialized form of the rule.
func (r PermissionRule) String() string {
	switch r.Kind {
	case PermissionWildcard:
		return "*"
	case PermissionPrefix:
		return r.Path + "*"
	default:
		return r.Path
	}
}

// Matches reports whether the rule covers the given endpoint path.
func (r PermissionRule) Matches(path string) bool {
	switch r.Kind {
	case PermissionWildcard:
		return true
	case PermissionExact:
		return r.Path == path
	case PermissionPrefix:
		return strings.HasPrefix(path, r.Path)
	default:
		return false
	}
}

// MatchPermission evaluates rules in a fixed order: exact rules first, then
// prefix rules, then wildcard. The ordering removes any ambiguity about which
// rule form grants access when several could apply.
func MatchPermission(rules []PermissionRule, path string) bool {
	for _, kind := range []PermissionKind{PermissionExact, PermissionPrefix, PermissionWildcard} {
		for _, r := range rules {
			if r.Kind == kind && r.Matches(path) {
				return true
			}
		}
	}
	return false
}

// PermissionStrings serializes rules back to their string form for storage
// and API responses.
func PermissionStrings(rules []PermissionRule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.String()
	}
	return out
}
