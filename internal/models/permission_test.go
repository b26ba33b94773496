package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePermissionRule(t *testing.T) {
	tests := []struct {
		input string
		want  PermissionRule
	}{
		{"*", PermissionRule{Kind: PermissionWildcard}},
		{"/api/v1/cards/generate", PermissionRule{Kind: PermissionExact, Path: "/api/v1/cards/generate"}},
		{"/api/v1/cards/*", PermissionRule{Kind: PermissionPrefix, Path: "/api/v1/cards/"}},
		{"  /api/v1/bins/*  ", PermissionRule{Kind: PermissionPrefix, Path: "/api/v1/bins/"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePermissionRule(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParsePermissionRule("")
	assert.Error(t, err)
	_, err = ParsePermissionRule("   ")
	assert.Error(t, err)
}

func TestPermissionRule_String_RoundTrip(t *testing.T) {
	for _, s := range []string{"*", "/generate/x", "/generate/*"} {
		rule, err := ParsePermissionRule(s)
		require.NoError(t, err)
		assert.Equal(t, s, rule.String())
	}
}

func TestMatchPermission(t *testing.T) {
	prefixRule, err := ParsePermissionRule("/generate/*")
	require.NoError(t, err)

	t.Run("prefix rule scopes paths", func(t *testing.T) {
		rules := []PermissionRule{prefixRule}
		assert.True(t, MatchPermission(rules, "/generate/y"))
		assert.False(t, MatchPermission(rules, "/lookup/x"))
	})

	t.Run("wildcard matches everything", func(t *testing.T) {
		rules := []PermissionRule{{Kind: PermissionWildcard}}
		assert.True(t, MatchPermission(rules, "/anything"))
		assert.True(t, MatchPermission(rules, ""))
	})

	t.Run("exact requires full equality", func(t *testing.T) {
		rules := []PermissionRule{{Kind: PermissionExact, Path: "/api/v1/cards/generate"}}
		assert.True(t, MatchPermission(rules, "/api/v1/cards/generate"))
		assert.False(t, MatchPermission(rules, "/api/v1/cards/generate/extra"))
	})

	t.Run("no rules denies", func(t *testing.T) {
		assert.False(t, MatchPermission(nil, "/api/v1/cards/generate"))
	})
}

func TestPermissionStrings(t *testing.T) {
	rules, err := ParsePermissionRules([]string{"*", "/a", "/b/*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"*", "/a", "/b/*"}, PermissionStrings(rules))
}

func TestParsePermissionRules_InvalidEntry(t *testing.T) {
	_, err := ParsePermissionRules([]string{"/ok", ""})
	assert.Error(t, err)
}
