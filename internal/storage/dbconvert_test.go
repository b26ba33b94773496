package storage

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binforge/internal/models"
)

func TestPermissionsRoundTrip(t *testing.T) {
	rules, err := models.ParsePermissionRules([]string{"*", "/api/v1/cards/generate", "/api/v1/bins/*"})
	require.NoError(t, err)

	raw, err := marshalPermissions(rules)
	require.NoError(t, err)

	back, err := unmarshalPermissions(raw)
	require.NoError(t, err)
	assert.Equal(t, models.PermissionStrings(rules), models.PermissionStrings(back))
}

func TestUnmarshalPermissions_Empty(t *testing.T) {
	rules, err := unmarshalPermissions("")
	require.NoError(t, err)
	assert.Nil(t, rules)
}

func TestUnmarshalPermissions_Malformed(t *testing.T) {
	_, err := unmarshalPermissions("{not json")
	assert.Error(t, err)
}

func TestNullTime(t *testing.T) {
	assert.False(t, nullTime(nil).Valid)

	now := time.Now()
	nt := nullTime(&now)
	assert.True(t, nt.Valid)
	assert.Equal(t, now, nt.Time)

	assert.Nil(t, timePtr(sql.NullTime{}))
	got := timePtr(nt)
	require.NotNil(t, got)
	assert.Equal(t, now, *got)
}
