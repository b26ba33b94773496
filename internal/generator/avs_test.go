package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAVSSupported(t *testing.T) {
	assert.True(t, AVSSupported("US"))
	assert.True(t, AVSSupported("us"))
	assert.True(t, AVSSupported("GB"))
	assert.False(t, AVSSupported("JP"))
	assert.False(t, AVSSupported(""))
}

func TestPostalCode(t *testing.T) {
	d := NewDeriver(WithDeriverRand(fixedRand(31)))

	code, ok := d.PostalCode("US")
	require.True(t, ok)
	assert.Contains(t, avsPostalCodes["US"], code)

	code, ok = d.PostalCode("de")
	require.True(t, ok)
	assert.Contains(t, avsPostalCodes["DE"], code)

	_, ok = d.PostalCode("BR")
	assert.False(t, ok)
}
