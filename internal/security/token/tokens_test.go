package tokens

import (
	"encoding/base64"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOpaqueToken(t *testing.T) {
	a, err := GenerateOpaqueToken(32)
	require.NoError(t, err)
	b, err := GenerateOpaqueToken(32)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestNumericCodeRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		c, err := NumericCode(6)
		require.NoError(t, err)
		require.Len(t, c, 6)
		n, err := strconv.Atoi(c)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
	_, err := NumericCode(0)
	assert.Error(t, err)
}

func TestEqualTrimmed(t *testing.T) {
	assert.True(t, EqualTrimmed("123456", " 123456 "))
	assert.False(t, EqualTrimmed("123456", "123457"))
	assert.False(t, EqualTrimmed("", ""))
}

func TestSHA256Base64URLStable(t *testing.T) {
	assert.Equal(t, SHA256Base64URL("x"), SHA256Base64URL("x"))
	assert.Len(t, SHA256Base64URL("x"), 43)
}
