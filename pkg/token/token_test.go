package token

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Generate_ReturnsUniqueHexTokens(t *testing.T) {
	a := Generate()
	b := Generate()

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)

	_, err := hex.DecodeString(a)
	assert.NoError(t, err)
}

func Test_HashAPIKey_IsDeterministic(t *testing.T) {
	assert.Equal(t, HashAPIKey("hk_abc"), HashAPIKey("hk_abc"))
	assert.NotEqual(t, HashAPIKey("hk_abc"), HashAPIKey("hk_abd"))
	assert.Len(t, HashAPIKey("anything"), 64)
}

func Test_GenerateAPIKey_ShapeAndHash(t *testing.T) {
	key, hash, prefix := GenerateAPIKey()

	require.True(t, strings.HasPrefix(key, "hk_"))
	assert.Len(t, key, 3+64)
	assert.Len(t, prefix, 10)
	assert.True(t, strings.HasPrefix(key, prefix))
	assert.Equal(t, HashAPIKey(key), hash)
}
