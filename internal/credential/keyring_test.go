package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultToken(t *testing.T) {
	v := NewVault(keyring.NewArrayKeyring(nil))

	tok, err := v.Token()
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, v.SetToken("abc123"))
	tok, err = v.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc123", tok)

	require.NoError(t, v.DeleteToken())
	tok, err = v.Token()
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestVaultDeleteMissing(t *testing.T) {
	v := NewVault(keyring.NewArrayKeyring(nil))
	assert.NoError(t, v.Delete("nothing-here"))
}
