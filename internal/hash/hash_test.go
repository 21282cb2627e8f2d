package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hashed, err := HashPassword("secret")
	require.NoError(t, err)
	require.NotEmpty(t, hashed)
	require.NotEqual(t, "secret", hashed)

	again, err := HashPassword("secret")
	require.NoError(t, err)
	require.NotEqual(t, hashed, again, "bcrypt salts must differ")
}

func TestCheckPassword(t *testing.T) {
	hashed, err := HashPassword("secret")
	require.NoError(t, err)

	require.True(t, CheckPassword(hashed, "secret"))
	require.False(t, CheckPassword(hashed, "wrong"))
	require.False(t, CheckPassword("not-a-hash", "secret"))
}
