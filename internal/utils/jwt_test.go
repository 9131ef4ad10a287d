package utils_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/timeslot-reservation/internal/utils"
)

func Test_NewAccessToken_RoundTrip(t *testing.T) {
	const secret = "test-secret"

	at, err := utils.NewAccessToken(secret, 42, "CUSTOMER", 15)
	require.NoError(t, err)
	require.NotEmpty(t, at.Token)

	tok, err := jwt.Parse(at.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	require.True(t, tok.Valid)

	claims := tok.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(42), claims["sub"])
	assert.Equal(t, "CUSTOMER", claims["role"])
}

func Test_NewAccessToken_WrongSecretFails(t *testing.T) {
	at, err := utils.NewAccessToken("right", 1, "ADMIN", 15)
	require.NoError(t, err)

	_, err = jwt.Parse(at.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("wrong"), nil
	})
	assert.Error(t, err)
}

func Test_RefreshToken_HashIsStable(t *testing.T) {
	rt, err := utils.NewRefreshToken(30)
	require.NoError(t, err)
	require.Len(t, rt.Raw, 96)

	assert.Equal(t, utils.HashRefreshRaw(rt.Raw), utils.HashRefreshRaw(rt.Raw))
	other, err := utils.NewRefreshToken(30)
	require.NoError(t, err)
	assert.NotEqual(t, utils.HashRefreshRaw(rt.Raw), utils.HashRefreshRaw(other.Raw))
}

func Test_Password_RoundTrip(t *testing.T) {
	hash, err := utils.HashPassword("s3cret", 4)
	require.NoError(t, err)

	assert.True(t, utils.VerifyPassword(hash, "s3cret"))
	assert.False(t, utils.VerifyPassword(hash, "wrong"))
}
