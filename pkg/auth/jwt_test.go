package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silicity/silicity-server/pkg/auth"
)

func TestParse_RoundTrip(t *testing.T) {
	token, err := auth.NewAccessToken(42, "secret", time.Minute)
	require.NoError(t, err)

	claims, err := auth.Parse(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := auth.NewAccessToken(42, "secret", time.Minute)
	require.NoError(t, err)

	_, err = auth.Parse(token, "other-secret")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParse_Expired(t *testing.T) {
	token, err := auth.NewAccessToken(42, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = auth.Parse(token, "secret")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParse_Garbage(t *testing.T) {
	_, err := auth.Parse("not.a.token", "secret")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
