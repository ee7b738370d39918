package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestNewTokenMakerRejectsShortKey(t *testing.T) {
	_, err := NewTokenMaker("short")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestGenerateAndValidateTokens(t *testing.T) {
	maker, err := NewTokenMaker(testKey)
	require.NoError(t, err)

	access, refresh, err := maker.GenerateTokens("user-1", "session-1")
	require.NoError(t, err)
	assert.NotEqual(t, access, refresh)

	claims, err := maker.ValidateToken(access, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Equal(t, AccessToken, claims.Kind)
	assert.WithinDuration(t, time.Now().Add(AccessTokenExpiry), claims.Expiry, time.Minute)

	_, err = maker.ValidateToken(refresh, AccessToken)
	assert.ErrorIs(t, err, ErrWrongKind)

	claims, err = maker.ValidateToken(refresh, RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, RefreshToken, claims.Kind)
}

func TestValidateTokenExpired(t *testing.T) {
	maker, err := NewTokenMaker(testKey)
	require.NoError(t, err)

	issued := time.Now()
	maker.nowFn = func() time.Time { return issued }
	token, err := maker.GenerateAccessToken("user-1", "session-1")
	require.NoError(t, err)

	maker.nowFn = func() time.Time { return issued.Add(AccessTokenExpiry + time.Second) }
	_, err = maker.ValidateToken(token, AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateTokenWrongKey(t *testing.T) {
	maker, err := NewTokenMaker(testKey)
	require.NoError(t, err)
	other, err := NewTokenMaker("abcdef0123456789abcdef0123456789")
	require.NoError(t, err)

	token, err := maker.GenerateAccessToken("user-1", "session-1")
	require.NoError(t, err)

	_, err = other.ValidateToken(token, AccessToken)
	assert.Error(t, err)
	_, err = maker.ValidateToken("garbage", AccessToken)
	assert.Error(t, err)
}
