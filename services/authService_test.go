package services

import (
	"HealPing/utils"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "Str0ng!Pass"

func newTestAuthService(t *testing.T) (*AuthService, *fakeMailer, *SessionStore) {
	t.Helper()
	c, _ := newTestCache(t)
	tokens, err := utils.NewTokenMaker(testKey)
	require.NoError(t, err)
	mailer := &fakeMailer{}
	sessions := NewSessionStore(c)
	return NewAuthService(newFakeUserRepository(), sessions, tokens, c, mailer), mailer, sessions
}

func TestRegisterAndLogin(t *testing.T) {
	auth, _, _ := newTestAuthService(t)
	ctx := context.Background()

	user, tokens, err := auth.Register(ctx, "  Doc@Example.com ", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "doc@example.com", user.Email)
	assert.NotEqual(t, testPassword, user.Password)
	assert.NotEmpty(t, tokens.AccessToken)

	_, _, err = auth.Register(ctx, "doc@example.com", testPassword)
	assert.ErrorIs(t, err, ErrConflict)

	_, _, err = auth.Register(ctx, "not-an-email", testPassword)
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = auth.Register(ctx, "weak@example.com", "password")
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = auth.Login(ctx, "doc@example.com", "Wr0ng!Pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = auth.Login(ctx, "nobody@example.com", testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	loggedIn, _, err := auth.Login(ctx, "DOC@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
}

func TestRefreshAndLogout(t *testing.T) {
	auth, _, _ := newTestAuthService(t)
	ctx := context.Background()

	tokenMaker, err := utils.NewTokenMaker(testKey)
	require.NoError(t, err)

	_, tokens, err := auth.Register(ctx, "doc@example.com", testPassword)
	require.NoError(t, err)

	access, err := auth.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, access)

	_, err = auth.Refresh(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized, "an access token cannot refresh")

	claims, err := tokenMaker.ValidateToken(tokens.AccessToken, utils.AccessToken)
	require.NoError(t, err)
	require.NoError(t, auth.Logout(ctx, claims.UserID, claims.SessionID))

	_, err = auth.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestPasswordResetRevokesSessions(t *testing.T) {
	auth, mailer, sessions := newTestAuthService(t)
	ctx := context.Background()

	tokenMaker, err := utils.NewTokenMaker(testKey)
	require.NoError(t, err)

	_, first, err := auth.Register(ctx, "doc@example.com", testPassword)
	require.NoError(t, err)
	_, second, err := auth.Login(ctx, "doc@example.com", testPassword)
	require.NoError(t, err)
	mailer.to, mailer.plain = nil, nil

	// Unknown emails are accepted silently.
	require.NoError(t, auth.SendResetCode(ctx, "nobody@example.com"))
	assert.Empty(t, mailer.to)

	require.NoError(t, auth.SendResetCode(ctx, "Doc@Example.com"))
	require.Len(t, mailer.to, 1)
	assert.Equal(t, "doc@example.com", mailer.to[0])

	code, err := auth.cache.Get(ctx, "reset_code:doc@example.com")
	require.NoError(t, err)
	require.Len(t, code, 6)
	assert.Contains(t, mailer.plain[0], code)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	err = auth.ChangePassword(ctx, "doc@example.com", wrong, "N3w!Password")
	assert.ErrorIs(t, err, ErrInvalidResetCode)

	err = auth.ChangePassword(ctx, "doc@example.com", code, "short")
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, auth.ChangePassword(ctx, "doc@example.com", code, "N3w!Password"))

	for _, tokens := range []*Tokens{first, second} {
		claims, err := tokenMaker.ValidateToken(tokens.AccessToken, utils.AccessToken)
		require.NoError(t, err)
		active, err := sessions.IsActive(ctx, claims.UserID, claims.SessionID)
		require.NoError(t, err)
		assert.False(t, active, "every session is closed after a password change")
	}

	_, _, err = auth.Login(ctx, "doc@example.com", testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = auth.Login(ctx, "doc@example.com", "N3w!Password")
	assert.NoError(t, err)

	// The code is single use.
	err = auth.ChangePassword(ctx, "doc@example.com", code, "An0ther!Pass")
	assert.ErrorIs(t, err, ErrInvalidResetCode)
}

func TestResetCodeDiscardedAfterTooManyGuesses(t *testing.T) {
	auth, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, _, err := auth.Register(ctx, "doc@example.com", testPassword)
	require.NoError(t, err)
	require.NoError(t, auth.SendResetCode(ctx, "doc@example.com"))
	code, err := auth.cache.Get(ctx, "reset_code:doc@example.com")
	require.NoError(t, err)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < maxCodeAttempts; i++ {
		err := auth.ChangePassword(ctx, "doc@example.com", wrong, "N3w!Password")
		assert.ErrorIs(t, err, ErrInvalidResetCode)
	}

	err = auth.ChangePassword(ctx, "doc@example.com", code, "N3w!Password")
	assert.ErrorIs(t, err, ErrInvalidResetCode, "the right code no longer works")
	_, _, err = auth.Login(ctx, "doc@example.com", testPassword)
	assert.NoError(t, err)
}

func TestEmailVerification(t *testing.T) {
	auth, mailer, _ := newTestAuthService(t)
	ctx := context.Background()

	user, _, err := auth.Register(ctx, "pat@example.com", testPassword)
	require.NoError(t, err)
	assert.False(t, user.EmailVerified)
	require.Equal(t, []string{"pat@example.com"}, mailer.to)

	code, err := auth.cache.Get(ctx, "verify_code:pat@example.com")
	require.NoError(t, err)
	require.Len(t, code, 6)
	assert.Contains(t, mailer.plain[0], code)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	assert.ErrorIs(t, auth.VerifyEmail(ctx, user.ID, wrong), ErrInvalidVerificationCode)

	require.NoError(t, auth.VerifyEmail(ctx, user.ID, code))
	verified, err := auth.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)

	assert.ErrorIs(t, auth.SendVerificationCode(ctx, user.ID), ErrConflict)
	assert.NoError(t, auth.VerifyEmail(ctx, user.ID, "ignored"), "already verified")
}

func TestSessionStore(t *testing.T) {
	c, server := newTestCache(t)
	sessions := NewSessionStore(c)
	ctx := context.Background()

	require.NoError(t, sessions.Open(ctx, "u1", "s1"))
	require.NoError(t, sessions.Open(ctx, "u1", "s2"))
	require.NoError(t, sessions.Open(ctx, "u2", "s3"))
	assert.True(t, server.Exists("session:u1:s1"))

	active, err := sessions.IsActive(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.True(t, active)

	active, err = sessions.IsActive(ctx, "u1", "")
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, sessions.Close(ctx, "u1", "s1"))
	active, err = sessions.IsActive(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, sessions.CloseAll(ctx, "u1"))
	assert.False(t, server.Exists("session:u1:s2"))
	assert.True(t, server.Exists("session:u2:s3"))
}
