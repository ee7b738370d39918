package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/o1egl/paseto"
)

const (
	// Set expiration times for access and refresh tokens.
	AccessTokenExpiry  = 24 * time.Hour
	RefreshTokenExpiry = 7 * 24 * time.Hour
)

// Token kinds
const (
	AccessToken  = "access"
	RefreshToken = "refresh"
)

var (
	ErrInvalidKey   = errors.New("symmetric key must be 32 bytes long")
	ErrTokenExpired = errors.New("token expired")
	ErrWrongKind    = errors.New("unexpected token kind")
)

// TokenClaims is the data carried in a PASETO token.
type TokenClaims struct {
	UserID    string    `json:"userId"`
	SessionID string    `json:"sessionId"`
	Kind      string    `json:"kind"`
	Expiry    time.Time `json:"expiry"`
}

// TokenMaker issues and decrypts PASETO v2 local tokens.
type TokenMaker struct {
	key   []byte
	v2    *paseto.V2
	nowFn func() time.Time
}

// NewTokenMaker builds a TokenMaker from a 32 byte symmetric key.
func NewTokenMaker(symmetricKey string) (*TokenMaker, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKey, len(symmetricKey))
	}
	return &TokenMaker{key: []byte(symmetricKey), v2: paseto.NewV2(), nowFn: time.Now}, nil
}

// GenerateTokens generates both the access token and refresh token for the given session.
func (m *TokenMaker) GenerateTokens(userID, sessionID string) (accessToken, refreshToken string, err error) {
	accessToken, err = m.generate(userID, sessionID, AccessToken, AccessTokenExpiry)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = m.generate(userID, sessionID, RefreshToken, RefreshTokenExpiry)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// GenerateAccessToken generates only the access token for a session.
func (m *TokenMaker) GenerateAccessToken(userID, sessionID string) (string, error) {
	return m.generate(userID, sessionID, AccessToken, AccessTokenExpiry)
}

func (m *TokenMaker) generate(userID, sessionID, kind string, expiry time.Duration) (string, error) {
	claims := TokenClaims{
		UserID:    userID,
		SessionID: sessionID,
		Kind:      kind,
		Expiry:    m.nowFn().Add(expiry),
	}
	token, err := m.v2.Encrypt(m.key, claims, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

// ValidateToken decrypts the token and checks its expiry and kind.
func (m *TokenMaker) ValidateToken(tokenString, kind string) (*TokenClaims, error) {
	var claims TokenClaims
	if err := m.v2.Decrypt(tokenString, m.key, &claims, nil); err != nil {
		return nil, fmt.Errorf("failed to decrypt token: %w", err)
	}
	if m.nowFn().After(claims.Expiry) {
		return nil, ErrTokenExpired
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}
	return &claims, nil
}
