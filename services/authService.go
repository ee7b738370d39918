package services

import (
	"HealPing/cache"
	"HealPing/models"
	"HealPing/repositories"
	"HealPing/utils"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	resetCodeExpiry        = 15 * time.Minute
	verificationCodeExpiry = 24 * time.Hour
	// maxCodeAttempts wrong guesses discard a reset or verification code.
	maxCodeAttempts = 5
)

var (
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrInvalidResetCode        = errors.New("invalid reset code")
	ErrInvalidVerificationCode = errors.New("invalid verification code")
	ErrEmailNotVerified        = fmt.Errorf("%w: email address not verified", ErrForbidden)
)

// Tokens is the pair handed out on sign-in.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type AuthService struct {
	users    repositories.UserRepository
	sessions *SessionStore
	tokens   *utils.TokenMaker
	cache    *cache.Cache
	mailer   utils.Mailer
}

func NewAuthService(users repositories.UserRepository, sessions *SessionStore, tokens *utils.TokenMaker, cache *cache.Cache, mailer utils.Mailer) *AuthService {
	return &AuthService{users: users, sessions: sessions, tokens: tokens, cache: cache, mailer: mailer}
}

// Register creates a user, signs them in and mails a verification code. The
// new user has no profile yet.
func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, *Tokens, error) {
	email = normalizeEmail(email)
	if err := utils.ValidateCredentials(email, password); err != nil {
		return nil, nil, invalid(err)
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}

	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Email: email, Password: hashedPassword}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, nil, err
	}

	tokens, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.issueVerificationCode(ctx, user.Email); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to send verification code")
	}
	return user, tokens, nil
}

// Login checks the credentials and opens a new session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *Tokens, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, nil, fmt.Errorf("authentication failed: %w", err)
	}
	if user == nil || !utils.CheckPassword(user.Password, password) {
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Logout revokes the session behind an access token.
func (s *AuthService) Logout(ctx context.Context, userID, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Close(ctx, userID, sessionID)
}

// Refresh issues a new access token for a live refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.ValidateToken(refreshToken, utils.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	active, err := s.sessions.IsActive(ctx, claims.UserID, claims.SessionID)
	if err != nil {
		return "", err
	}
	if !active {
		return "", fmt.Errorf("%w: session revoked", ErrUnauthorized)
	}
	return s.tokens.GenerateAccessToken(claims.UserID, claims.SessionID)
}

// SendResetCode mails a password reset code. Unknown emails are ignored so
// the endpoint does not reveal which addresses are registered.
func (s *AuthService) SendResetCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		log.Info().Str("email", email).Msg("Reset code requested for unknown email")
		return nil
	}

	code, err := utils.GenerateResetCode()
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, resetCodeKey(user.Email), code, resetCodeExpiry); err != nil {
		return fmt.Errorf("failed to set reset code: %w", err)
	}
	if s.mailer == nil {
		return errors.New("email delivery is not configured")
	}
	return utils.SendResetCodeEmail(s.mailer, user.Email, code)
}

// ChangePassword sets a new password when the reset code matches and signs
// the user out of every session.
func (s *AuthService) ChangePassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	if err := utils.ValidatePasswordReset(code, newPassword); err != nil {
		return invalid(err)
	}

	ok, err := s.checkCode(ctx, resetCodeKey(email), code, resetCodeExpiry)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidResetCode
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidResetCode
	}

	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdateUserPassword(ctx, user.ID, hashedPassword); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.cache.DeleteBatch(ctx, resetCodeKey(email), attemptsKey(resetCodeKey(email))); err != nil {
		log.Warn().Err(err).Msg("Failed to delete reset code")
	}
	if err := s.sessions.CloseAll(ctx, user.ID); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to revoke sessions after password change")
	}
	return nil
}

// SendVerificationCode mails a fresh verification code to the user's address.
func (s *AuthService) SendVerificationCode(ctx context.Context, userID string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return fmt.Errorf("%w: email already verified", ErrConflict)
	}
	return s.issueVerificationCode(ctx, user.Email)
}

// VerifyEmail marks the user's address as owned when code matches.
func (s *AuthService) VerifyEmail(ctx context.Context, userID, code string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return nil
	}

	key := verificationCodeKey(user.Email)
	ok, err := s.checkCode(ctx, key, strings.TrimSpace(code), verificationCodeExpiry)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidVerificationCode
	}
	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return translate(err)
	}
	if err := s.cache.DeleteBatch(ctx, key, attemptsKey(key)); err != nil {
		log.Warn().Err(err).Msg("Failed to delete verification code")
	}
	return nil
}

func (s *AuthService) issueVerificationCode(ctx context.Context, email string) error {
	code, err := utils.GenerateResetCode()
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, verificationCodeKey(email), code, verificationCodeExpiry); err != nil {
		return fmt.Errorf("failed to set verification code: %w", err)
	}
	if s.mailer == nil {
		return errors.New("email delivery is not configured")
	}
	return utils.SendVerificationCodeEmail(s.mailer, email, code)
}

// checkCode compares code with the one stored under key. Every wrong guess is
// counted and the stored code is discarded after maxCodeAttempts of them.
func (s *AuthService) checkCode(ctx context.Context, key, code string, expiry time.Duration) (bool, error) {
	stored, err := s.cache.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if stored == "" {
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) == 1 {
		return true, nil
	}

	attempts, err := s.cache.Incr(ctx, attemptsKey(key), expiry)
	if err != nil {
		return false, err
	}
	if attempts >= maxCodeAttempts {
		log.Warn().Str("key", key).Int64("attempts", attempts).Msg("Too many wrong codes, discarding")
		if err := s.cache.Delete(ctx, key); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (s *AuthService) Roles(ctx context.Context) ([]models.Role, error) {
	return s.users.ListRoles(ctx)
}

func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *AuthService) openSession(ctx context.Context, userID string) (*Tokens, error) {
	sessionID := uuid.New().String()
	accessToken, refreshToken, err := s.tokens.GenerateTokens(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Open(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return &Tokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func resetCodeKey(email string) string {
	return "reset_code:" + email
}

func verificationCodeKey(email string) string {
	return "verify_code:" + email
}

func attemptsKey(key string) string {
	return key + ":attempts"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
