package services

import (
	"HealPing/models"
	"HealPing/utils"
	"context"

	"github.com/rs/zerolog/log"
)

// Navigation targets
const (
	HomePath             = "/"
	LoginPath            = "/auth/login"
	SelectRolePath       = "/auth/select-role"
	DashboardPath        = "/dashboard"
	DoctorDashboardPath  = "/dashboard/doctor"
	PatientDashboardPath = "/dashboard/patient"
	ClinicRegisterPath   = "/clinic/register"
)

// GateState is the outcome of evaluating a request's session.
type GateState string

const (
	Unauthenticated GateState = "unauthenticated"
	NeedsProfile    GateState = "needs_profile"
	Authorized      GateState = "authorized"
)

// Decision is the result of running the session gate, the profile resolver
// and the role router for one request.
type Decision struct {
	State     GateState       `json:"state"`
	UserID    string          `json:"user_id,omitempty"`
	SessionID string          `json:"-"`
	Role      string          `json:"role,omitempty"`
	Profile   *models.Profile `json:"profile,omitempty"`
	Redirect  string          `json:"redirect"`
}

// RouteForRole maps a role to its landing page.
func RouteForRole(role string) string {
	switch role {
	case models.RoleDoctor:
		return DoctorDashboardPath
	case models.RolePatient:
		return PatientDashboardPath
	case "":
		return LoginPath
	default:
		return DashboardPath
	}
}

// SessionChecker reports whether a session is still active.
type SessionChecker interface {
	IsActive(ctx context.Context, userID, sessionID string) (bool, error)
}

// ProfileFinder fetches at most one profile for a user, returning nil when none exists.
type ProfileFinder interface {
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
}

// Gate decides, once per request, whether the caller is signed in, has a
// profile, and where they belong.
type Gate struct {
	tokens   *utils.TokenMaker
	sessions SessionChecker
	profiles ProfileFinder
}

func NewGate(tokens *utils.TokenMaker, sessions SessionChecker, profiles ProfileFinder) *Gate {
	return &Gate{tokens: tokens, sessions: sessions, profiles: profiles}
}

// Evaluate runs the gate for an access token. It never fails: every error
// degrades to a redirect.
func (g *Gate) Evaluate(ctx context.Context, accessToken string) Decision {
	if accessToken == "" {
		return Decision{State: Unauthenticated, Redirect: LoginPath}
	}

	claims, err := g.tokens.ValidateToken(accessToken, utils.AccessToken)
	if err != nil {
		log.Debug().Err(err).Msg("Rejected access token")
		return Decision{State: Unauthenticated, Redirect: LoginPath}
	}

	active, err := g.sessions.IsActive(ctx, claims.UserID, claims.SessionID)
	if err != nil {
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to check session")
		return Decision{State: Unauthenticated, Redirect: LoginPath}
	}
	if !active {
		return Decision{State: Unauthenticated, Redirect: LoginPath}
	}

	return g.Resolve(ctx, claims.UserID, claims.SessionID)
}

// Resolve runs the profile resolver and role router for an authenticated user.
func (g *Gate) Resolve(ctx context.Context, userID, sessionID string) Decision {
	profile, err := g.profiles.GetByUserID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to resolve profile")
		return Decision{State: Unauthenticated, Redirect: HomePath}
	}
	if profile == nil {
		return Decision{State: NeedsProfile, UserID: userID, SessionID: sessionID, Redirect: SelectRolePath}
	}
	return Decision{
		State:     Authorized,
		UserID:    userID,
		SessionID: sessionID,
		Role:      profile.Role,
		Profile:   profile,
		Redirect:  RouteForRole(profile.Role),
	}
}
