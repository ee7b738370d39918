package middlewares

import (
	"HealPing/models"
	"HealPing/services"
	"HealPing/utils"
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type contextKey string

const decisionKey contextKey = "gateDecision"

// Evaluator runs the session gate for an access token.
type Evaluator interface {
	Evaluate(ctx context.Context, accessToken string) services.Decision
}

// SessionGate evaluates the caller once per request and stores the decision
// in the request context. It never rejects a request by itself.
func SessionGate(gate Evaluator) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := gate.Evaluate(c.Request.Context(), accessTokenFrom(c))
		ctx := context.WithValue(c.Request.Context(), decisionKey, decision)
		c.Request = c.Request.WithContext(ctx)
		if decision.UserID != "" {
			c.Set("user_id", decision.UserID)
		}
		c.Next()
	}
}

// accessTokenFrom reads the access token from the Authorization header, then the cookie.
func accessTokenFrom(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if token, err := c.Cookie(utils.AccessTokenCookie); err == nil {
		return token
	}
	return ""
}

// RequireAuthorized lets through callers with a profile. Others are sent to
// the gate's redirect.
func RequireAuthorized() gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := DecisionFrom(c)
		switch decision.State {
		case services.Authorized:
			c.Next()
		case services.NeedsProfile:
			deny(c, http.StatusForbidden, "profile required", decision.Redirect)
		default:
			deny(c, http.StatusUnauthorized, "authentication required", decision.Redirect)
		}
	}
}

// RequireSession lets through any signed-in caller, with or without a profile.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := DecisionFrom(c)
		if decision.State == services.Unauthenticated {
			deny(c, http.StatusUnauthorized, "authentication required", decision.Redirect)
			return
		}
		c.Next()
	}
}

// RequireRoles restricts a route to the listed roles. It must run after RequireAuthorized.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := DecisionFrom(c).Role
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: insufficient privileges"})
	}
}

// RequireClinic rejects clinic members whose profile is not attached to a clinic yet.
func RequireClinic() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile := DecisionFrom(c).Profile
		if profile == nil || !profile.HasClinic() {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error":    "clinic registration required",
				"redirect": services.ClinicRegisterPath,
			})
			return
		}
		c.Next()
	}
}

func deny(c *gin.Context, status int, message, redirect string) {
	if wantsHTML(c) {
		c.Redirect(http.StatusFound, redirect)
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message, "redirect": redirect})
}

func wantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}

// DecisionFrom returns the gate decision stored by SessionGate. Without one
// the caller is unauthenticated.
func DecisionFrom(c *gin.Context) services.Decision {
	if decision, ok := c.Request.Context().Value(decisionKey).(services.Decision); ok {
		return decision
	}
	return services.Decision{State: services.Unauthenticated, Redirect: services.LoginPath}
}

// CurrentProfile returns the caller's profile, or nil when there is none.
func CurrentProfile(c *gin.Context) *models.Profile {
	return DecisionFrom(c).Profile
}

// CurrentClinicID returns the clinic of the caller's profile.
func CurrentClinicID(c *gin.Context) string {
	profile := CurrentProfile(c)
	if profile == nil || profile.ClinicID == nil {
		return ""
	}
	return *profile.ClinicID
}
