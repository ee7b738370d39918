package controllers

import (
	"HealPing/handlers"
	"HealPing/middlewares"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	Handler        *handlers.AuthHandler
	ProfileHandler *handlers.ProfileHandler
}

// NewAuthController creates a new AuthController with the given handlers
func NewAuthController(authHandler *handlers.AuthHandler, profileHandler *handlers.ProfileHandler) *AuthController {
	return &AuthController{
		Handler:        authHandler,
		ProfileHandler: profileHandler,
	}
}

// RegisterRoutes initializes the authentication and profile routes. The
// session gate must already be installed on the router.
func (ac *AuthController) RegisterRoutes(router *gin.Engine) {
	// Public routes: No authentication required
	router.POST("/auth/register", ac.Handler.Register)
	router.POST("/auth/login", ac.Handler.Login)
	router.POST("/auth/refresh-token", ac.Handler.RefreshToken)
	router.POST("/auth/send-reset-code", ac.Handler.SendResetCode)
	router.POST("/auth/change-password", ac.Handler.ChangePassword)
	router.GET("/auth/roles", ac.Handler.Roles)
	router.GET("/auth/session", ac.Handler.Session)
	router.GET("/auth/callback", ac.Handler.Callback)

	// Signed in, profile optional
	sessionGroup := router.Group("/").Use(middlewares.RequireSession())
	{
		sessionGroup.POST("/auth/logout", ac.Handler.Logout)
		sessionGroup.POST("/auth/verify-email", ac.Handler.VerifyEmail)
		sessionGroup.POST("/auth/verify-email/resend", ac.Handler.ResendVerification)
		sessionGroup.POST("/profiles", ac.ProfileHandler.CreateProfile)
	}

	profileGroup := router.Group("/profiles").Use(middlewares.RequireAuthorized())
	{
		profileGroup.GET("/me", ac.ProfileHandler.GetMyProfile)
		profileGroup.PUT("/me", ac.ProfileHandler.UpdateMyProfile)
	}
}
