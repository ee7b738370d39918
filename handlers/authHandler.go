package handlers

import (
	"HealPing/middlewares"
	"HealPing/services"
	"HealPing/utils"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth *services.AuthService
	gate *services.Gate
}

func NewAuthHandler(auth *services.AuthService, gate *services.Gate) *AuthHandler {
	return &AuthHandler{auth: auth, gate: gate}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account. The new user still has to pick a role.
func (h *AuthHandler) Register(c *gin.Context) {
	var body credentials
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, tokens, err := h.auth.Register(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}

	utils.SetAuthCookies(c, tokens.AccessToken, tokens.RefreshToken)
	c.JSON(http.StatusCreated, gin.H{
		"user":         user,
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
		"redirect":     services.SelectRolePath,
	})
}

// Login signs the user in and tells the client where the role router sends them.
func (h *AuthHandler) Login(c *gin.Context) {
	var body credentials
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	user, tokens, err := h.auth.Login(ctx, body.Email, body.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}

	utils.SetAuthCookies(c, tokens.AccessToken, tokens.RefreshToken)
	decision := h.gate.Evaluate(ctx, tokens.AccessToken)
	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
		"state":        decision.State,
		"role":         decision.Role,
		"redirect":     decision.Redirect,
	})
}

// Logout revokes the current session and clears the cookies.
func (h *AuthHandler) Logout(c *gin.Context) {
	decision := middlewares.DecisionFrom(c)
	if err := h.auth.Logout(c.Request.Context(), decision.UserID, decision.SessionID); err != nil {
		middlewares.HttpError(c, "Failed to log out", http.StatusInternalServerError, err)
		return
	}
	utils.ClearAuthCookies(c)
	c.JSON(http.StatusOK, gin.H{"redirect": services.LoginPath})
}

// Session reports the gate decision without enforcing it.
func (h *AuthHandler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, middlewares.DecisionFrom(c))
}

// Callback sends the browser wherever the gate decides.
func (h *AuthHandler) Callback(c *gin.Context) {
	c.Redirect(http.StatusFound, middlewares.DecisionFrom(c).Redirect)
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = c.ShouldBindJSON(&body)
	if body.RefreshToken == "" {
		if cookie, err := c.Cookie(utils.RefreshTokenCookie); err == nil {
			body.RefreshToken = cookie
		}
	}
	if body.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh token is required"})
		return
	}

	accessToken, err := h.auth.Refresh(c.Request.Context(), body.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token", "redirect": services.LoginPath})
		return
	}

	utils.SetAccessCookie(c, accessToken)
	c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}

func (h *AuthHandler) SendResetCode(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	if err := h.auth.SendResetCode(c.Request.Context(), body.Email); err != nil {
		middlewares.HttpError(c, "Failed to send reset code", http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the email is registered, a reset code has been sent"})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var body struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), body.Email, body.Code, body.NewPassword)
	if errors.Is(err, services.ErrInvalidResetCode) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset code"})
		return
	}
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated", "redirect": services.LoginPath})
}

// Roles lists the roles a user can pick on the role selection page.
func (h *AuthHandler) Roles(c *gin.Context) {
	roles, err := h.auth.Roles(c.Request.Context())
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

// VerifyEmail confirms the signed-in user's address with the mailed code.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var body struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	err := h.auth.VerifyEmail(c.Request.Context(), middlewares.DecisionFrom(c).UserID, body.Code)
	if errors.Is(err, services.ErrInvalidVerificationCode) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired verification code"})
		return
	}
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified"})
}

func (h *AuthHandler) ResendVerification(c *gin.Context) {
	if err := h.auth.SendVerificationCode(c.Request.Context(), middlewares.DecisionFrom(c).UserID); err != nil {
		if errors.Is(err, services.ErrConflict) || errors.Is(err, services.ErrNotFound) {
			middlewares.RespondError(c, err)
			return
		}
		middlewares.HttpError(c, "Failed to send verification code", http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent"})
}
