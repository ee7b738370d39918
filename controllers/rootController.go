package controllers

import (
	"HealPing/handlers"
	"HealPing/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

// rootHandler handles requests to the root path
func rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to HealPing", "login": services.LoginPath})
}

// SetupRootRoute registers the landing, health and legacy auth routes.
func SetupRootRoute(router *gin.Engine, health *handlers.HealthHandler) {
	router.GET("/", rootHandler)
	router.GET("/healthz", health.Health)

	// "/auth" is an alias of the canonical login page.
	router.GET("/auth", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, services.LoginPath)
	})
}
