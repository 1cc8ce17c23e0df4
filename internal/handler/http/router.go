package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/daon-network/auth-service/internal/handler/http/middleware"
	"github.com/daon-network/auth-service/internal/service"
)

// SetupRouter wires the HTTP surface of the auth service.
func SetupRouter(
	authService *service.AuthService,
	verifier service.AccessTokenVerifier,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.CORS())
	router.Use(middleware.Metrics())
	router.Use(middleware.DeviceContext())

	authHandler := NewAuthHandler(authService, logger)
	deviceHandler := NewDeviceHandler(authService, logger)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/readiness", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/magic-link", authHandler.RequestMagicLink)
			auth.POST("/magic-link/redeem", authHandler.RedeemMagicLink)
			auth.POST("/2fa/setup/confirm", authHandler.ConfirmSetup)
			auth.POST("/2fa/verify", authHandler.CompleteVerify)
			auth.POST("/token/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
		}

		protected := api.Group("")
		protected.Use(middleware.Auth(verifier))
		{
			protected.POST("/auth/sessions/revoke-all", authHandler.RevokeAllSessions)
			protected.POST("/auth/2fa/backup-codes/regenerate", authHandler.RegenerateBackupCodes)
			protected.POST("/auth/2fa/disable", authHandler.DisableTwoFA)

			devices := protected.Group("/devices")
			{
				devices.GET("", deviceHandler.List)
				devices.PATCH("/:id", deviceHandler.Rename)
				devices.POST("/:id/revoke", deviceHandler.Revoke)
			}
		}
	}

	return router
}
