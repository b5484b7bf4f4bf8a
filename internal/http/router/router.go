package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/phone-auth-backend/internal/config"
	"github.com/ignatzorin/phone-auth-backend/internal/http/handlers"
	"github.com/ignatzorin/phone-auth-backend/internal/http/middleware"
	"github.com/ignatzorin/phone-auth-backend/internal/service"
)

// SetupRouter собирает gin engine со всеми маршрутами сервиса.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/send-login-code", authHandler.SendLoginCode)
		authGroup.POST("/send-reset-code", authHandler.SendResetCode)
		authGroup.POST("/verify-code", authHandler.VerifyCode)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
	}

	protected := api.Group("/auth")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/me", authHandler.Me)
	}

	return r
}
