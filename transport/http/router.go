package http

import (
	"net/http"

	"github.com/cosmifi/gateway/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterConfig carries the collaborators of the HTTP layer
type RouterConfig struct {
	Gate        Authenticator
	AuthService *service.AuthService
	Logger      *zap.Logger

	// MetricsPath exposes prometheus metrics when non-empty
	MetricsPath string
}

// SetupRouter sets up the Gin router
func SetupRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true

	// CORS goes first so preflights never reach authentication
	router.Use(
		CORS(),
		RequestID(),
		RequestLogger(log.Named("http")),
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			log.Error("handler panic", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
			Error(c, "Internal server error", http.StatusInternalServerError)
		}),
	)

	router.NoRoute(func(c *gin.Context) {
		Error(c, "Not found", http.StatusNotFound)
	})
	router.NoMethod(func(c *gin.Context) {
		Error(c, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// Create handlers
	handlers := NewAuthHandlers(cfg.AuthService)

	router.GET("/healthz", Healthz)
	if cfg.MetricsPath != "" {
		router.GET(cfg.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/verify-wallet", handlers.VerifyWallet)
		auth.POST("/logout", handlers.Logout)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(cfg.Gate))
	{
		api.GET("/me", handlers.Me)
		api.GET("/authorize", handlers.Authorize)
	}

	return router
}
