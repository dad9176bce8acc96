package api

import (
	"github.com/gin-gonic/gin"

	"github.com/dinematters/dinematters/internal/api/cron"
	v1 "github.com/dinematters/dinematters/internal/api/v1"
	"github.com/dinematters/dinematters/internal/config"
	"github.com/dinematters/dinematters/internal/logger"
	"github.com/dinematters/dinematters/internal/rest/middleware"
)

// Handlers groups the HTTP handlers wired into the router
type Handlers struct {
	Webhook      *v1.WebhookHandler
	Tokenization *v1.TokenizationHandler
	BillingCron  *cron.BillingCronHandler
}

// NewRouter assembles the gin engine: public webhook intake, v1 routes
// and cron trigger routes.
func NewRouter(handlers Handlers, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(middleware.SentryMiddleware(cfg))
	router.Use(middleware.SentryContextMiddleware)
	router.Use(middleware.ErrorHandler(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Public intake path. Authenticity comes from the webhook signature,
	// not from platform auth.
	webhooks := router.Group("/webhooks")
	webhooks.Use(middleware.RateLimitMiddleware(cfg))
	webhooks.POST("/razorpay", handlers.Webhook.Receive)

	v1Group := router.Group("/v1")
	v1Group.POST("/restaurants/:id/tokenization", handlers.Tokenization.Start)

	cronGroup := router.Group("/cron")
	cronGroup.POST("/billing/ledgers", handlers.BillingCron.CreateMonthlyLedgers)
	cronGroup.POST("/billing/retries", handlers.BillingCron.SweepRetries)
	cronGroup.POST("/webhooks/reclaim", handlers.BillingCron.ReclaimStuckEvents)

	return router
}
