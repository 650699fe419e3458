package handler

import (
	"stablecoin-checkout/internal/adapter/http/middleware"
	redisStore "stablecoin-checkout/internal/adapter/storage/redis"
	"stablecoin-checkout/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	CheckoutSvc    ports.CheckoutService
	TokenSvc       ports.SessionTokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies Redis and the processor)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	checkoutHandler := NewCheckoutHandler(deps.CheckoutSvc, deps.TokenSvc)
	eventsHandler := NewEventsHandler(deps.CheckoutSvc, deps.Logger)
	sessionAuth := middleware.SessionAuth(deps.TokenSvc)

	v1 := r.Group("/api/v1/checkout")

	// Opening a session is the only unauthenticated call; it issues the token
	// every other route requires.
	v1.POST("/sessions", rl("sessions"), checkoutHandler.OpenSession)

	sessions := v1.Group("/sessions/:id", sessionAuth)
	{
		sessions.GET("", checkoutHandler.GetSession)
		sessions.POST("/details", rl("details"), checkoutHandler.SubmitDetails)
		sessions.POST("/balance/refresh", rl("balance"), checkoutHandler.RefreshBalance)
		sessions.POST("/finalize", rl("finalize"), checkoutHandler.Finalize)
		sessions.POST("/back", checkoutHandler.Back)
		sessions.DELETE("", checkoutHandler.CloseSession)
		sessions.GET("/events", eventsHandler.Stream)
	}

	return r
}
