package handler

import (
	"chainpay-gateway/internal/adapter/http/middleware"
	"chainpay-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	PaymentSvc     ports.PaymentService
	AttemptRepo    ports.WebhookAttemptRepository
	TokenSvc       ports.TokenService
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

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	paymentHandler := NewPaymentHandler(deps.PaymentSvc, deps.AttemptRepo)
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	v1 := r.Group("/api/v1")

	payments := v1.Group("/payments")
	{
		// Creation is authenticated; the payment status page is public so a
		// payer can watch their own payment by ID.
		payments.POST("", jwtAuth, paymentHandler.CreatePayment)
		payments.GET("/:id", paymentHandler.GetPayment)
		payments.GET("/:id/attempts", jwtAuth, paymentHandler.ListAttempts)
	}

	return r
}
