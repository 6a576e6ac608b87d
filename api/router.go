package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/courtbooking/internal/logger"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Courts        *CourtHandler
	Bookings      *BookingHandler
	Payments      *PaymentHandler
	Notifications *NotificationHandler
}

// NewRouter mounts every handler under /v1. Everything except the court
// catalogue and the gateway webhook requires a bearer token.
func NewRouter(jwtSecret string, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	h.Courts.Register(v1)
	h.Payments.RegisterWebhook(v1)

	secured := v1.Group("")
	secured.Use(JWTAuth(jwtSecret))
	h.Bookings.Register(secured)
	h.Payments.Register(secured)
	h.Notifications.Register(secured)

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.InfoContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
