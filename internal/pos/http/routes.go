package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// RateLimitConfig holds the pairing rate limit settings.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// RegisterRoutes returns a registrar wiring the POS API under /v1/pos.
// Every route requires a tenant header; the pairing endpoints additionally
// carry a per-IP rate limit since they run before any device credential exists.
func RegisterRoutes(
	deviceHandler *DeviceHandler,
	syncHandler *SyncHandler,
	rateLimit RateLimitConfig,
	logger *slog.Logger,
) func(*gin.Engine) {
	return func(router *gin.Engine) {
		pos := router.Group("/v1/pos")
		pos.Use(TenantMiddleware(logger))

		pairing := pos.Group("/devices/pairing")
		if rateLimit.Enabled {
			pairing.Use(PairingRateLimitMiddleware(rateLimit.RequestsPerSecond, rateLimit.Burst, logger))
		}
		{
			pairing.POST("", deviceHandler.InitiatePairingHandler)
			pairing.POST("/complete", deviceHandler.CompletePairingHandler)
		}

		devices := pos.Group("/devices")
		{
			devices.GET("", deviceHandler.ListHandler)
			devices.POST("/:id/heartbeat", deviceHandler.HeartbeatHandler)
			devices.POST("/:id/suspend", deviceHandler.SuspendHandler)
			devices.POST("/:id/reactivate", deviceHandler.ReactivateHandler)
			devices.POST("/:id/retire", deviceHandler.RetireHandler)
		}

		offline := pos.Group("/offline")
		{
			offline.POST("/upload", syncHandler.UploadHandler)
			offline.GET("/status/:deviceID", syncHandler.StatusHandler)
		}
	}
}
