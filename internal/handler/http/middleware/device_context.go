package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/daon-network/auth-service/internal/domain/models"
)

// Headers carrying the client device identity. The stable id is minted by
// the server on first trust and persisted client-side; the fingerprint is
// computed by the client on every visit and may drift.
const (
	HeaderDeviceID          = "X-Device-Id"
	HeaderDeviceFingerprint = "X-Device-Fingerprint"
	HeaderScreenSize        = "X-Screen-Size"
	HeaderTimezone          = "X-Timezone"
)

const deviceContextKey = "device_context"

// DeviceContext collects the device headers, user agent and client IP once
// per request so handlers do not touch the raw request.
func DeviceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		dc := models.DeviceContext{
			UserAgent:   c.Request.UserAgent(),
			ClientIP:    c.ClientIP(),
			ScreenSize:  c.GetHeader(HeaderScreenSize),
			Timezone:    c.GetHeader(HeaderTimezone),
			StableID:    c.GetHeader(HeaderDeviceID),
			Fingerprint: c.GetHeader(HeaderDeviceFingerprint),
		}
		c.Set(deviceContextKey, dc)
		c.Next()
	}
}

// Device extracts the device context collected by DeviceContext.
func Device(c *gin.Context) models.DeviceContext {
	if v, ok := c.Get(deviceContextKey); ok {
		if dc, ok := v.(models.DeviceContext); ok {
			return dc
		}
	}
	return models.DeviceContext{
		UserAgent: c.Request.UserAgent(),
		ClientIP:  c.ClientIP(),
	}
}
