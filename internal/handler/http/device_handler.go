package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/daon-network/auth-service/internal/handler/http/middleware"
	"github.com/daon-network/auth-service/internal/service"
)

// DeviceHandler serves the trusted-device management endpoints.
type DeviceHandler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

// NewDeviceHandler creates a DeviceHandler.
func NewDeviceHandler(auth *service.AuthService, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{auth: auth, logger: logger}
}

type deviceResponse struct {
	ID           uuid.UUID  `json:"id"`
	Label        string     `json:"label"`
	TrustedUntil time.Time  `json:"trusted_until"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	// Current marks the binding matching the calling device.
	Current bool `json:"current"`
}

// List returns the caller's device-trust bindings. Stable ids and
// fingerprints never leave the server.
func (h *DeviceHandler) List(c *gin.Context) {
	identityID, ok := middleware.IdentityID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}

	devices, err := h.auth.ListDevices(c.Request.Context(), identityID)
	if err != nil {
		respondDomainError(c, err, h.logger)
		return
	}

	current := middleware.Device(c).Key()
	out := make([]deviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceResponse{
			ID:           d.ID,
			Label:        d.Label,
			TrustedUntil: d.TrustedUntil,
			LastSeenAt:   d.LastSeenAt,
			RevokedAt:    d.RevokedAt,
			CreatedAt:    d.CreatedAt,
			Current:      !current.Empty() && d.Key().Matches(current),
		})
	}
	c.JSON(http.StatusOK, gin.H{"devices": out})
}

type renameRequest struct {
	Label string `json:"label" binding:"required,max=100"`
}

// Rename sets the display label of a device.
func (h *DeviceHandler) Rename(c *gin.Context) {
	identityID, ok := middleware.IdentityID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid device id", "bad_request")
		return
	}
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "label is required", "bad_request")
		return
	}

	if err := h.auth.RenameDevice(c.Request.Context(), identityID, deviceID, req.Label, middleware.Device(c)); err != nil {
		respondDomainError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "device renamed"})
}

type revokeDeviceRequest struct {
	Code string `json:"code" binding:"required"`
}

// Revoke removes trust from a device after re-proving the second factor.
func (h *DeviceHandler) Revoke(c *gin.Context) {
	identityID, ok := middleware.IdentityID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid device id", "bad_request")
		return
	}
	var req revokeDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "a second factor code is required", "bad_request")
		return
	}

	if err := h.auth.RevokeDevice(c.Request.Context(), identityID, deviceID, req.Code, middleware.Device(c)); err != nil {
		respondDomainError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "device revoked"})
}
