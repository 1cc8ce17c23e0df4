package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/daon-network/auth-service/internal/handler/http/middleware"
	"github.com/daon-network/auth-service/internal/service"
	"github.com/daon-network/auth-service/internal/utils/metrics"
)

// AuthHandler serves the login, second-factor and token endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type magicLinkRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// RequestMagicLink starts a login. The response is identical whether or not
// the address belongs to an identity.
func (h *AuthHandler) RequestMagicLink(c *gin.Context) {
	var req magicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "a valid email is required", "bad_request")
		return
	}

	if err := h.auth.RequestMagicLink(c.Request.Context(), req.Email, middleware.Device(c)); err != nil {
		metrics.MagicLinkRequestsTotal.WithLabelValues("failure").Inc()
		respondDomainError(c, err, h.logger)
		return
	}
	metrics.MagicLinkRequestsTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusAccepted, gin.H{"message": "if the address exists, a sign-in link has been sent"})
}

type redeemRequest struct {
	Token string `json:"token" binding:"required"`
}

// RedeemMagicLink consumes a link and either returns tokens or routes the
// caller into the second-factor flow.
func (h *AuthHandler) RedeemMagicLink(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "token is required", "bad_request")
		return
	}

	outcome, err := h.auth.RedeemMagicLink(c.Request.Context(), req.Token, middleware.Device(c))
	if err != nil {
		respondDomainError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

type secondFactorRequest struct {
	TempSessionID uuid.UUID `json:"temp_session_id" binding:"required"`
	Code          string    `json:"code" binding:"required"`
	TrustDevice   bool      `json:"trust_device"`
}

// ConfirmSetup completes first-time 2FA enrollment.
func (h *AuthHandler) ConfirmSetup(c *gin.Context) {
	var req secondFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "temp_session_id and code are required", "bad_request")
		return
	}

	outcome, err := h.auth.ConfirmSetup(c.Request.Context(), req.TempSessionID, req.Code, middleware.Device(c), req.TrustDevice)
	if err != nil {
		metrics.SecondFactorAttemptsTotal.WithLabelValues("setup", "failure").Inc()
		respondDomainError(c, err, h.logger)
		return
	}
	metrics.SecondFactorAttemptsTotal.WithLabelValues("setup", "success").Inc()
	c.JSON(http.StatusOK, outcome)
}

// CompleteVerify finishes the returning-user second-factor check.
func (h *AuthHandler) CompleteVerify(c *gin.Context) {
	var req secondFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "temp_session_id and code are required", "bad_request")
		return
	}

	outcome, err := h.auth.CompleteVerify(c.Request.Context(), req.TempSessionID, req.Code, middleware.Device(c), req.TrustDevice)
	if err != nil {
		metrics.SecondFactorAttemptsTotal.WithLabelValues("verify", "failure").Inc()
		respondDomainError(c, err, h.logger)
		return
	}
	metrics.SecondFactorAttemptsTotal.WithLabelValues("verify", "success").Inc()
	c.JSON(http.StatusOK, outcome)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh exchanges a refresh token for a new pair, or routes the caller
// back through the second factor when device trust has lapsed.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "refresh_token is required", "bad_request")
		return
	}

	outcome, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, middleware.Device(c))
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		respondDomainError(c, err, h.logger)
		return
	}
	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, outcome)
}

// Logout revokes the presented refresh token.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "refresh_token is required", "bad_request")
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken, middleware.Device(c)); err != nil {
		respondDomainError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

type codeGatedRequest struct {
	Code string `json:"code" binding:"required"`
}

// RevokeAllSessions retires every refresh token of the caller.
func (h *AuthHandler) RevokeAllSessions(c *gin.Context) {
	identityID, ok := middleware.IdentityID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	var req codeGatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "a second factor code is required", "bad_request")
		return
	}

	count, err := h.auth.RevokeAllSessions(c.Request.Context(), identityID, req.Code, middleware.Device(c))
	if err != nil {
		respondDomainError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": count})
}

// RegenerateBackupCodes replaces the caller's recovery codes.
func (h *AuthHandler) RegenerateBackupCodes(c *gin.Context) {
	identityID, ok := middleware.IdentityID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	var req codeGatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "a second factor code is required", "bad_request")
		return
	}

	codes, err := h.auth.RegenerateBackupCodes(c.Request.Context(), identityID, req.Code, middleware.Device(c))
	if err != nil {
		respondDomainError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"backup_codes": codes})
}

// DisableTwoFA turns off 2FA for the caller; the next login re-enrolls.
func (h *AuthHandler) DisableTwoFA(c *gin.Context) {
	identityID, ok := middleware.IdentityID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	var req codeGatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "a second factor code is required", "bad_request")
		return
	}

	if err := h.auth.DisableTwoFA(c.Request.Context(), identityID, req.Code, middleware.Device(c)); err != nil {
		respondDomainError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "two-factor authentication disabled"})
}
