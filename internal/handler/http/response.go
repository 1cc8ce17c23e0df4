// Package http exposes the REST surface of the auth service.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/daon-network/auth-service/internal/domain/errors"
)

// ResponseError is the error body of every failed API call.
type ResponseError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondError(c *gin.Context, status int, message, code string) {
	c.JSON(status, ResponseError{Error: message, Code: code})
}

// respondDomainError maps the domain error taxonomy onto HTTP statuses. The
// message comes from the sentinel, never from the wrapped internals, so the
// API does not leak storage details.
func respondDomainError(c *gin.Context, err error, logger *zap.Logger) {
	message := domainErrors.Message(err)
	switch {
	case domainErrors.IsUnauthorized(err):
		respondError(c, http.StatusUnauthorized, message, "unauthorized")
	case domainErrors.IsForbidden(err):
		respondError(c, http.StatusForbidden, message, "forbidden")
	case domainErrors.IsNotFound(err):
		respondError(c, http.StatusNotFound, message, "not_found")
	case domainErrors.IsConflict(err):
		respondError(c, http.StatusConflict, message, "conflict")
	case domainErrors.IsBadRequest(err):
		respondError(c, http.StatusBadRequest, message, "bad_request")
	case errors.Is(err, domainErrors.ErrRateLimited):
		respondError(c, http.StatusTooManyRequests, message, "rate_limited")
	default:
		logger.Error("unhandled domain error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		respondError(c, http.StatusInternalServerError, "internal server error", "internal_error")
	}
}
