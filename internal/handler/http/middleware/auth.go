package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/daon-network/auth-service/internal/service"
)

// IdentityIDKey is the gin context key holding the authenticated identity.
const IdentityIDKey = "identity_id"

// Auth validates the bearer access token and stores the identity id on the
// request context. Requests without a valid token are rejected.
func Auth(verifier service.AccessTokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing bearer token",
				"code":  "unauthorized",
			})
			return
		}

		identityID, err := verifier.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired access token",
				"code":  "unauthorized",
			})
			return
		}

		c.Set(IdentityIDKey, identityID)
		c.Next()
	}
}

// IdentityID extracts the authenticated identity set by Auth.
func IdentityID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(IdentityIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
