package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/daon-network/auth-service/internal/domain/models"
)

// RefreshTokenRepository persists refresh tokens.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	// Revoke conditionally marks the token revoked ("WHERE revoked_at IS
	// NULL"). The boolean reports whether this caller performed the
	// revocation; false means another caller won the race or the token was
	// already revoked. This is the primitive behind rotation exclusivity.
	Revoke(ctx context.Context, id uuid.UUID, now time.Time, reason string) (bool, error)
	// RevokeAllForIdentity revokes every live token of the identity and
	// returns how many rows changed.
	RevokeAllForIdentity(ctx context.Context, identityID uuid.UUID, now time.Time, reason string) (int64, error)
	TouchLastUsed(ctx context.Context, id uuid.UUID, now time.Time) error
	// DeleteExpired purges tokens past expiry and tokens revoked longer
	// than revokedRetention ago.
	DeleteExpired(ctx context.Context, now time.Time, revokedRetention time.Duration) (int64, error)
}
