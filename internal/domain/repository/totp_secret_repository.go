package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/daon-network/auth-service/internal/domain/models"
)

// TOTPSecretRepository persists encrypted TOTP secrets.
type TOTPSecretRepository interface {
	// Replace installs the secret for an identity, overwriting any
	// previous (confirmed or pending) row.
	Replace(ctx context.Context, secret *models.TOTPSecret) error
	FindByIdentity(ctx context.Context, identityID uuid.UUID) (*models.TOTPSecret, error)
	Confirm(ctx context.Context, id uuid.UUID, now time.Time) error
	DeleteByIdentity(ctx context.Context, identityID uuid.UUID) (int64, error)
}
