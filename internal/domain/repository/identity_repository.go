// Package repository declares the persistence ports of the auth domain.
// Implementations live in internal/infrastructure/database.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/daon-network/auth-service/internal/domain/models"
)

// IdentityRepository persists identities.
type IdentityRepository interface {
	Create(ctx context.Context, identity *models.Identity) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)
	// SetTwoFAEnabled flips the 2FA flag, bumping updated_at.
	SetTwoFAEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
	// MarkEmailVerified records the first successful magic-link redemption.
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
}
