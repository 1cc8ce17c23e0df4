package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/daon-network/auth-service/internal/domain/models"
)

// BackupCodeRepository persists hashed one-time recovery codes.
type BackupCodeRepository interface {
	// Replace swaps the identity's full code set in one transaction.
	Replace(ctx context.Context, identityID uuid.UUID, codes []*models.BackupCode) error
	// ListActiveByIdentity returns unused codes ordered by position.
	ListActiveByIdentity(ctx context.Context, identityID uuid.UUID) ([]*models.BackupCode, error)
	// MarkUsed consumes one code; conditional on "used_at IS NULL" so a
	// code can be spent at most once. Returns false when already spent.
	MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	CountActiveByIdentity(ctx context.Context, identityID uuid.UUID) (int, error)
	DeleteByIdentity(ctx context.Context, identityID uuid.UUID) (int64, error)
}
