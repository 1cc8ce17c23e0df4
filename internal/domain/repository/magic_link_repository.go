package repository

import (
	"context"
	"time"

	"github.com/daon-network/auth-service/internal/domain/models"
)

// MagicLinkRepository persists single-use login links.
type MagicLinkRepository interface {
	Create(ctx context.Context, link *models.MagicLink) error
	// Consume atomically marks the link matching tokenHash as used and
	// returns it. The update is conditional on "used_at IS NULL AND
	// expires_at > now", so under concurrent redemptions exactly one
	// caller receives the row; every other caller gets ErrNotFound.
	Consume(ctx context.Context, tokenHash string, now time.Time) (*models.MagicLink, error)
	// DeleteExpired purges links past their expiry; returns rows removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
