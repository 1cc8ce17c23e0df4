package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/daon-network/auth-service/internal/domain/models"
)

// TempSessionRepository persists in-flight second-factor transactions.
type TempSessionRepository interface {
	Create(ctx context.Context, session *models.TempSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.TempSession, error)
	// AttachPayload stores flow-specific data on an uncompleted session.
	AttachPayload(ctx context.Context, id uuid.UUID, payload json.RawMessage) error
	// IncrementAttempts bumps the failed-attempt counter and returns the
	// new value. The increment is unconditional so an exhausted session
	// stays exhausted.
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)
	// Complete marks the session terminal. Returns false when the session
	// was already completed, which callers treat as an idempotent no-op.
	Complete(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
