package repository

import (
	"context"

	"github.com/daon-network/auth-service/internal/domain/models"
)

// AuditLogRepository persists security-event records. Append-only.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}
