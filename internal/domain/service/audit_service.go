package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/daon-network/auth-service/internal/domain/models"
	"github.com/daon-network/auth-service/internal/domain/repository"
	"github.com/daon-network/auth-service/internal/events/kafka"
)

// EventPublisher mirrors audit entries onto the platform event bus.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.SecurityEvent) error
}

// AuditRecorder records security events. Recording is best effort on both
// sinks: a failed write is logged and never propagated, so auditing cannot
// take down the request path.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry is the caller-facing shape of one audited event.
type AuditEntry struct {
	IdentityID *uuid.UUID
	Action     string
	Status     models.AuditLogStatus
	Device     models.DeviceContext
	Details    map[string]any
}

type auditRecorder struct {
	repo      repository.AuditLogRepository
	publisher EventPublisher
	logger    *zap.Logger
}

var _ AuditRecorder = (*auditRecorder)(nil)

// NewAuditRecorder creates an AuditRecorder. publisher may be nil when the
// event bus is disabled.
func NewAuditRecorder(repo repository.AuditLogRepository, publisher EventPublisher, logger *zap.Logger) AuditRecorder {
	return &auditRecorder{repo: repo, publisher: publisher, logger: logger}
}

func (r *auditRecorder) Record(ctx context.Context, entry AuditEntry) {
	var details json.RawMessage
	if len(entry.Details) > 0 {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			r.logger.Error("marshal audit details failed", zap.Error(err))
		} else {
			details = raw
		}
	}

	row := &models.AuditLog{
		IdentityID: entry.IdentityID,
		Action:     entry.Action,
		Status:     entry.Status,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}
	if entry.Device.ClientIP != "" {
		row.IPAddress = &entry.Device.ClientIP
	}
	if entry.Device.UserAgent != "" {
		row.UserAgent = &entry.Device.UserAgent
	}
	if err := r.repo.Create(ctx, row); err != nil {
		r.logger.Error("audit log write failed",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}

	if r.publisher == nil {
		return
	}
	event := kafka.SecurityEvent{
		Source:    "auth-service",
		Action:    entry.Action,
		Status:    string(entry.Status),
		IPAddress: entry.Device.ClientIP,
		UserAgent: entry.Device.UserAgent,
		Details:   details,
	}
	if entry.IdentityID != nil {
		id := entry.IdentityID.String()
		event.IdentityID = &id
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn("audit event publish failed",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}
