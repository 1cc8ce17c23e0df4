package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/daon-network/auth-service/internal/domain/models"
)

// TrustedDeviceRepository persists device-trust bindings.
type TrustedDeviceRepository interface {
	// FindActiveByKey returns a live (non-revoked, non-expired) binding
	// matching the key's stable id OR fingerprint. ErrNotFound when none.
	FindActiveByKey(ctx context.Context, identityID uuid.UUID, key models.DeviceKey, now time.Time) (*models.TrustedDevice, error)
	FindByID(ctx context.Context, identityID, deviceID uuid.UUID) (*models.TrustedDevice, error)
	ListByIdentity(ctx context.Context, identityID uuid.UUID) ([]*models.TrustedDevice, error)
	// Upsert inserts the binding or, when a row for (identity, stable_id)
	// exists, refreshes the trust window, fingerprint and label and clears
	// any prior revocation.
	Upsert(ctx context.Context, device *models.TrustedDevice) error
	Rename(ctx context.Context, identityID, deviceID uuid.UUID, label string) error
	// Revoke marks the binding revoked; returns false if it was already
	// revoked or missing.
	Revoke(ctx context.Context, identityID, deviceID uuid.UUID, now time.Time) (bool, error)
	TouchLastSeen(ctx context.Context, id uuid.UUID, now time.Time) error
	CountActiveByIdentity(ctx context.Context, identityID uuid.UUID, now time.Time) (int, error)
	// DeleteLeastRecentlySeen drops the oldest active bindings so at most
	// keep remain; used to cap devices per identity.
	DeleteLeastRecentlySeen(ctx context.Context, identityID uuid.UUID, keep int) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
