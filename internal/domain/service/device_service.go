package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/daon-network/auth-service/internal/config"
	domainErrors "github.com/daon-network/auth-service/internal/domain/errors"
	"github.com/daon-network/auth-service/internal/domain/models"
	"github.com/daon-network/auth-service/internal/domain/repository"
	"github.com/daon-network/auth-service/internal/utils/device"
)

// DeviceService manages device-trust bindings. A trusted device skips the
// second factor until its trust window lapses or the binding is revoked.
type DeviceService interface {
	// Lookup returns the live binding matching the device key, or nil when
	// the device is not trusted. A hit refreshes last_seen_at.
	Lookup(ctx context.Context, identityID uuid.UUID, key models.DeviceKey) (*models.TrustedDevice, error)
	// Trust records the device as trusted for the configured window. When
	// the context carries no stable id one is minted; callers should hand
	// it back to the client for storage. Exceeding the per-identity cap
	// evicts the least recently seen bindings.
	Trust(ctx context.Context, identityID uuid.UUID, dc models.DeviceContext) (*models.TrustedDevice, error)
	List(ctx context.Context, identityID uuid.UUID) ([]*models.TrustedDevice, error)
	Rename(ctx context.Context, identityID, deviceID uuid.UUID, label string) error
	// Revoke removes trust from a device. The device the caller is
	// currently on cannot be revoked; signing out is the way to drop it.
	Revoke(ctx context.Context, identityID, deviceID uuid.UUID, current models.DeviceKey) error
}

type deviceService struct {
	devices repository.TrustedDeviceRepository
	cfg     config.DeviceTrustConfig
	logger  *zap.Logger
}

var _ DeviceService = (*deviceService)(nil)

// NewDeviceService creates a DeviceService.
func NewDeviceService(devices repository.TrustedDeviceRepository, cfg config.DeviceTrustConfig, logger *zap.Logger) DeviceService {
	return &deviceService{devices: devices, cfg: cfg, logger: logger}
}

func (s *deviceService) Lookup(ctx context.Context, identityID uuid.UUID, key models.DeviceKey) (*models.TrustedDevice, error) {
	if key.Empty() {
		return nil, nil
	}
	now := time.Now().UTC()
	binding, err := s.devices.FindActiveByKey(ctx, identityID, key, now)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find trusted device: %w", err)
	}
	if err := s.devices.TouchLastSeen(ctx, binding.ID, now); err != nil {
		s.logger.Warn("touch device last_seen failed", zap.Error(err))
	}
	return binding, nil
}

func (s *deviceService) Trust(ctx context.Context, identityID uuid.UUID, dc models.DeviceContext) (*models.TrustedDevice, error) {
	stableID := dc.StableID
	if stableID == "" {
		stableID = uuid.NewString()
	}

	now := time.Now().UTC()
	binding := &models.TrustedDevice{
		ID:           uuid.New(),
		IdentityID:   identityID,
		StableID:     stableID,
		Fingerprint:  dc.Fingerprint,
		Label:        device.Label(dc.UserAgent),
		TrustedUntil: now.Add(s.cfg.Window),
		CreatedAt:    now,
	}
	if err := s.devices.Upsert(ctx, binding); err != nil {
		return nil, fmt.Errorf("upsert trusted device: %w", err)
	}

	count, err := s.devices.CountActiveByIdentity(ctx, identityID, now)
	if err != nil {
		return nil, fmt.Errorf("count trusted devices: %w", err)
	}
	if count > s.cfg.MaxDevices {
		evicted, err := s.devices.DeleteLeastRecentlySeen(ctx, identityID, s.cfg.MaxDevices)
		if err != nil {
			return nil, fmt.Errorf("evict trusted devices: %w", err)
		}
		s.logger.Info("evicted least recently seen devices",
			zap.String("identity_id", identityID.String()),
			zap.Int64("evicted", evicted),
		)
	}
	return binding, nil
}

func (s *deviceService) List(ctx context.Context, identityID uuid.UUID) ([]*models.TrustedDevice, error) {
	bindings, err := s.devices.ListByIdentity(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("list trusted devices: %w", err)
	}
	return bindings, nil
}

func (s *deviceService) Rename(ctx context.Context, identityID, deviceID uuid.UUID, label string) error {
	if err := s.devices.Rename(ctx, identityID, deviceID, label); err != nil {
		return fmt.Errorf("rename trusted device: %w", err)
	}
	return nil
}

func (s *deviceService) Revoke(ctx context.Context, identityID, deviceID uuid.UUID, current models.DeviceKey) error {
	target, err := s.devices.FindByID(ctx, identityID, deviceID)
	if err != nil {
		return fmt.Errorf("find trusted device: %w", err)
	}
	if !current.Empty() && target.Key().Matches(current) {
		return fmt.Errorf("%w: cannot revoke current device", domainErrors.ErrForbidden)
	}
	now := time.Now().UTC()
	revoked, err := s.devices.Revoke(ctx, identityID, deviceID, now)
	if err != nil {
		return fmt.Errorf("revoke trusted device: %w", err)
	}
	if !revoked {
		return domainErrors.ErrNotFound
	}
	return nil
}
