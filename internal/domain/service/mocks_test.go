package service_test

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/daon-network/auth-service/internal/domain/models"
)

type mockTempSessionRepo struct{ mock.Mock }

func (m *mockTempSessionRepo) Create(ctx context.Context, session *models.TempSession) error {
	return m.Called(ctx, session).Error(0)
}

func (m *mockTempSessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.TempSession, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*models.TempSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTempSessionRepo) AttachPayload(ctx context.Context, id uuid.UUID, payload json.RawMessage) error {
	return m.Called(ctx, id, payload).Error(0)
}

func (m *mockTempSessionRepo) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *mockTempSessionRepo) Complete(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *mockTempSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockMagicLinkRepo struct{ mock.Mock }

func (m *mockMagicLinkRepo) Create(ctx context.Context, link *models.MagicLink) error {
	return m.Called(ctx, link).Error(0)
}

func (m *mockMagicLinkRepo) Consume(ctx context.Context, tokenHash string, now time.Time) (*models.MagicLink, error) {
	args := m.Called(ctx, tokenHash, now)
	if l := args.Get(0); l != nil {
		return l.(*models.MagicLink), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMagicLinkRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockIdentityRepo struct{ mock.Mock }

func (m *mockIdentityRepo) Create(ctx context.Context, identity *models.Identity) error {
	return m.Called(ctx, identity).Error(0)
}

func (m *mockIdentityRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	args := m.Called(ctx, id)
	if i := args.Get(0); i != nil {
		return i.(*models.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIdentityRepo) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	args := m.Called(ctx, email)
	if i := args.Get(0); i != nil {
		return i.(*models.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIdentityRepo) SetTwoFAEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	return m.Called(ctx, id, enabled).Error(0)
}

func (m *mockIdentityRepo) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockTrustedDeviceRepo struct{ mock.Mock }

func (m *mockTrustedDeviceRepo) FindActiveByKey(ctx context.Context, identityID uuid.UUID, key models.DeviceKey, now time.Time) (*models.TrustedDevice, error) {
	args := m.Called(ctx, identityID, key, now)
	if d := args.Get(0); d != nil {
		return d.(*models.TrustedDevice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTrustedDeviceRepo) FindByID(ctx context.Context, identityID, deviceID uuid.UUID) (*models.TrustedDevice, error) {
	args := m.Called(ctx, identityID, deviceID)
	if d := args.Get(0); d != nil {
		return d.(*models.TrustedDevice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTrustedDeviceRepo) ListByIdentity(ctx context.Context, identityID uuid.UUID) ([]*models.TrustedDevice, error) {
	args := m.Called(ctx, identityID)
	if d := args.Get(0); d != nil {
		return d.([]*models.TrustedDevice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTrustedDeviceRepo) Upsert(ctx context.Context, device *models.TrustedDevice) error {
	return m.Called(ctx, device).Error(0)
}

func (m *mockTrustedDeviceRepo) Rename(ctx context.Context, identityID, deviceID uuid.UUID, label string) error {
	return m.Called(ctx, identityID, deviceID, label).Error(0)
}

func (m *mockTrustedDeviceRepo) Revoke(ctx context.Context, identityID, deviceID uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, identityID, deviceID, now)
	return args.Bool(0), args.Error(1)
}

func (m *mockTrustedDeviceRepo) TouchLastSeen(ctx context.Context, id uuid.UUID, now time.Time) error {
	return m.Called(ctx, id, now).Error(0)
}

func (m *mockTrustedDeviceRepo) CountActiveByIdentity(ctx context.Context, identityID uuid.UUID, now time.Time) (int, error) {
	args := m.Called(ctx, identityID, now)
	return args.Int(0), args.Error(1)
}

func (m *mockTrustedDeviceRepo) DeleteLeastRecentlySeen(ctx context.Context, identityID uuid.UUID, keep int) (int64, error) {
	args := m.Called(ctx, identityID, keep)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTrustedDeviceRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockLimiter struct{ mock.Mock }

func (m *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

type mockSender struct{ mock.Mock }

func (m *mockSender) Send(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}
