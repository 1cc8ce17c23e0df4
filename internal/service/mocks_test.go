package service_test

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/daon-network/auth-service/internal/domain/models"
	domainService "github.com/daon-network/auth-service/internal/domain/service"
	"github.com/daon-network/auth-service/internal/infrastructure/broadcast"
)

type mockRefreshTokenRepo struct{ mock.Mock }

func (m *mockRefreshTokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockRefreshTokenRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if t := args.Get(0); t != nil {
		return t.(*models.RefreshToken), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRefreshTokenRepo) Revoke(ctx context.Context, id uuid.UUID, now time.Time, reason string) (bool, error) {
	args := m.Called(ctx, id, now, reason)
	return args.Bool(0), args.Error(1)
}

func (m *mockRefreshTokenRepo) RevokeAllForIdentity(ctx context.Context, identityID uuid.UUID, now time.Time, reason string) (int64, error) {
	args := m.Called(ctx, identityID, now, reason)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRefreshTokenRepo) TouchLastUsed(ctx context.Context, id uuid.UUID, now time.Time) error {
	return m.Called(ctx, id, now).Error(0)
}

func (m *mockRefreshTokenRepo) DeleteExpired(ctx context.Context, now time.Time, revokedRetention time.Duration) (int64, error) {
	args := m.Called(ctx, now, revokedRetention)
	return args.Get(0).(int64), args.Error(1)
}

type mockBroadcaster struct{ mock.Mock }

func (m *mockBroadcaster) PublishRotation(ctx context.Context, event broadcast.RotationEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockBroadcaster) SubscribeRotations(ctx context.Context, identityID uuid.UUID) (<-chan broadcast.RotationEvent, func(), error) {
	args := m.Called(ctx, identityID)
	if ch := args.Get(0); ch != nil {
		return ch.(<-chan broadcast.RotationEvent), args.Get(1).(func()), args.Error(2)
	}
	return nil, nil, args.Error(2)
}

type mockMagicLinkService struct{ mock.Mock }

func (m *mockMagicLinkService) Request(ctx context.Context, emailAddr string) error {
	return m.Called(ctx, emailAddr).Error(0)
}

func (m *mockMagicLinkService) Redeem(ctx context.Context, rawToken string) (*models.Identity, error) {
	args := m.Called(ctx, rawToken)
	if i := args.Get(0); i != nil {
		return i.(*models.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTempSessionService struct{ mock.Mock }

func (m *mockTempSessionService) Begin(ctx context.Context, identityID uuid.UUID, flow models.TempSessionFlow) (*models.TempSession, error) {
	args := m.Called(ctx, identityID, flow)
	if s := args.Get(0); s != nil {
		return s.(*models.TempSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTempSessionService) AttachSetupPayload(ctx context.Context, id uuid.UUID, payload models.SetupPayload) error {
	return m.Called(ctx, id, payload).Error(0)
}

func (m *mockTempSessionService) Take(ctx context.Context, id uuid.UUID, flow models.TempSessionFlow) (*models.TempSession, error) {
	args := m.Called(ctx, id, flow)
	if s := args.Get(0); s != nil {
		return s.(*models.TempSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTempSessionService) RecordFailure(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockTempSessionService) Complete(ctx context.Context, id uuid.UUID, now time.Time) error {
	return m.Called(ctx, id, now).Error(0)
}

type mockDeviceService struct{ mock.Mock }

func (m *mockDeviceService) Lookup(ctx context.Context, identityID uuid.UUID, key models.DeviceKey) (*models.TrustedDevice, error) {
	args := m.Called(ctx, identityID, key)
	if d := args.Get(0); d != nil {
		return d.(*models.TrustedDevice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeviceService) Trust(ctx context.Context, identityID uuid.UUID, dc models.DeviceContext) (*models.TrustedDevice, error) {
	args := m.Called(ctx, identityID, dc)
	if d := args.Get(0); d != nil {
		return d.(*models.TrustedDevice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeviceService) List(ctx context.Context, identityID uuid.UUID) ([]*models.TrustedDevice, error) {
	args := m.Called(ctx, identityID)
	if d := args.Get(0); d != nil {
		return d.([]*models.TrustedDevice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeviceService) Rename(ctx context.Context, identityID, deviceID uuid.UUID, label string) error {
	return m.Called(ctx, identityID, deviceID, label).Error(0)
}

func (m *mockDeviceService) Revoke(ctx context.Context, identityID, deviceID uuid.UUID, current models.DeviceKey) error {
	return m.Called(ctx, identityID, deviceID, current).Error(0)
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

type mockTOTPSecretRepo struct{ mock.Mock }

func (m *mockTOTPSecretRepo) Replace(ctx context.Context, secret *models.TOTPSecret) error {
	return m.Called(ctx, secret).Error(0)
}

func (m *mockTOTPSecretRepo) FindByIdentity(ctx context.Context, identityID uuid.UUID) (*models.TOTPSecret, error) {
	args := m.Called(ctx, identityID)
	if s := args.Get(0); s != nil {
		return s.(*models.TOTPSecret), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTOTPSecretRepo) Confirm(ctx context.Context, id uuid.UUID, now time.Time) error {
	return m.Called(ctx, id, now).Error(0)
}

func (m *mockTOTPSecretRepo) DeleteByIdentity(ctx context.Context, identityID uuid.UUID) (int64, error) {
	args := m.Called(ctx, identityID)
	return args.Get(0).(int64), args.Error(1)
}

type mockBackupCodeRepo struct{ mock.Mock }

func (m *mockBackupCodeRepo) Replace(ctx context.Context, identityID uuid.UUID, codes []*models.BackupCode) error {
	return m.Called(ctx, identityID, codes).Error(0)
}

func (m *mockBackupCodeRepo) ListActiveByIdentity(ctx context.Context, identityID uuid.UUID) ([]*models.BackupCode, error) {
	args := m.Called(ctx, identityID)
	if c := args.Get(0); c != nil {
		return c.([]*models.BackupCode), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackupCodeRepo) MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *mockBackupCodeRepo) CountActiveByIdentity(ctx context.Context, identityID uuid.UUID) (int, error) {
	args := m.Called(ctx, identityID)
	return args.Int(0), args.Error(1)
}

func (m *mockBackupCodeRepo) DeleteByIdentity(ctx context.Context, identityID uuid.UUID) (int64, error) {
	args := m.Called(ctx, identityID)
	return args.Get(0).(int64), args.Error(1)
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

type mockMagicLinkRepoCleanup struct{ mock.Mock }

func (m *mockMagicLinkRepoCleanup) Create(ctx context.Context, link *models.MagicLink) error {
	return m.Called(ctx, link).Error(0)
}

func (m *mockMagicLinkRepoCleanup) Consume(ctx context.Context, tokenHash string, now time.Time) (*models.MagicLink, error) {
	args := m.Called(ctx, tokenHash, now)
	if l := args.Get(0); l != nil {
		return l.(*models.MagicLink), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMagicLinkRepoCleanup) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockTempSessionRepoCleanup struct{ mock.Mock }

func (m *mockTempSessionRepoCleanup) Create(ctx context.Context, session *models.TempSession) error {
	return m.Called(ctx, session).Error(0)
}

func (m *mockTempSessionRepoCleanup) FindByID(ctx context.Context, id uuid.UUID) (*models.TempSession, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*models.TempSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTempSessionRepoCleanup) AttachPayload(ctx context.Context, id uuid.UUID, payload json.RawMessage) error {
	return m.Called(ctx, id, payload).Error(0)
}

func (m *mockTempSessionRepoCleanup) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *mockTempSessionRepoCleanup) Complete(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *mockTempSessionRepoCleanup) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// recordingAudit satisfies AuditRecorder and keeps every entry for
// assertions.
type recordingAudit struct {
	entries []domainService.AuditEntry
}

func (r *recordingAudit) Record(_ context.Context, entry domainService.AuditEntry) {
	r.entries = append(r.entries, entry)
}

// byAction filters the recorded entries.
func (r *recordingAudit) byAction(action string) []domainService.AuditEntry {
	var out []domainService.AuditEntry
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
