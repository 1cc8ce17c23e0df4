package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/daon-network/auth-service/internal/config"
	domainErrors "github.com/daon-network/auth-service/internal/domain/errors"
	"github.com/daon-network/auth-service/internal/domain/models"
	"github.com/daon-network/auth-service/internal/domain/repository"
	domainService "github.com/daon-network/auth-service/internal/domain/service"
	"github.com/daon-network/auth-service/internal/infrastructure/security"
)

// OutcomeStatus tells the client what the next step of a flow is.
type OutcomeStatus string

const (
	// OutcomeTokensIssued means authentication finished; Pair is set.
	OutcomeTokensIssued OutcomeStatus = "tokens_issued"
	// OutcomeSecondFactorRequired means a temp session was opened and the
	// client must submit a second-factor code.
	OutcomeSecondFactorRequired OutcomeStatus = "second_factor_required"
)

// AuthOutcome is the result of a step in the login flow.
type AuthOutcome struct {
	Status        OutcomeStatus          `json:"status"`
	Flow          models.TempSessionFlow `json:"flow,omitempty"`
	TempSessionID uuid.UUID              `json:"temp_session_id,omitempty"`
	// OTPAuthURL is only present on the setup flow so the client can
	// render the enrollment QR code.
	OTPAuthURL string            `json:"otpauth_url,omitempty"`
	Pair       *models.TokenPair `json:"tokens,omitempty"`
	// DeviceStableID echoes the minted stable id when the device was
	// trusted during this step; clients persist it locally.
	DeviceStableID string `json:"device_stable_id,omitempty"`
	// BackupCodes carries the freshly generated recovery codes, shown
	// exactly once at the end of 2FA setup.
	BackupCodes []string `json:"backup_codes,omitempty"`
	// BackupCodesRemaining is set when a backup code was consumed.
	BackupCodesRemaining  *int `json:"backup_codes_remaining,omitempty"`
	RegenerateRecommended bool `json:"regenerate_recommended,omitempty"`
}

// AuthService orchestrates the passwordless login flows: magic links, the
// mandatory second factor, device trust and token lifecycle.
type AuthService struct {
	magicLinks   domainService.MagicLinkService
	tempSessions domainService.TempSessionService
	totp         domainService.TOTPService
	backupCodes  domainService.BackupCodeService
	devices      domainService.DeviceService
	tokens       TokenService
	audit        domainService.AuditRecorder

	identities    repository.IdentityRepository
	totpSecrets   repository.TOTPSecretRepository
	backupCodeSet repository.BackupCodeRepository
	deviceRepo    repository.TrustedDeviceRepository

	vault  security.SecretVault
	cfg    config.MFAConfig
	logger *zap.Logger
}

// NewAuthService wires the orchestrating auth service.
func NewAuthService(
	magicLinks domainService.MagicLinkService,
	tempSessions domainService.TempSessionService,
	totp domainService.TOTPService,
	backupCodes domainService.BackupCodeService,
	devices domainService.DeviceService,
	tokens TokenService,
	audit domainService.AuditRecorder,
	identities repository.IdentityRepository,
	totpSecrets repository.TOTPSecretRepository,
	backupCodeSet repository.BackupCodeRepository,
	deviceRepo repository.TrustedDeviceRepository,
	vault security.SecretVault,
	cfg config.MFAConfig,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		magicLinks:    magicLinks,
		tempSessions:  tempSessions,
		totp:          totp,
		backupCodes:   backupCodes,
		devices:       devices,
		tokens:        tokens,
		audit:         audit,
		identities:    identities,
		totpSecrets:   totpSecrets,
		backupCodeSet: backupCodeSet,
		deviceRepo:    deviceRepo,
		vault:         vault,
		cfg:           cfg,
		logger:        logger,
	}
}

// RequestMagicLink starts a login by emailing a single-use link. The caller
// learns nothing about whether the address belongs to an identity.
func (s *AuthService) RequestMagicLink(ctx context.Context, email string, dc models.DeviceContext) error {
	err := s.magicLinks.Request(ctx, email)
	status := models.AuditLogStatusSuccess
	if err != nil {
		status = models.AuditLogStatusFailure
	}
	s.audit.Record(ctx, domainService.AuditEntry{
		Action:  models.AuditActionMagicLinkRequest,
		Status:  status,
		Device:  dc,
		Details: map[string]any{"email": email},
	})
	return err
}

// RedeemMagicLink consumes a magic link. First-time identities (and any
// identity without 2FA) are routed into mandatory enrollment; established
// identities on a trusted device get tokens directly, everyone else gets a
// verification temp session.
func (s *AuthService) RedeemMagicLink(ctx context.Context, rawToken string, dc models.DeviceContext) (*AuthOutcome, error) {
	identity, err := s.magicLinks.Redeem(ctx, rawToken)
	if err != nil {
		s.audit.Record(ctx, domainService.AuditEntry{
			Action: models.AuditActionMagicLinkRedeem,
			Status: models.AuditLogStatusFailure,
			Device: dc,
		})
		return nil, err
	}
	s.audit.Record(ctx, domainService.AuditEntry{
		IdentityID: &identity.ID,
		Action:     models.AuditActionMagicLinkRedeem,
		Status:     models.AuditLogStatusSuccess,
		Device:     dc,
	})

	if !identity.TwoFAEnabled {
		return s.beginSetup(ctx, identity)
	}

	trusted, err := s.devices.Lookup(ctx, identity.ID, dc.Key())
	if err != nil {
		return nil, err
	}
	if trusted != nil {
		pair, err := s.tokens.IssuePair(ctx, identity.ID, dc, nil)
		if err != nil {
			return nil, err
		}
		return &AuthOutcome{Status: OutcomeTokensIssued, Pair: pair}, nil
	}

	session, err := s.tempSessions.Begin(ctx, identity.ID, models.TempSessionFlowVerify)
	if err != nil {
		return nil, err
	}
	return &AuthOutcome{
		Status:        OutcomeSecondFactorRequired,
		Flow:          models.TempSessionFlowVerify,
		TempSessionID: session.ID,
	}, nil
}

// beginSetup opens a 2fa_setup temp session carrying a freshly generated,
// encrypted TOTP secret. Nothing touches identity state until the user
// proves possession by confirming a code.
func (s *AuthService) beginSetup(ctx context.Context, identity *models.Identity) (*AuthOutcome, error) {
	secret, otpauthURL, err := s.totp.Generate(identity.Email)
	if err != nil {
		return nil, err
	}
	sealed, err := s.vault.Encrypt(secret)
	if err != nil {
		return nil, fmt.Errorf("seal pending totp secret: %w", err)
	}

	session, err := s.tempSessions.Begin(ctx, identity.ID, models.TempSessionFlowSetup)
	if err != nil {
		return nil, err
	}
	payload := models.SetupPayload{PendingSecretEncrypted: sealed, OTPAuthURL: otpauthURL}
	if err := s.tempSessions.AttachSetupPayload(ctx, session.ID, payload); err != nil {
		return nil, err
	}

	return &AuthOutcome{
		Status:        OutcomeSecondFactorRequired,
		Flow:          models.TempSessionFlowSetup,
		TempSessionID: session.ID,
		OTPAuthURL:    otpauthURL,
	}, nil
}

// ConfirmSetup completes first-time 2FA enrollment: the submitted code must
// match the pending secret from the setup session. On success the secret is
// persisted, backup codes are generated (returned exactly once) and a token
// pair is issued.
func (s *AuthService) ConfirmSetup(ctx context.Context, sessionID uuid.UUID, code string, dc models.DeviceContext, trustDevice bool) (*AuthOutcome, error) {
	session, err := s.tempSessions.Take(ctx, sessionID, models.TempSessionFlowSetup)
	if err != nil {
		return nil, err
	}

	var payload models.SetupPayload
	if err := json.Unmarshal(session.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode setup payload: %w", err)
	}
	secret, err := s.vault.Decrypt(payload.PendingSecretEncrypted)
	if err != nil {
		return nil, fmt.Errorf("unseal pending totp secret: %w", err)
	}

	now := time.Now().UTC()
	if !s.totp.Validate(code, secret, now) {
		failErr := s.tempSessions.RecordFailure(ctx, session.ID)
		s.audit.Record(ctx, domainService.AuditEntry{
			IdentityID: &session.IdentityID,
			Action:     models.AuditActionTwoFASetup,
			Status:     models.AuditLogStatusFailure,
			Device:     dc,
		})
		return nil, failErr
	}

	if err := s.totpSecrets.Replace(ctx, &models.TOTPSecret{
		ID:              uuid.New(),
		IdentityID:      session.IdentityID,
		SecretEncrypted: payload.PendingSecretEncrypted,
		ConfirmedAt:     &now,
		CreatedAt:       now,
	}); err != nil {
		return nil, fmt.Errorf("persist totp secret: %w", err)
	}
	if err := s.identities.SetTwoFAEnabled(ctx, session.IdentityID, true); err != nil {
		return nil, fmt.Errorf("enable 2fa: %w", err)
	}

	codes, err := s.replaceBackupCodes(ctx, session.IdentityID)
	if err != nil {
		return nil, err
	}

	if err := s.tempSessions.Complete(ctx, session.ID, now); err != nil {
		return nil, err
	}

	outcome := &AuthOutcome{Status: OutcomeTokensIssued, BackupCodes: codes}
	if err := s.finishAuthentication(ctx, session.IdentityID, dc, trustDevice, outcome); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domainService.AuditEntry{
		IdentityID: &session.IdentityID,
		Action:     models.AuditActionTwoFASetup,
		Status:     models.AuditLogStatusSuccess,
		Device:     dc,
	})
	return outcome, nil
}

// CompleteVerify finishes the returning-user second-factor check. The code
// may be a TOTP code or a backup code; backup codes are consumed on use.
func (s *AuthService) CompleteVerify(ctx context.Context, sessionID uuid.UUID, code string, dc models.DeviceContext, trustDevice bool) (*AuthOutcome, error) {
	session, err := s.tempSessions.Take(ctx, sessionID, models.TempSessionFlowVerify)
	if err != nil {
		return nil, err
	}

	method, remaining, err := s.checkSecondFactor(ctx, session.IdentityID, code)
	if err != nil {
		if errors.Is(err, domainErrors.ErrWrongSecondFactor) {
			failErr := s.tempSessions.RecordFailure(ctx, session.ID)
			s.audit.Record(ctx, domainService.AuditEntry{
				IdentityID: &session.IdentityID,
				Action:     models.AuditActionTwoFAVerify,
				Status:     models.AuditLogStatusFailure,
				Device:     dc,
			})
			return nil, failErr
		}
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.tempSessions.Complete(ctx, session.ID, now); err != nil {
		return nil, err
	}

	outcome := &AuthOutcome{Status: OutcomeTokensIssued}
	if method == secondFactorBackupCode {
		outcome.BackupCodesRemaining = &remaining
		outcome.RegenerateRecommended = s.backupCodes.ShouldRegenerate(remaining)
		s.audit.Record(ctx, domainService.AuditEntry{
			IdentityID: &session.IdentityID,
			Action:     models.AuditActionBackupCodeConsume,
			Status:     models.AuditLogStatusSuccess,
			Device:     dc,
			Details:    map[string]any{"remaining": remaining},
		})
	}
	if err := s.finishAuthentication(ctx, session.IdentityID, dc, trustDevice, outcome); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domainService.AuditEntry{
		IdentityID: &session.IdentityID,
		Action:     models.AuditActionTwoFAVerify,
		Status:     models.AuditLogStatusSuccess,
		Device:     dc,
		Details:    map[string]any{"method": method},
	})
	return outcome, nil
}

// finishAuthentication optionally trusts the device and issues the pair.
func (s *AuthService) finishAuthentication(ctx context.Context, identityID uuid.UUID, dc models.DeviceContext, trustDevice bool, outcome *AuthOutcome) error {
	if trustDevice {
		binding, err := s.devices.Trust(ctx, identityID, dc)
		if err != nil {
			return err
		}
		outcome.DeviceStableID = binding.StableID
		dc.StableID = binding.StableID
		s.audit.Record(ctx, domainService.AuditEntry{
			IdentityID: &identityID,
			Action:     models.AuditActionDeviceTrust,
			Status:     models.AuditLogStatusSuccess,
			Device:     dc,
		})
	}
	pair, err := s.tokens.IssuePair(ctx, identityID, dc, nil)
	if err != nil {
		return err
	}
	outcome.Pair = pair
	return nil
}

const (
	secondFactorTOTP       = "totp"
	secondFactorBackupCode = "backup_code"
)

// checkSecondFactor validates a submitted code against the identity's
// confirmed TOTP secret, falling back to the backup-code set. Returns which
// method matched and, for backup codes, how many remain.
func (s *AuthService) checkSecondFactor(ctx context.Context, identityID uuid.UUID, code string) (string, int, error) {
	stored, err := s.totpSecrets.FindByIdentity(ctx, identityID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return "", 0, domainErrors.ErrTwoFANotEnabled
		}
		return "", 0, fmt.Errorf("load totp secret: %w", err)
	}
	if !stored.Confirmed() {
		return "", 0, domainErrors.ErrTwoFANotEnabled
	}

	secret, err := s.vault.Decrypt(stored.SecretEncrypted)
	if err != nil {
		return "", 0, fmt.Errorf("unseal totp secret: %w", err)
	}

	now := time.Now().UTC()
	if s.totp.Validate(code, secret, now) {
		return secondFactorTOTP, 0, nil
	}

	active, err := s.backupCodeSet.ListActiveByIdentity(ctx, identityID)
	if err != nil {
		return "", 0, fmt.Errorf("list backup codes: %w", err)
	}
	matched, err := s.backupCodes.Match(code, active)
	if err != nil {
		return "", 0, err
	}
	if matched == nil {
		return "", 0, domainErrors.ErrWrongSecondFactor
	}
	spent, err := s.backupCodeSet.MarkUsed(ctx, matched.ID, now)
	if err != nil {
		return "", 0, fmt.Errorf("consume backup code: %w", err)
	}
	if !spent {
		// Concurrent consumption of the same code; treat this caller as
		// having submitted a used code.
		return "", 0, domainErrors.ErrWrongSecondFactor
	}
	return secondFactorBackupCode, len(active) - 1, nil
}

// gateSecondFactor re-proves the second factor before a sensitive action.
// A wrong code is recorded as a failure under the action's audit entry so
// probing from a hijacked session leaves a trace.
func (s *AuthService) gateSecondFactor(ctx context.Context, identityID uuid.UUID, code, action string, dc models.DeviceContext) error {
	_, _, err := s.checkSecondFactor(ctx, identityID, code)
	if errors.Is(err, domainErrors.ErrWrongSecondFactor) {
		s.audit.Record(ctx, domainService.AuditEntry{
			IdentityID: &identityID,
			Action:     action,
			Status:     models.AuditLogStatusFailure,
			Device:     dc,
		})
	}
	return err
}

// replaceBackupCodes installs a fresh code set and returns the plaintext
// codes for one-time display.
func (s *AuthService) replaceBackupCodes(ctx context.Context, identityID uuid.UUID) ([]string, error) {
	codes, hashes, err := s.backupCodes.GenerateSet(s.cfg.BackupCodeCount)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	rows := make([]*models.BackupCode, len(hashes))
	for i, hash := range hashes {
		rows[i] = &models.BackupCode{
			ID:         uuid.New(),
			IdentityID: identityID,
			CodeHash:   hash,
			Position:   i,
			CreatedAt:  now,
		}
	}
	if err := s.backupCodeSet.Replace(ctx, identityID, rows); err != nil {
		return nil, fmt.Errorf("store backup codes: %w", err)
	}
	return codes, nil
}

// Refresh exchanges a refresh token for a fresh pair. When the trust window
// of the device behind the token has lapsed, no tokens are issued; the
// caller is routed back through the second factor instead.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string, dc models.DeviceContext) (*AuthOutcome, error) {
	token, err := s.tokens.Resolve(ctx, rawRefresh, dc.Key())
	if err != nil {
		s.audit.Record(ctx, domainService.AuditEntry{
			Action: models.AuditActionTokenRefresh,
			Status: models.AuditLogStatusFailure,
			Device: dc,
		})
		return nil, err
	}

	identity, err := s.identities.FindByID(ctx, token.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if !identity.Active() {
		return nil, domainErrors.ErrIdentityDisabled
	}

	if identity.TwoFAEnabled {
		trusted, err := s.devices.Lookup(ctx, identity.ID, token.DeviceKey())
		if err != nil {
			return nil, err
		}
		if trusted == nil {
			session, err := s.tempSessions.Begin(ctx, identity.ID, models.TempSessionFlowVerify)
			if err != nil {
				return nil, err
			}
			return &AuthOutcome{
				Status:        OutcomeSecondFactorRequired,
				Flow:          models.TempSessionFlowVerify,
				TempSessionID: session.ID,
			}, nil
		}
	}

	pair, err := s.tokens.Rotate(ctx, token, dc)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, domainService.AuditEntry{
		IdentityID: &identity.ID,
		Action:     models.AuditActionTokenRefresh,
		Status:     models.AuditLogStatusSuccess,
		Device:     dc,
	})
	return &AuthOutcome{Status: OutcomeTokensIssued, Pair: pair}, nil
}

// Logout revokes the presented refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string, dc models.DeviceContext) error {
	if err := s.tokens.Revoke(ctx, rawRefresh); err != nil {
		return err
	}
	s.audit.Record(ctx, domainService.AuditEntry{
		Action: models.AuditActionTokenRevoke,
		Status: models.AuditLogStatusSuccess,
		Device: dc,
	})
	return nil
}

// RevokeAllSessions retires every refresh token of the identity. The caller
// must re-prove the second factor first.
func (s *AuthService) RevokeAllSessions(ctx context.Context, identityID uuid.UUID, code string, dc models.DeviceContext) (int64, error) {
	if err := s.gateSecondFactor(ctx, identityID, code, models.AuditActionTokenRevokeAll, dc); err != nil {
		return 0, err
	}
	count, err := s.tokens.RevokeAll(ctx, identityID, models.RevokeReasonRevokeAll)
	if err != nil {
		return 0, err
	}
	s.audit.Record(ctx, domainService.AuditEntry{
		IdentityID: &identityID,
		Action:     models.AuditActionTokenRevokeAll,
		Status:     models.AuditLogStatusSuccess,
		Device:     dc,
		Details:    map[string]any{"revoked": count},
	})
	return count, nil
}

// RegenerateBackupCodes replaces the backup-code set after re-proving the
// second factor. The old set stops working immediately.
func (s *AuthService) RegenerateBackupCodes(ctx context.Context, identityID uuid.UUID, code string, dc models.DeviceContext) ([]string, error) {
	if err := s.gateSecondFactor(ctx, identityID, code, models.AuditActionBackupCodeRegen, dc); err != nil {
		return nil, err
	}
	codes, err := s.replaceBackupCodes(ctx, identityID)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, domainService.AuditEntry{
		IdentityID: &identityID,
		Action:     models.AuditActionBackupCodeRegen,
		Status:     models.AuditLogStatusSuccess,
		Device:     dc,
	})
	return codes, nil
}

// DisableTwoFA turns 2FA off after re-proving the second factor. All
// refresh tokens and device-trust bindings are dropped; the next login runs
// enrollment again.
func (s *AuthService) DisableTwoFA(ctx context.Context, identityID uuid.UUID, code string, dc models.DeviceContext) error {
	identity, err := s.identities.FindByID(ctx, identityID)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	if !identity.TwoFAEnabled {
		return domainErrors.ErrTwoFANotEnabled
	}
	if err := s.gateSecondFactor(ctx, identityID, code, models.AuditActionTwoFADisable, dc); err != nil {
		return err
	}

	if err := s.identities.SetTwoFAEnabled(ctx, identityID, false); err != nil {
		return fmt.Errorf("disable 2fa: %w", err)
	}
	if _, err := s.totpSecrets.DeleteByIdentity(ctx, identityID); err != nil {
		return fmt.Errorf("drop totp secret: %w", err)
	}
	if _, err := s.backupCodeSet.DeleteByIdentity(ctx, identityID); err != nil {
		return fmt.Errorf("drop backup codes: %w", err)
	}
	if _, err := s.deviceRepo.DeleteLeastRecentlySeen(ctx, identityID, 0); err != nil {
		return fmt.Errorf("drop device trust: %w", err)
	}
	if _, err := s.tokens.RevokeAll(ctx, identityID, models.RevokeReasonTwoFAOff); err != nil {
		return err
	}

	s.audit.Record(ctx, domainService.AuditEntry{
		IdentityID: &identityID,
		Action:     models.AuditActionTwoFADisable,
		Status:     models.AuditLogStatusSuccess,
		Device:     dc,
	})
	return nil
}

// ListDevices returns the identity's device-trust bindings.
func (s *AuthService) ListDevices(ctx context.Context, identityID uuid.UUID) ([]*models.TrustedDevice, error) {
	return s.devices.List(ctx, identityID)
}

// RenameDevice sets the display label of a trusted device.
func (s *AuthService) RenameDevice(ctx context.Context, identityID, deviceID uuid.UUID, label string, dc models.DeviceContext) error {
	if err := s.devices.Rename(ctx, identityID, deviceID, label); err != nil {
		return err
	}
	s.audit.Record(ctx, domainService.AuditEntry{
		IdentityID: &identityID,
		Action:     models.AuditActionDeviceRename,
		Status:     models.AuditLogStatusSuccess,
		Device:     dc,
	})
	return nil
}

// RevokeDevice removes trust from a device after re-proving the second
// factor. The current device cannot revoke itself.
func (s *AuthService) RevokeDevice(ctx context.Context, identityID, deviceID uuid.UUID, code string, dc models.DeviceContext) error {
	if err := s.gateSecondFactor(ctx, identityID, code, models.AuditActionDeviceRevoke, dc); err != nil {
		return err
	}
	if err := s.devices.Revoke(ctx, identityID, deviceID, dc.Key()); err != nil {
		return err
	}
	s.audit.Record(ctx, domainService.AuditEntry{
		IdentityID: &identityID,
		Action:     models.AuditActionDeviceRevoke,
		Status:     models.AuditLogStatusSuccess,
		Device:     dc,
	})
	return nil
}
