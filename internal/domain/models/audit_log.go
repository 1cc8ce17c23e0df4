package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLogStatus is the outcome of an audited action.
type AuditLogStatus string

const (
	AuditLogStatusSuccess AuditLogStatus = "success"
	AuditLogStatusFailure AuditLogStatus = "failure"
)

// Audited actions. Every state-changing failure that indicates possible abuse
// (wrong second factor, exhausted attempts, device mismatch) is recorded
// regardless of whether the triggering request ultimately fails or succeeds.
const (
	AuditActionMagicLinkRequest  = "magic_link_request"
	AuditActionMagicLinkRedeem   = "magic_link_redeem"
	AuditActionTwoFASetup        = "2fa_setup"
	AuditActionTwoFAVerify       = "2fa_verify"
	AuditActionTwoFADisable      = "2fa_disable"
	AuditActionBackupCodeConsume = "backup_code_consume"
	AuditActionBackupCodeRegen   = "backup_codes_regenerate"
	AuditActionTokenRefresh      = "token_refresh"
	AuditActionTokenRevoke       = "token_revoke"
	AuditActionTokenRevokeAll    = "token_revoke_all"
	AuditActionDeviceTrust       = "device_trust"
	AuditActionDeviceRevoke      = "device_revoke"
	AuditActionDeviceRename      = "device_rename"
)

// AuditLog is a security-event record, mapping to the "audit_logs" table.
type AuditLog struct {
	ID         int64           `db:"id"`
	IdentityID *uuid.UUID      `db:"identity_id"`
	Action     string          `db:"action"`
	Status     AuditLogStatus  `db:"status"`
	IPAddress  *string         `db:"ip_address"`
	UserAgent  *string         `db:"user_agent"`
	Details    json.RawMessage `db:"details"`
	CreatedAt  time.Time       `db:"created_at"`
}
