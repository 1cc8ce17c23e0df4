package models

import (
	"time"

	"github.com/google/uuid"
)

// Revocation reasons recorded on refresh tokens.
const (
	RevokeReasonRotated   = "rotated"
	RevokeReasonLogout    = "logout"
	RevokeReasonRevokeAll = "revoke_all"
	RevokeReasonTwoFAOff  = "2fa_disabled"
)

// RefreshToken is a long-lived, revocable credential bound to the device that
// obtained it, mapping to the "refresh_tokens" table. The opaque token value
// is stored as a SHA-256 hash.
type RefreshToken struct {
	ID                uuid.UUID  `db:"id"`
	IdentityID        uuid.UUID  `db:"identity_id"`
	TokenHash         string     `db:"token_hash"`
	DeviceStableID    string     `db:"device_stable_id"`
	DeviceFingerprint string     `db:"device_fingerprint"`
	ExpiresAt         time.Time  `db:"expires_at"`
	CreatedAt         time.Time  `db:"created_at"`
	LastUsedAt        *time.Time `db:"last_used_at"`
	RevokedAt         *time.Time `db:"revoked_at"`
	RevokedReason     *string    `db:"revoked_reason"`
	// RotatedFrom references the predecessor token when rotation is
	// enabled, forming an audit chain.
	RotatedFrom *uuid.UUID `db:"rotated_from"`
}

// DeviceKey returns the device binding recorded at issuance.
func (t *RefreshToken) DeviceKey() DeviceKey {
	return DeviceKey{StableID: t.DeviceStableID, Fingerprint: t.DeviceFingerprint}
}

// Expired reports whether the token has passed its expiry.
func (t *RefreshToken) Expired(now time.Time) bool { return !now.Before(t.ExpiresAt) }

// Revoked reports whether the token has been revoked.
func (t *RefreshToken) Revoked() bool { return t.RevokedAt != nil }

// TokenPair is the credential set returned to a fully authenticated caller.
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresAt int64  `json:"refresh_expires_at"`
}
