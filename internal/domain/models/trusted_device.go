package models

import (
	"time"

	"github.com/google/uuid"
)

// DeviceKey is the composite identifier of a client device. Browser
// fingerprints drift between visits, so trust matching accepts either the
// client-stored stable identifier or the computed fingerprint; neither
// component alone is required.
type DeviceKey struct {
	StableID    string `json:"stable_id"`
	Fingerprint string `json:"fingerprint"`
}

// Empty reports whether the key carries no usable component.
func (k DeviceKey) Empty() bool { return k.StableID == "" && k.Fingerprint == "" }

// Matches reports whether the other key shares a stable id or a fingerprint
// with this one. Blank components never match.
func (k DeviceKey) Matches(other DeviceKey) bool {
	if k.StableID != "" && k.StableID == other.StableID {
		return true
	}
	return k.Fingerprint != "" && k.Fingerprint == other.Fingerprint
}

// TrustedDevice binds a device to an identity for a bounded trust window,
// mapping to the "trusted_devices" table. While the binding is live the
// device skips the second factor.
type TrustedDevice struct {
	ID           uuid.UUID  `db:"id"`
	IdentityID   uuid.UUID  `db:"identity_id"`
	StableID     string     `db:"stable_id"`
	Fingerprint  string     `db:"fingerprint"`
	Label        string     `db:"label"`
	TrustedUntil time.Time  `db:"trusted_until"`
	LastSeenAt   *time.Time `db:"last_seen_at"`
	RevokedAt    *time.Time `db:"revoked_at"`
	CreatedAt    time.Time  `db:"created_at"`
}

// Key returns the composite device key of the binding.
func (d *TrustedDevice) Key() DeviceKey {
	return DeviceKey{StableID: d.StableID, Fingerprint: d.Fingerprint}
}

// Trusted reports whether the binding is live at the given time. A revoked or
// expired row is never treated as trusted.
func (d *TrustedDevice) Trusted(now time.Time) bool {
	return d.RevokedAt == nil && now.Before(d.TrustedUntil)
}
