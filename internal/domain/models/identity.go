package models

import (
	"time"

	"github.com/google/uuid"
)

// IdentityStatus is the soft lifecycle state of an identity. Identities are
// never hard-deleted.
type IdentityStatus string

const (
	IdentityStatusActive   IdentityStatus = "active"
	IdentityStatusDisabled IdentityStatus = "disabled"
)

// Identity represents a user of the content-protection platform, mapping to
// the "identities" table. There is no password: identities are created on
// first successful magic-link redemption and thereafter authenticate with an
// emailed link plus a second factor.
type Identity struct {
	ID              uuid.UUID      `db:"id"`
	Email           string         `db:"email"`
	EmailVerifiedAt *time.Time     `db:"email_verified_at"`
	TwoFAEnabled    bool           `db:"two_fa_enabled"`
	Status          IdentityStatus `db:"status"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// Active reports whether the identity may authenticate.
func (i *Identity) Active() bool { return i.Status == IdentityStatusActive }
