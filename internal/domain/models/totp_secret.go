package models

import (
	"time"

	"github.com/google/uuid"
)

// TOTPSecret holds an identity's TOTP shared secret, mapping to the
// "totp_secrets" table. The secret is stored only as an AES-256-GCM envelope;
// a row with a null ConfirmedAt belongs to an enrollment that was never
// completed and must not be accepted for verification.
type TOTPSecret struct {
	ID              uuid.UUID  `db:"id"`
	IdentityID      uuid.UUID  `db:"identity_id"`
	SecretEncrypted string     `db:"secret_encrypted"`
	ConfirmedAt     *time.Time `db:"confirmed_at"`
	CreatedAt       time.Time  `db:"created_at"`
}

// Confirmed reports whether enrollment completed.
func (s *TOTPSecret) Confirmed() bool { return s.ConfirmedAt != nil }
