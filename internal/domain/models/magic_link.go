package models

import (
	"time"

	"github.com/google/uuid"
)

// MagicLink is a single-use, email-bound login credential, mapping to the
// "magic_links" table. The raw token (>=128 bits of entropy) is only ever
// held in memory and in the delivered email; the row stores its SHA-256 hash.
type MagicLink struct {
	ID        uuid.UUID  `db:"id"`
	Email     string     `db:"email"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
	UsedAt    *time.Time `db:"used_at"`
}

// Usable reports whether the link can still authenticate at the given time.
// A link with a non-null UsedAt can never authenticate again.
func (m *MagicLink) Usable(now time.Time) bool {
	return m.UsedAt == nil && now.Before(m.ExpiresAt)
}
