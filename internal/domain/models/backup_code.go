package models

import (
	"time"

	"github.com/google/uuid"
)

// BackupCode is a single-use recovery code, mapping to the "backup_codes"
// table. Codes are stored only as argon2id hashes; Position preserves the
// order the codes were displayed in so consumption can report which entry
// matched.
type BackupCode struct {
	ID         uuid.UUID  `db:"id"`
	IdentityID uuid.UUID  `db:"identity_id"`
	CodeHash   string     `db:"code_hash"`
	Position   int        `db:"position"`
	UsedAt     *time.Time `db:"used_at"`
	CreatedAt  time.Time  `db:"created_at"`
}
