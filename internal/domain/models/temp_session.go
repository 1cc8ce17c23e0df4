package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TempSessionFlow identifies which second-factor flow a temporary session
// belongs to.
type TempSessionFlow string

const (
	// TempSessionFlowSetup is the first-time 2FA enrollment flow; the
	// pending (encrypted) TOTP secret rides in the session payload until
	// the user confirms a code generated from it.
	TempSessionFlowSetup TempSessionFlow = "2fa_setup"
	// TempSessionFlowVerify is the returning-user flow on an untrusted
	// device.
	TempSessionFlowVerify TempSessionFlow = "2fa_verify"
)

// TempSession holds an in-flight second-factor transaction, mapping to the
// "temp_sessions" table. Sessions are short-lived, attempt-bounded, and
// terminal once completed or exhausted.
type TempSession struct {
	ID          uuid.UUID       `db:"id"`
	IdentityID  uuid.UUID       `db:"identity_id"`
	Flow        TempSessionFlow `db:"flow"`
	Payload     json.RawMessage `db:"payload"`
	Attempts    int             `db:"attempts"`
	MaxAttempts int             `db:"max_attempts"`
	ExpiresAt   time.Time       `db:"expires_at"`
	CreatedAt   time.Time       `db:"created_at"`
	CompletedAt *time.Time      `db:"completed_at"`
}

// SetupPayload is the flow-specific payload of a 2fa_setup session.
type SetupPayload struct {
	// PendingSecretEncrypted is the AES-GCM envelope of the TOTP secret
	// generated at setup start, persisted to identity state only after the
	// user confirms a valid code.
	PendingSecretEncrypted string `json:"pending_secret_encrypted"`
	OTPAuthURL             string `json:"otpauth_url"`
}

// Expired reports whether the session has passed its expiry.
func (s *TempSession) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }

// Completed reports whether the session is terminal-success.
func (s *TempSession) Completed() bool { return s.CompletedAt != nil }

// Exhausted reports whether the attempt budget is spent. An exhausted session
// rejects every candidate code, correct or not.
func (s *TempSession) Exhausted() bool { return s.Attempts >= s.MaxAttempts }
