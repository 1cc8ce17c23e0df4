package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/daon-network/auth-service/internal/domain/errors"
	"github.com/daon-network/auth-service/internal/domain/models"
	"github.com/daon-network/auth-service/internal/domain/repository"
)

type pgxTOTPSecretRepository struct {
	db *pgxpool.Pool
}

// NewPgxTOTPSecretRepository creates a new Postgres-backed
// TOTPSecretRepository.
func NewPgxTOTPSecretRepository(db *pgxpool.Pool) repository.TOTPSecretRepository {
	return &pgxTOTPSecretRepository{db: db}
}

// Replace relies on the unique index on identity_id: one secret per identity.
func (r *pgxTOTPSecretRepository) Replace(ctx context.Context, secret *models.TOTPSecret) error {
	query := `
		INSERT INTO totp_secrets (id, identity_id, secret_encrypted, confirmed_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity_id) DO UPDATE SET
			id = EXCLUDED.id,
			secret_encrypted = EXCLUDED.secret_encrypted,
			confirmed_at = EXCLUDED.confirmed_at,
			created_at = EXCLUDED.created_at`
	_, err := r.db.Exec(ctx, query,
		secret.ID, secret.IdentityID, secret.SecretEncrypted, secret.ConfirmedAt, secret.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to replace totp secret: %w", err)
	}
	return nil
}

func (r *pgxTOTPSecretRepository) FindByIdentity(ctx context.Context, identityID uuid.UUID) (*models.TOTPSecret, error) {
	query := `
		SELECT id, identity_id, secret_encrypted, confirmed_at, created_at
		FROM totp_secrets
		WHERE identity_id = $1`
	secret := &models.TOTPSecret{}
	err := r.db.QueryRow(ctx, query, identityID).Scan(
		&secret.ID, &secret.IdentityID, &secret.SecretEncrypted, &secret.ConfirmedAt, &secret.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find totp secret: %w", err)
	}
	return secret, nil
}

func (r *pgxTOTPSecretRepository) Confirm(ctx context.Context, id uuid.UUID, now time.Time) error {
	query := `UPDATE totp_secrets SET confirmed_at = $2 WHERE id = $1 AND confirmed_at IS NULL`
	tag, err := r.db.Exec(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("failed to confirm totp secret: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *pgxTOTPSecretRepository) DeleteByIdentity(ctx context.Context, identityID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM totp_secrets WHERE identity_id = $1`, identityID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete totp secret: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ repository.TOTPSecretRepository = (*pgxTOTPSecretRepository)(nil)
