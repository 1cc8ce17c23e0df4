package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/daon-network/auth-service/internal/domain/errors"
	"github.com/daon-network/auth-service/internal/domain/models"
	"github.com/daon-network/auth-service/internal/domain/repository"
)

type pgxRefreshTokenRepository struct {
	db *pgxpool.Pool
}

// NewPgxRefreshTokenRepository creates a new Postgres-backed
// RefreshTokenRepository.
func NewPgxRefreshTokenRepository(db *pgxpool.Pool) repository.RefreshTokenRepository {
	return &pgxRefreshTokenRepository{db: db}
}

func (r *pgxRefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, identity_id, token_hash, device_stable_id, device_fingerprint,
			expires_at, created_at, last_used_at, revoked_at, revoked_reason, rotated_from)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.Exec(ctx, query,
		token.ID, token.IdentityID, token.TokenHash, token.DeviceStableID, token.DeviceFingerprint,
		token.ExpiresAt, token.CreatedAt, token.LastUsedAt, token.RevokedAt, token.RevokedReason, token.RotatedFrom,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return fmt.Errorf("%w: refresh token hash collision", domainErrors.ErrConflict)
		}
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

func (r *pgxRefreshTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := `
		SELECT id, identity_id, token_hash, device_stable_id, device_fingerprint,
			expires_at, created_at, last_used_at, revoked_at, revoked_reason, rotated_from
		FROM refresh_tokens
		WHERE token_hash = $1`
	token := &models.RefreshToken{}
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(
		&token.ID, &token.IdentityID, &token.TokenHash, &token.DeviceStableID, &token.DeviceFingerprint,
		&token.ExpiresAt, &token.CreatedAt, &token.LastUsedAt, &token.RevokedAt, &token.RevokedReason, &token.RotatedFrom,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find refresh token by hash: %w", err)
	}
	return token, nil
}

// Revoke is the rotation-exclusivity primitive: the guard on revoked_at
// ensures only one of several concurrent callers observes true.
func (r *pgxRefreshTokenRepository) Revoke(ctx context.Context, id uuid.UUID, now time.Time, reason string) (bool, error) {
	query := `
		UPDATE refresh_tokens SET revoked_at = $2, revoked_reason = $3
		WHERE id = $1 AND revoked_at IS NULL`
	tag, err := r.db.Exec(ctx, query, id, now, reason)
	if err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgxRefreshTokenRepository) RevokeAllForIdentity(ctx context.Context, identityID uuid.UUID, now time.Time, reason string) (int64, error) {
	query := `
		UPDATE refresh_tokens SET revoked_at = $2, revoked_reason = $3
		WHERE identity_id = $1 AND revoked_at IS NULL`
	tag, err := r.db.Exec(ctx, query, identityID, now, reason)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke refresh tokens for identity: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgxRefreshTokenRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, now time.Time) error {
	query := `UPDATE refresh_tokens SET last_used_at = $2 WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, now); err != nil {
		return fmt.Errorf("failed to touch refresh token: %w", err)
	}
	return nil
}

// DeleteExpired keeps recently revoked tokens for abuse detection and purges
// the rest.
func (r *pgxRefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time, revokedRetention time.Duration) (int64, error) {
	cutoff := now.Add(-revokedRetention)
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1 OR (revoked_at IS NOT NULL AND revoked_at < $2)`
	tag, err := r.db.Exec(ctx, query, now, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ repository.RefreshTokenRepository = (*pgxRefreshTokenRepository)(nil)
