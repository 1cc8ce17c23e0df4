// Package database contains the pgx implementations of the domain
// repository interfaces.
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

const uniqueViolationCode = "23505"

type pgxIdentityRepository struct {
	db *pgxpool.Pool
}

// NewPgxIdentityRepository creates a new Postgres-backed IdentityRepository.
func NewPgxIdentityRepository(db *pgxpool.Pool) repository.IdentityRepository {
	return &pgxIdentityRepository{db: db}
}

func (r *pgxIdentityRepository) Create(ctx context.Context, identity *models.Identity) error {
	query := `
		INSERT INTO identities (id, email, email_verified_at, two_fa_enabled, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		identity.ID, identity.Email, identity.EmailVerifiedAt, identity.TwoFAEnabled,
		identity.Status, identity.CreatedAt, identity.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return fmt.Errorf("%w: email already registered", domainErrors.ErrConflict)
		}
		return fmt.Errorf("failed to create identity: %w", err)
	}
	return nil
}

func (r *pgxIdentityRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	query := `
		SELECT id, email, email_verified_at, two_fa_enabled, status, created_at, updated_at
		FROM identities
		WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *pgxIdentityRepository) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	query := `
		SELECT id, email, email_verified_at, two_fa_enabled, status, created_at, updated_at
		FROM identities
		WHERE email = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, email))
}

func (r *pgxIdentityRepository) SetTwoFAEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	query := `UPDATE identities SET two_fa_enabled = $2, updated_at = now() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, enabled)
	if err != nil {
		return fmt.Errorf("failed to update two_fa_enabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrIdentityNotFound
	}
	return nil
}

func (r *pgxIdentityRepository) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE identities SET email_verified_at = $2, updated_at = now()
		WHERE id = $1 AND email_verified_at IS NULL`
	if _, err := r.db.Exec(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	return nil
}

func (r *pgxIdentityRepository) scanOne(row pgx.Row) (*models.Identity, error) {
	identity := &models.Identity{}
	err := row.Scan(
		&identity.ID, &identity.Email, &identity.EmailVerifiedAt, &identity.TwoFAEnabled,
		&identity.Status, &identity.CreatedAt, &identity.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to scan identity: %w", err)
	}
	return identity, nil
}

var _ repository.IdentityRepository = (*pgxIdentityRepository)(nil)
