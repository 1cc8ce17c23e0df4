package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/daon-network/auth-service/internal/domain/errors"
	"github.com/daon-network/auth-service/internal/domain/models"
	"github.com/daon-network/auth-service/internal/domain/repository"
)

type pgxMagicLinkRepository struct {
	db *pgxpool.Pool
}

// NewPgxMagicLinkRepository creates a new Postgres-backed MagicLinkRepository.
func NewPgxMagicLinkRepository(db *pgxpool.Pool) repository.MagicLinkRepository {
	return &pgxMagicLinkRepository{db: db}
}

func (r *pgxMagicLinkRepository) Create(ctx context.Context, link *models.MagicLink) error {
	query := `
		INSERT INTO magic_links (id, email, token_hash, expires_at, created_at, used_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, query,
		link.ID, link.Email, link.TokenHash, link.ExpiresAt, link.CreatedAt, link.UsedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return fmt.Errorf("%w: magic link token collision", domainErrors.ErrConflict)
		}
		return fmt.Errorf("failed to create magic link: %w", err)
	}
	return nil
}

// Consume is the single-use gate: the conditional UPDATE succeeds for at most
// one caller per link, even under concurrent redemptions.
func (r *pgxMagicLinkRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (*models.MagicLink, error) {
	query := `
		UPDATE magic_links
		SET used_at = $2
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $2
		RETURNING id, email, token_hash, expires_at, created_at, used_at`
	link := &models.MagicLink{}
	err := r.db.QueryRow(ctx, query, tokenHash, now).Scan(
		&link.ID, &link.Email, &link.TokenHash, &link.ExpiresAt, &link.CreatedAt, &link.UsedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to consume magic link: %w", err)
	}
	return link, nil
}

func (r *pgxMagicLinkRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM magic_links WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired magic links: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ repository.MagicLinkRepository = (*pgxMagicLinkRepository)(nil)
