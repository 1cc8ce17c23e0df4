package database

import (
	"context"
	"encoding/json"
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

type pgxTempSessionRepository struct {
	db *pgxpool.Pool
}

// NewPgxTempSessionRepository creates a new Postgres-backed
// TempSessionRepository.
func NewPgxTempSessionRepository(db *pgxpool.Pool) repository.TempSessionRepository {
	return &pgxTempSessionRepository{db: db}
}

func (r *pgxTempSessionRepository) Create(ctx context.Context, session *models.TempSession) error {
	query := `
		INSERT INTO temp_sessions (id, identity_id, flow, payload, attempts, max_attempts, expires_at, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, query,
		session.ID, session.IdentityID, session.Flow, session.Payload,
		session.Attempts, session.MaxAttempts, session.ExpiresAt, session.CreatedAt, session.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create temp session: %w", err)
	}
	return nil
}

func (r *pgxTempSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.TempSession, error) {
	query := `
		SELECT id, identity_id, flow, payload, attempts, max_attempts, expires_at, created_at, completed_at
		FROM temp_sessions
		WHERE id = $1`
	session := &models.TempSession{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&session.ID, &session.IdentityID, &session.Flow, &session.Payload,
		&session.Attempts, &session.MaxAttempts, &session.ExpiresAt, &session.CreatedAt, &session.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find temp session: %w", err)
	}
	return session, nil
}

func (r *pgxTempSessionRepository) AttachPayload(ctx context.Context, id uuid.UUID, payload json.RawMessage) error {
	query := `UPDATE temp_sessions SET payload = $2 WHERE id = $1 AND completed_at IS NULL`
	tag, err := r.db.Exec(ctx, query, id, payload)
	if err != nil {
		return fmt.Errorf("failed to attach temp session payload: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *pgxTempSessionRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	query := `UPDATE temp_sessions SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`
	var attempts int
	err := r.db.QueryRow(ctx, query, id).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domainErrors.ErrNotFound
		}
		return 0, fmt.Errorf("failed to increment temp session attempts: %w", err)
	}
	return attempts, nil
}

// Complete is conditional on "completed_at IS NULL": exactly one caller wins,
// repeats observe false and treat it as an idempotent no-op.
func (r *pgxTempSessionRepository) Complete(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	query := `UPDATE temp_sessions SET completed_at = $2 WHERE id = $1 AND completed_at IS NULL`
	tag, err := r.db.Exec(ctx, query, id, now)
	if err != nil {
		return false, fmt.Errorf("failed to complete temp session: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgxTempSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM temp_sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired temp sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ repository.TempSessionRepository = (*pgxTempSessionRepository)(nil)
