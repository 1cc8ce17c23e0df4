package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daon-network/auth-service/internal/domain/models"
	"github.com/daon-network/auth-service/internal/domain/repository"
)

type pgxBackupCodeRepository struct {
	db *pgxpool.Pool
}

// NewPgxBackupCodeRepository creates a new Postgres-backed
// BackupCodeRepository.
func NewPgxBackupCodeRepository(db *pgxpool.Pool) repository.BackupCodeRepository {
	return &pgxBackupCodeRepository{db: db}
}

// Replace swaps the full code set transactionally so an identity never
// observes a partial mix of old and new codes.
func (r *pgxBackupCodeRepository) Replace(ctx context.Context, identityID uuid.UUID, codes []*models.BackupCode) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM backup_codes WHERE identity_id = $1`, identityID); err != nil {
		return fmt.Errorf("failed to delete old backup codes: %w", err)
	}
	for _, code := range codes {
		_, err := tx.Exec(ctx, `
			INSERT INTO backup_codes (id, identity_id, code_hash, position, used_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			code.ID, code.IdentityID, code.CodeHash, code.Position, code.UsedAt, code.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert backup code: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit backup codes: %w", err)
	}
	return nil
}

func (r *pgxBackupCodeRepository) ListActiveByIdentity(ctx context.Context, identityID uuid.UUID) ([]*models.BackupCode, error) {
	query := `
		SELECT id, identity_id, code_hash, position, used_at, created_at
		FROM backup_codes
		WHERE identity_id = $1 AND used_at IS NULL
		ORDER BY position`
	rows, err := r.db.Query(ctx, query, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list backup codes: %w", err)
	}
	defer rows.Close()

	var codes []*models.BackupCode
	for rows.Next() {
		code := &models.BackupCode{}
		if err := rows.Scan(
			&code.ID, &code.IdentityID, &code.CodeHash, &code.Position, &code.UsedAt, &code.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan backup code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// MarkUsed spends one code; the used_at guard makes double-spending
// impossible even if two requests present the same code concurrently.
func (r *pgxBackupCodeRepository) MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	query := `UPDATE backup_codes SET used_at = $2 WHERE id = $1 AND used_at IS NULL`
	tag, err := r.db.Exec(ctx, query, id, now)
	if err != nil {
		return false, fmt.Errorf("failed to mark backup code used: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgxBackupCodeRepository) CountActiveByIdentity(ctx context.Context, identityID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM backup_codes WHERE identity_id = $1 AND used_at IS NULL`,
		identityID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count backup codes: %w", err)
	}
	return count, nil
}

func (r *pgxBackupCodeRepository) DeleteByIdentity(ctx context.Context, identityID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM backup_codes WHERE identity_id = $1`, identityID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete backup codes: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ repository.BackupCodeRepository = (*pgxBackupCodeRepository)(nil)
