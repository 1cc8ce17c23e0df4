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

const trustedDeviceColumns = `id, identity_id, stable_id, fingerprint, label, trusted_until, last_seen_at, revoked_at, created_at`

type pgxTrustedDeviceRepository struct {
	db *pgxpool.Pool
}

// NewPgxTrustedDeviceRepository creates a new Postgres-backed
// TrustedDeviceRepository.
func NewPgxTrustedDeviceRepository(db *pgxpool.Pool) repository.TrustedDeviceRepository {
	return &pgxTrustedDeviceRepository{db: db}
}

// FindActiveByKey matches on stable id OR fingerprint; blank components are
// excluded so an empty key never matches everything.
func (r *pgxTrustedDeviceRepository) FindActiveByKey(ctx context.Context, identityID uuid.UUID, key models.DeviceKey, now time.Time) (*models.TrustedDevice, error) {
	if key.Empty() {
		return nil, domainErrors.ErrNotFound
	}
	query := `
		SELECT ` + trustedDeviceColumns + `
		FROM trusted_devices
		WHERE identity_id = $1
		  AND (($2 <> '' AND stable_id = $2) OR ($3 <> '' AND fingerprint = $3))
		  AND revoked_at IS NULL
		  AND trusted_until > $4
		ORDER BY trusted_until DESC
		LIMIT 1`
	return r.scanOne(r.db.QueryRow(ctx, query, identityID, key.StableID, key.Fingerprint, now))
}

func (r *pgxTrustedDeviceRepository) FindByID(ctx context.Context, identityID, deviceID uuid.UUID) (*models.TrustedDevice, error) {
	query := `
		SELECT ` + trustedDeviceColumns + `
		FROM trusted_devices
		WHERE id = $1 AND identity_id = $2`
	return r.scanOne(r.db.QueryRow(ctx, query, deviceID, identityID))
}

func (r *pgxTrustedDeviceRepository) ListByIdentity(ctx context.Context, identityID uuid.UUID) ([]*models.TrustedDevice, error) {
	query := `
		SELECT ` + trustedDeviceColumns + `
		FROM trusted_devices
		WHERE identity_id = $1
		ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trusted devices: %w", err)
	}
	defer rows.Close()

	var devices []*models.TrustedDevice
	for rows.Next() {
		device := &models.TrustedDevice{}
		if err := rows.Scan(
			&device.ID, &device.IdentityID, &device.StableID, &device.Fingerprint, &device.Label,
			&device.TrustedUntil, &device.LastSeenAt, &device.RevokedAt, &device.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trusted device: %w", err)
		}
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

// Upsert refreshes the trust window and clears any prior revocation when a
// row for (identity, stable_id) already exists.
func (r *pgxTrustedDeviceRepository) Upsert(ctx context.Context, device *models.TrustedDevice) error {
	query := `
		INSERT INTO trusted_devices (id, identity_id, stable_id, fingerprint, label, trusted_until, last_seen_at, revoked_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, $8)
		ON CONFLICT (identity_id, stable_id) DO UPDATE SET
			fingerprint = EXCLUDED.fingerprint,
			label = EXCLUDED.label,
			trusted_until = EXCLUDED.trusted_until,
			last_seen_at = EXCLUDED.last_seen_at,
			revoked_at = NULL`
	_, err := r.db.Exec(ctx, query,
		device.ID, device.IdentityID, device.StableID, device.Fingerprint, device.Label,
		device.TrustedUntil, device.LastSeenAt, device.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert trusted device: %w", err)
	}
	return nil
}

func (r *pgxTrustedDeviceRepository) Rename(ctx context.Context, identityID, deviceID uuid.UUID, label string) error {
	query := `UPDATE trusted_devices SET label = $3 WHERE id = $1 AND identity_id = $2`
	tag, err := r.db.Exec(ctx, query, deviceID, identityID, label)
	if err != nil {
		return fmt.Errorf("failed to rename trusted device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *pgxTrustedDeviceRepository) Revoke(ctx context.Context, identityID, deviceID uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE trusted_devices SET revoked_at = $3
		WHERE id = $1 AND identity_id = $2 AND revoked_at IS NULL`
	tag, err := r.db.Exec(ctx, query, deviceID, identityID, now)
	if err != nil {
		return false, fmt.Errorf("failed to revoke trusted device: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgxTrustedDeviceRepository) TouchLastSeen(ctx context.Context, id uuid.UUID, now time.Time) error {
	query := `UPDATE trusted_devices SET last_seen_at = $2 WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, now); err != nil {
		return fmt.Errorf("failed to touch trusted device: %w", err)
	}
	return nil
}

func (r *pgxTrustedDeviceRepository) CountActiveByIdentity(ctx context.Context, identityID uuid.UUID, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM trusted_devices
		WHERE identity_id = $1 AND revoked_at IS NULL AND trusted_until > $2`
	var count int
	if err := r.db.QueryRow(ctx, query, identityID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trusted devices: %w", err)
	}
	return count, nil
}

func (r *pgxTrustedDeviceRepository) DeleteLeastRecentlySeen(ctx context.Context, identityID uuid.UUID, keep int) (int64, error) {
	query := `
		DELETE FROM trusted_devices
		WHERE identity_id = $1 AND id NOT IN (
			SELECT id FROM trusted_devices
			WHERE identity_id = $1
			ORDER BY COALESCE(last_seen_at, created_at) DESC
			LIMIT $2
		)`
	tag, err := r.db.Exec(ctx, query, identityID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to evict trusted devices: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgxTrustedDeviceRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM trusted_devices WHERE trusted_until < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired trusted devices: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgxTrustedDeviceRepository) scanOne(row pgx.Row) (*models.TrustedDevice, error) {
	device := &models.TrustedDevice{}
	err := row.Scan(
		&device.ID, &device.IdentityID, &device.StableID, &device.Fingerprint, &device.Label,
		&device.TrustedUntil, &device.LastSeenAt, &device.RevokedAt, &device.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan trusted device: %w", err)
	}
	return device, nil
}

var _ repository.TrustedDeviceRepository = (*pgxTrustedDeviceRepository)(nil)
