// Package service holds the application services that orchestrate the auth
// domain: token issuance and the login/second-factor flows.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/daon-network/auth-service/internal/config"
	domainErrors "github.com/daon-network/auth-service/internal/domain/errors"
	"github.com/daon-network/auth-service/internal/domain/models"
	"github.com/daon-network/auth-service/internal/domain/repository"
	"github.com/daon-network/auth-service/internal/infrastructure/broadcast"
	"github.com/daon-network/auth-service/internal/infrastructure/security"
)

const refreshTokenBytes = 32

// AccessTokenVerifier checks bearer tokens for the HTTP middleware.
type AccessTokenVerifier interface {
	Verify(tokenString string) (uuid.UUID, error)
}

// accessTokenIssuer is the signing side of the JWT manager.
type accessTokenIssuer interface {
	Issue(identityID uuid.UUID, now time.Time) (string, int64, error)
}

// TokenService issues, rotates and revokes the access/refresh token pair.
type TokenService interface {
	// IssuePair mints a fresh access token and an opaque refresh token
	// bound to the calling device. rotatedFrom links the new refresh
	// token to its predecessor when this issuance is a rotation.
	IssuePair(ctx context.Context, identityID uuid.UUID, dc models.DeviceContext, rotatedFrom *uuid.UUID) (*models.TokenPair, error)
	// Resolve validates a raw refresh token against storage and the
	// calling device. Expired tokens surface ErrTokenExpired, revoked
	// ones ErrTokenRevoked, and a device-binding mismatch
	// ErrDeviceMismatch.
	Resolve(ctx context.Context, rawRefresh string, key models.DeviceKey) (*models.RefreshToken, error)
	// Rotate retires the given refresh token and issues a replacement
	// pair. Under concurrent rotation of the same token exactly one
	// caller wins; losers wait briefly for the winner's pair on the
	// rotation broadcast and fall back to ErrTokenRevoked when nothing
	// arrives. With rotation disabled the refresh token is reused and
	// only a new access token is minted.
	Rotate(ctx context.Context, token *models.RefreshToken, dc models.DeviceContext) (*models.TokenPair, error)
	// Revoke retires a refresh token on logout. Revoking an unknown or
	// already revoked token is a no-op.
	Revoke(ctx context.Context, rawRefresh string) error
	// RevokeAll retires every live refresh token of the identity and
	// returns how many were revoked.
	RevokeAll(ctx context.Context, identityID uuid.UUID, reason string) (int64, error)
}

type tokenService struct {
	tokens      repository.RefreshTokenRepository
	jwt         accessTokenIssuer
	broadcaster broadcast.RotationBroadcaster
	cfg         config.RefreshTokenConfig
	logger      *zap.Logger
}

var _ TokenService = (*tokenService)(nil)

// NewTokenService creates a TokenService. broadcaster may be nil; losers of
// a rotation race then simply re-authenticate.
func NewTokenService(
	tokens repository.RefreshTokenRepository,
	jwt accessTokenIssuer,
	broadcaster broadcast.RotationBroadcaster,
	cfg config.RefreshTokenConfig,
	logger *zap.Logger,
) TokenService {
	return &tokenService{tokens: tokens, jwt: jwt, broadcaster: broadcaster, cfg: cfg, logger: logger}
}

func (s *tokenService) IssuePair(ctx context.Context, identityID uuid.UUID, dc models.DeviceContext, rotatedFrom *uuid.UUID) (*models.TokenPair, error) {
	now := time.Now().UTC()

	access, expiresIn, err := s.jwt.Issue(identityID, now)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	rawRefresh, err := security.GenerateToken(refreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	token := &models.RefreshToken{
		ID:                uuid.New(),
		IdentityID:        identityID,
		TokenHash:         security.HashToken(rawRefresh),
		DeviceStableID:    dc.StableID,
		DeviceFingerprint: dc.Fingerprint,
		ExpiresAt:         now.Add(s.cfg.TTL),
		CreatedAt:         now,
		RotatedFrom:       rotatedFrom,
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &models.TokenPair{
		AccessToken:      access,
		ExpiresIn:        expiresIn,
		RefreshToken:     rawRefresh,
		RefreshExpiresAt: token.ExpiresAt.Unix(),
	}, nil
}

func (s *tokenService) Resolve(ctx context.Context, rawRefresh string, key models.DeviceKey) (*models.RefreshToken, error) {
	if rawRefresh == "" {
		return nil, domainErrors.ErrInvalidOrExpiredCredential
	}

	token, err := s.tokens.FindByTokenHash(ctx, security.HashToken(rawRefresh))
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, domainErrors.ErrInvalidOrExpiredCredential
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	now := time.Now().UTC()
	if token.Revoked() {
		return nil, domainErrors.ErrTokenRevoked
	}
	if token.Expired(now) {
		return nil, domainErrors.ErrTokenExpired
	}
	if !token.DeviceKey().Empty() && !token.DeviceKey().Matches(key) {
		return nil, domainErrors.ErrDeviceMismatch
	}
	return token, nil
}

func (s *tokenService) Rotate(ctx context.Context, token *models.RefreshToken, dc models.DeviceContext) (*models.TokenPair, error) {
	now := time.Now().UTC()

	if !s.cfg.RotationEnabled {
		access, expiresIn, err := s.jwt.Issue(token.IdentityID, now)
		if err != nil {
			return nil, fmt.Errorf("issue access token: %w", err)
		}
		if err := s.tokens.TouchLastUsed(ctx, token.ID, now); err != nil {
			s.logger.Warn("touch refresh token failed", zap.Error(err))
		}
		return &models.TokenPair{
			AccessToken:      access,
			ExpiresIn:        expiresIn,
			RefreshExpiresAt: token.ExpiresAt.Unix(),
		}, nil
	}

	won, err := s.tokens.Revoke(ctx, token.ID, now, models.RevokeReasonRotated)
	if err != nil {
		return nil, fmt.Errorf("retire refresh token: %w", err)
	}
	if !won {
		// Another caller rotated this token first; its replacement may
		// still arrive on the broadcast channel.
		if pair := s.awaitRotationPair(ctx, token); pair != nil {
			return pair, nil
		}
		return nil, domainErrors.ErrTokenRevoked
	}

	pair, err := s.IssuePair(ctx, token.IdentityID, dc, &token.ID)
	if err != nil {
		return nil, err
	}

	if s.broadcaster != nil {
		event := broadcast.RotationEvent{
			IdentityID:     token.IdentityID,
			RotatedTokenID: token.ID,
			Pair:           *pair,
			RotatedAt:      now,
		}
		if err := s.broadcaster.PublishRotation(ctx, event); err != nil {
			s.logger.Warn("rotation broadcast failed",
				zap.String("identity_id", token.IdentityID.String()),
				zap.Error(err),
			)
		}
	}
	return pair, nil
}

// awaitRotationPair listens on the identity's rotation channel for the pair
// that replaced token. Returns nil when the broadcaster is absent, the wait
// is disabled, or nothing arrives within the window.
func (s *tokenService) awaitRotationPair(ctx context.Context, token *models.RefreshToken) *models.TokenPair {
	if s.broadcaster == nil || s.cfg.RotationWait <= 0 {
		return nil
	}
	events, cancel, err := s.broadcaster.SubscribeRotations(ctx, token.IdentityID)
	if err != nil {
		s.logger.Warn("rotation subscribe failed",
			zap.String("identity_id", token.IdentityID.String()),
			zap.Error(err),
		)
		return nil
	}
	defer cancel()

	timer := time.NewTimer(s.cfg.RotationWait)
	defer timer.Stop()
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.RotatedTokenID == token.ID {
				pair := event.Pair
				return &pair
			}
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *tokenService) Revoke(ctx context.Context, rawRefresh string) error {
	if rawRefresh == "" {
		return nil
	}
	token, err := s.tokens.FindByTokenHash(ctx, security.HashToken(rawRefresh))
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find refresh token: %w", err)
	}
	if _, err := s.tokens.Revoke(ctx, token.ID, time.Now().UTC(), models.RevokeReasonLogout); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (s *tokenService) RevokeAll(ctx context.Context, identityID uuid.UUID, reason string) (int64, error) {
	count, err := s.tokens.RevokeAllForIdentity(ctx, identityID, time.Now().UTC(), reason)
	if err != nil {
		return 0, fmt.Errorf("revoke all refresh tokens: %w", err)
	}
	return count, nil
}
