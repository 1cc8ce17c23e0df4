package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/daon-network/auth-service/internal/config"
	domainErrors "github.com/daon-network/auth-service/internal/domain/errors"
	"github.com/daon-network/auth-service/internal/domain/models"
	"github.com/daon-network/auth-service/internal/domain/repository"
	"github.com/daon-network/auth-service/internal/infrastructure/email"
	"github.com/daon-network/auth-service/internal/infrastructure/ratelimit"
	"github.com/daon-network/auth-service/internal/infrastructure/security"
)

const magicLinkTokenBytes = 32

// MagicLinkService issues and redeems single-use email login links.
type MagicLinkService interface {
	// Request creates a link for the email and delivers it. Issuance is
	// rate limited per email address; redemption state is unaffected by
	// delivery failures.
	Request(ctx context.Context, emailAddr string) error
	// Redeem consumes the raw token and returns the authenticated
	// identity, creating it on first login. Expired, unknown and
	// already-used tokens are indistinguishable to the caller.
	Redeem(ctx context.Context, rawToken string) (*models.Identity, error)
}

type magicLinkService struct {
	links      repository.MagicLinkRepository
	identities repository.IdentityRepository
	limiter    ratelimit.Limiter
	sender     email.Sender
	cfg        config.MagicLinkConfig
	logger     *zap.Logger
}

var _ MagicLinkService = (*magicLinkService)(nil)

// NewMagicLinkService creates a MagicLinkService.
func NewMagicLinkService(
	links repository.MagicLinkRepository,
	identities repository.IdentityRepository,
	limiter ratelimit.Limiter,
	sender email.Sender,
	cfg config.MagicLinkConfig,
	logger *zap.Logger,
) MagicLinkService {
	return &magicLinkService{
		links:      links,
		identities: identities,
		limiter:    limiter,
		sender:     sender,
		cfg:        cfg,
		logger:     logger,
	}
}

func (s *magicLinkService) Request(ctx context.Context, emailAddr string) error {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))

	allowed, err := s.limiter.Allow(ctx, "magic_link:"+emailAddr, s.cfg.RateLimit, s.cfg.RateWindow)
	if err != nil {
		// A broken limiter must not lock users out of login.
		s.logger.Warn("magic link rate limiter unavailable", zap.Error(err))
	} else if !allowed {
		return domainErrors.ErrRateLimited
	}

	rawToken, err := security.GenerateToken(magicLinkTokenBytes)
	if err != nil {
		return fmt.Errorf("generate magic link token: %w", err)
	}

	now := time.Now().UTC()
	link := &models.MagicLink{
		ID:        uuid.New(),
		Email:     emailAddr,
		TokenHash: security.HashToken(rawToken),
		ExpiresAt: now.Add(s.cfg.TTL),
		CreatedAt: now,
	}
	if err := s.links.Create(ctx, link); err != nil {
		return fmt.Errorf("store magic link: %w", err)
	}

	loginURL := fmt.Sprintf("%s?token=%s", s.cfg.BaseURL, rawToken)
	body := fmt.Sprintf(
		"Click the link below to sign in. It can be used once and expires in %d minutes.\r\n\r\n%s\r\n\r\nIf you did not request this, you can ignore this email.",
		int(s.cfg.TTL.Minutes()), loginURL,
	)
	if err := s.sender.Send(ctx, emailAddr, "Your sign-in link", body); err != nil {
		// The link row stays valid; delivery can be retried by asking for
		// a new link.
		s.logger.Error("magic link delivery failed",
			zap.String("email", emailAddr),
			zap.Error(err),
		)
	}
	return nil
}

func (s *magicLinkService) Redeem(ctx context.Context, rawToken string) (*models.Identity, error) {
	if rawToken == "" {
		return nil, domainErrors.ErrInvalidOrExpiredCredential
	}

	now := time.Now().UTC()
	link, err := s.links.Consume(ctx, security.HashToken(rawToken), now)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, domainErrors.ErrInvalidOrExpiredCredential
		}
		return nil, fmt.Errorf("consume magic link: %w", err)
	}

	identity, err := s.resolveIdentity(ctx, link.Email)
	if err != nil {
		return nil, err
	}
	if !identity.Active() {
		return nil, domainErrors.ErrIdentityDisabled
	}
	if identity.EmailVerifiedAt == nil {
		if err := s.identities.MarkEmailVerified(ctx, identity.ID); err != nil {
			return nil, fmt.Errorf("mark email verified: %w", err)
		}
	}
	return identity, nil
}

// resolveIdentity returns the identity for the email, creating it on first
// login. A concurrent create is resolved by re-reading.
func (s *magicLinkService) resolveIdentity(ctx context.Context, emailAddr string) (*models.Identity, error) {
	identity, err := s.identities.FindByEmail(ctx, emailAddr)
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, domainErrors.ErrNotFound) {
		return nil, fmt.Errorf("find identity: %w", err)
	}

	now := time.Now().UTC()
	fresh := &models.Identity{
		ID:        uuid.New(),
		Email:     emailAddr,
		Status:    models.IdentityStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.identities.Create(ctx, fresh)
	if err == nil {
		s.logger.Info("identity created on first login", zap.String("identity_id", fresh.ID.String()))
		return fresh, nil
	}
	if errors.Is(err, domainErrors.ErrConflict) {
		identity, err = s.identities.FindByEmail(ctx, emailAddr)
		if err != nil {
			return nil, fmt.Errorf("find identity after conflict: %w", err)
		}
		return identity, nil
	}
	return nil, fmt.Errorf("create identity: %w", err)
}
