package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/daon-network/auth-service/internal/config"
	"github.com/daon-network/auth-service/internal/domain/repository"
)

// CleanupService periodically purges rows whose lifetime has ended: expired
// magic links and temp sessions, lapsed device-trust bindings, and refresh
// tokens past expiry or past the revoked-row retention window.
type CleanupService struct {
	magicLinks   repository.MagicLinkRepository
	tempSessions repository.TempSessionRepository
	devices      repository.TrustedDeviceRepository
	tokens       repository.RefreshTokenRepository
	cfg          config.CleanupConfig
	logger       *zap.Logger
}

// NewCleanupService creates a CleanupService.
func NewCleanupService(
	magicLinks repository.MagicLinkRepository,
	tempSessions repository.TempSessionRepository,
	devices repository.TrustedDeviceRepository,
	tokens repository.RefreshTokenRepository,
	cfg config.CleanupConfig,
	logger *zap.Logger,
) *CleanupService {
	return &CleanupService{
		magicLinks:   magicLinks,
		tempSessions: tempSessions,
		devices:      devices,
		tokens:       tokens,
		cfg:          cfg,
		logger:       logger,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *CleanupService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("cleanup sweeper started", zap.Duration("interval", s.cfg.Interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("cleanup sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one purge pass. Failures on one table do not stop the others.
func (s *CleanupService) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	links, err := s.magicLinks.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error("purge magic links failed", zap.Error(err))
	}
	sessions, err := s.tempSessions.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error("purge temp sessions failed", zap.Error(err))
	}
	devices, err := s.devices.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error("purge trusted devices failed", zap.Error(err))
	}
	tokens, err := s.tokens.DeleteExpired(ctx, now, s.cfg.RevokedRetention)
	if err != nil {
		s.logger.Error("purge refresh tokens failed", zap.Error(err))
	}

	if links+sessions+devices+tokens > 0 {
		s.logger.Info("cleanup sweep finished",
			zap.Int64("magic_links", links),
			zap.Int64("temp_sessions", sessions),
			zap.Int64("trusted_devices", devices),
			zap.Int64("refresh_tokens", tokens),
		)
	}
}
