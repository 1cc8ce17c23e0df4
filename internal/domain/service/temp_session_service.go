package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/daon-network/auth-service/internal/domain/errors"
	"github.com/daon-network/auth-service/internal/domain/models"
	"github.com/daon-network/auth-service/internal/domain/repository"
)

// TempSessionService manages the short-lived sessions that bridge a
// redeemed magic link and a completed second factor. A session moves
// pending -> completed on success, or dies by expiry or attempt exhaustion;
// terminal states never transition back.
type TempSessionService interface {
	// Begin opens a new session for the given flow.
	Begin(ctx context.Context, identityID uuid.UUID, flow models.TempSessionFlow) (*models.TempSession, error)
	// AttachSetupPayload stores the pending enrollment data on a setup
	// session.
	AttachSetupPayload(ctx context.Context, id uuid.UUID, payload models.SetupPayload) error
	// Take loads a session and checks it is usable for the given flow.
	// Missing, expired and completed sessions all surface as
	// ErrInvalidOrExpiredCredential; a live session of the other flow is
	// ErrWrongFlow; a spent attempt budget is ErrAttemptsExceeded.
	Take(ctx context.Context, id uuid.UUID, flow models.TempSessionFlow) (*models.TempSession, error)
	// RecordFailure charges one failed attempt and returns the error the
	// caller should surface: ErrAttemptsExceeded when the budget is now
	// spent, ErrWrongSecondFactor otherwise.
	RecordFailure(ctx context.Context, id uuid.UUID) error
	// Complete marks the session terminal-success. Exactly one caller
	// wins; completing an already completed session surfaces
	// ErrInvalidOrExpiredCredential.
	Complete(ctx context.Context, id uuid.UUID, now time.Time) error
}

type tempSessionService struct {
	repo        repository.TempSessionRepository
	ttl         time.Duration
	maxAttempts int
	logger      *zap.Logger
}

var _ TempSessionService = (*tempSessionService)(nil)

// NewTempSessionService creates a TempSessionService.
func NewTempSessionService(repo repository.TempSessionRepository, ttl time.Duration, maxAttempts int, logger *zap.Logger) TempSessionService {
	return &tempSessionService{repo: repo, ttl: ttl, maxAttempts: maxAttempts, logger: logger}
}

func (s *tempSessionService) Begin(ctx context.Context, identityID uuid.UUID, flow models.TempSessionFlow) (*models.TempSession, error) {
	now := time.Now().UTC()
	session := &models.TempSession{
		ID:          uuid.New(),
		IdentityID:  identityID,
		Flow:        flow,
		MaxAttempts: s.maxAttempts,
		ExpiresAt:   now.Add(s.ttl),
		CreatedAt:   now,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create temp session: %w", err)
	}
	s.logger.Debug("temp session opened",
		zap.String("session_id", session.ID.String()),
		zap.String("flow", string(flow)),
	)
	return session, nil
}

func (s *tempSessionService) AttachSetupPayload(ctx context.Context, id uuid.UUID, payload models.SetupPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal setup payload: %w", err)
	}
	if err := s.repo.AttachPayload(ctx, id, raw); err != nil {
		return fmt.Errorf("attach setup payload: %w", err)
	}
	return nil
}

func (s *tempSessionService) Take(ctx context.Context, id uuid.UUID, flow models.TempSessionFlow) (*models.TempSession, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, domainErrors.ErrInvalidOrExpiredCredential
		}
		return nil, fmt.Errorf("find temp session: %w", err)
	}
	now := time.Now().UTC()
	if session.Expired(now) || session.Completed() {
		return nil, domainErrors.ErrInvalidOrExpiredCredential
	}
	if session.Flow != flow {
		return nil, domainErrors.ErrWrongFlow
	}
	if session.Exhausted() {
		return nil, domainErrors.ErrAttemptsExceeded
	}
	return session, nil
}

func (s *tempSessionService) RecordFailure(ctx context.Context, id uuid.UUID) error {
	attempts, err := s.repo.IncrementAttempts(ctx, id)
	if err != nil {
		return fmt.Errorf("increment attempts: %w", err)
	}
	if attempts >= s.maxAttempts {
		return domainErrors.ErrAttemptsExceeded
	}
	return domainErrors.ErrWrongSecondFactor
}

func (s *tempSessionService) Complete(ctx context.Context, id uuid.UUID, now time.Time) error {
	won, err := s.repo.Complete(ctx, id, now)
	if err != nil {
		return fmt.Errorf("complete temp session: %w", err)
	}
	if !won {
		// A concurrent submission completed this session first.
		return domainErrors.ErrInvalidOrExpiredCredential
	}
	return nil
}
