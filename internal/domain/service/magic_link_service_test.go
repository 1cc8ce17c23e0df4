package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/daon-network/auth-service/internal/config"
	domainErrors "github.com/daon-network/auth-service/internal/domain/errors"
	"github.com/daon-network/auth-service/internal/domain/models"
	"github.com/daon-network/auth-service/internal/domain/service"
	"github.com/daon-network/auth-service/internal/infrastructure/security"
)

func magicLinkConfig() config.MagicLinkConfig {
	return config.MagicLinkConfig{
		TTL:        30 * time.Minute,
		BaseURL:    "https://app.example.com/auth/verify",
		RateWindow: time.Minute,
		RateLimit:  3,
	}
}

func TestMagicLink_Request(t *testing.T) {
	links := new(mockMagicLinkRepo)
	identities := new(mockIdentityRepo)
	limiter := new(mockLimiter)
	sender := new(mockSender)
	svc := service.NewMagicLinkService(links, identities, limiter, sender, magicLinkConfig(), zap.NewNop())

	limiter.On("Allow", mock.Anything, "magic_link:user@example.com", 3, time.Minute).Return(true, nil)
	links.On("Create", mock.Anything, mock.MatchedBy(func(l *models.MagicLink) bool {
		return l.Email == "user@example.com" &&
			len(l.TokenHash) == 64 &&
			l.ExpiresAt.After(time.Now())
	})).Return(nil)
	sender.On("Send", mock.Anything, "user@example.com", mock.Anything, mock.MatchedBy(func(body string) bool {
		return len(body) > 0
	})).Return(nil)

	// Address is normalized before any processing.
	err := svc.Request(context.Background(), "  User@Example.COM ")
	require.NoError(t, err)

	links.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestMagicLink_Request_RateLimited(t *testing.T) {
	links := new(mockMagicLinkRepo)
	limiter := new(mockLimiter)
	sender := new(mockSender)
	svc := service.NewMagicLinkService(links, new(mockIdentityRepo), limiter, sender, magicLinkConfig(), zap.NewNop())

	limiter.On("Allow", mock.Anything, mock.Anything, 3, time.Minute).Return(false, nil)

	err := svc.Request(context.Background(), "user@example.com")
	assert.ErrorIs(t, err, domainErrors.ErrRateLimited)
	links.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestMagicLink_Request_DeliveryFailureDoesNotAbort(t *testing.T) {
	links := new(mockMagicLinkRepo)
	limiter := new(mockLimiter)
	sender := new(mockSender)
	svc := service.NewMagicLinkService(links, new(mockIdentityRepo), limiter, sender, magicLinkConfig(), zap.NewNop())

	limiter.On("Allow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	links.On("Create", mock.Anything, mock.Anything).Return(nil)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	err := svc.Request(context.Background(), "user@example.com")
	assert.NoError(t, err, "delivery failure must not surface to the caller")
}

func TestMagicLink_Redeem_ExistingIdentity(t *testing.T) {
	links := new(mockMagicLinkRepo)
	identities := new(mockIdentityRepo)
	svc := service.NewMagicLinkService(links, identities, new(mockLimiter), new(mockSender), magicLinkConfig(), zap.NewNop())

	rawToken := "raw-token-value"
	verified := time.Now().Add(-time.Hour)
	identity := &models.Identity{
		Email:           "user@example.com",
		EmailVerifiedAt: &verified,
		Status:          models.IdentityStatusActive,
	}

	links.On("Consume", mock.Anything, security.HashToken(rawToken), mock.Anything).
		Return(&models.MagicLink{Email: "user@example.com"}, nil)
	identities.On("FindByEmail", mock.Anything, "user@example.com").Return(identity, nil)

	got, err := svc.Redeem(context.Background(), rawToken)
	require.NoError(t, err)
	assert.Equal(t, identity, got)
	identities.AssertNotCalled(t, "MarkEmailVerified", mock.Anything, mock.Anything)
}

func TestMagicLink_Redeem_CreatesIdentityOnFirstLogin(t *testing.T) {
	links := new(mockMagicLinkRepo)
	identities := new(mockIdentityRepo)
	svc := service.NewMagicLinkService(links, identities, new(mockLimiter), new(mockSender), magicLinkConfig(), zap.NewNop())

	links.On("Consume", mock.Anything, mock.Anything, mock.Anything).
		Return(&models.MagicLink{Email: "new@example.com"}, nil)
	identities.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, domainErrors.ErrNotFound)
	identities.On("Create", mock.Anything, mock.MatchedBy(func(i *models.Identity) bool {
		return i.Email == "new@example.com" && i.Status == models.IdentityStatusActive && !i.TwoFAEnabled
	})).Return(nil)
	identities.On("MarkEmailVerified", mock.Anything, mock.Anything).Return(nil)

	got, err := svc.Redeem(context.Background(), "some-token")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)
	identities.AssertExpectations(t)
}

func TestMagicLink_Redeem_InvalidToken(t *testing.T) {
	links := new(mockMagicLinkRepo)
	svc := service.NewMagicLinkService(links, new(mockIdentityRepo), new(mockLimiter), new(mockSender), magicLinkConfig(), zap.NewNop())

	links.On("Consume", mock.Anything, mock.Anything, mock.Anything).Return(nil, domainErrors.ErrNotFound)

	_, err := svc.Redeem(context.Background(), "expired-or-used-or-bogus")
	assert.ErrorIs(t, err, domainErrors.ErrInvalidOrExpiredCredential)

	_, err = svc.Redeem(context.Background(), "")
	assert.ErrorIs(t, err, domainErrors.ErrInvalidOrExpiredCredential)
}

func TestMagicLink_Redeem_DisabledIdentity(t *testing.T) {
	links := new(mockMagicLinkRepo)
	identities := new(mockIdentityRepo)
	svc := service.NewMagicLinkService(links, identities, new(mockLimiter), new(mockSender), magicLinkConfig(), zap.NewNop())

	links.On("Consume", mock.Anything, mock.Anything, mock.Anything).
		Return(&models.MagicLink{Email: "banned@example.com"}, nil)
	identities.On("FindByEmail", mock.Anything, "banned@example.com").
		Return(&models.Identity{Email: "banned@example.com", Status: models.IdentityStatusDisabled}, nil)

	_, err := svc.Redeem(context.Background(), "token")
	assert.ErrorIs(t, err, domainErrors.ErrIdentityDisabled)
}
