package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/daon-network/auth-service/internal/config"
	domainErrors "github.com/daon-network/auth-service/internal/domain/errors"
)

// AccessClaims is the stateless claim set carried by access tokens. It holds
// only the identity id plus the standard issued/expiry pair; nothing else is
// persisted or embedded.
type AccessClaims struct {
	jwt.RegisteredClaims
}

// JWTManager signs and verifies access tokens with HS256.
type JWTManager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewJWTManager builds a JWTManager from config. The signing secret is
// required; config validation enforces that before this is reached.
func NewJWTManager(cfg config.JWTConfig) (*JWTManager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt signing secret is required")
	}
	return &JWTManager{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.AccessTokenTTL,
	}, nil
}

// TTL returns the configured access token lifetime.
func (m *JWTManager) TTL() time.Duration { return m.ttl }

// Issue signs a new access token for the identity and returns the token with
// its lifetime in seconds.
func (m *JWTManager) Issue(identityID uuid.UUID, now time.Time) (string, int64, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID.String(),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, int64(m.ttl.Seconds()), nil
}

// Verify checks signature and expiry and returns the identity id. Tokens are
// verified statelessly; there is no revocation list for access tokens.
func (m *JWTManager) Verify(tokenString string) (uuid.UUID, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, domainErrors.ErrTokenExpired
		}
		return uuid.Nil, fmt.Errorf("%w: %v", domainErrors.ErrInvalidOrExpiredCredential, err)
	}
	if !token.Valid {
		return uuid.Nil, domainErrors.ErrInvalidOrExpiredCredential
	}
	identityID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed subject", domainErrors.ErrInvalidOrExpiredCredential)
	}
	return identityID, nil
}
