package service

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPService generates and validates time-based one-time passwords. The
// shared secret never leaves this package unencrypted except through
// Generate, whose caller is expected to seal it immediately.
type TOTPService interface {
	// Generate produces a fresh secret and the otpauth:// provisioning URL
	// for the given account label.
	Generate(accountName string) (secret, otpauthURL string, err error)
	// Validate checks a 6-digit code against the secret, accepting one
	// period of clock skew in either direction.
	Validate(code, secret string, now time.Time) bool
	// Code computes the current code for a secret. Used only in tests and
	// dev tooling.
	Code(secret string, now time.Time) (string, error)
}

type totpService struct {
	issuer string
}

var _ TOTPService = (*totpService)(nil)

// NewTOTPService creates a TOTPService whose provisioning URLs carry the
// given issuer name.
func NewTOTPService(issuer string) TOTPService {
	return &totpService{issuer: issuer}
}

func (s *totpService) Generate(accountName string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountName,
		Period:      30,
		SecretSize:  20,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate totp key: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

func (s *totpService) Validate(code, secret string, now time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, now, totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func (s *totpService) Code(secret string, now time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, now, totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("generate totp code: %w", err)
	}
	return code, nil
}
