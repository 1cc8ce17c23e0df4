package service

import (
	"fmt"
	"strings"

	"github.com/daon-network/auth-service/internal/domain/models"
	"github.com/daon-network/auth-service/internal/infrastructure/security"
)

// codeAlphabet excludes visually ambiguous characters (0/O, 1/I/L) so codes
// survive being read off a printout.
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const codeLength = 8

// BackupCodeService generates and checks single-use recovery codes.
type BackupCodeService interface {
	// GenerateSet produces count fresh codes plus their argon2id hashes.
	// Plaintext codes are returned exactly once and never stored.
	GenerateSet(count int) (codes []string, hashes []string, err error)
	// Match finds which of the candidate codes a submitted value matches.
	// Returns the matched code or nil. Matching is non-mutating; the
	// caller consumes the matched row.
	Match(submitted string, active []*models.BackupCode) (*models.BackupCode, error)
	// ShouldRegenerate reports whether the remaining-code count is at or
	// below the low-water mark.
	ShouldRegenerate(remaining int) bool
}

type backupCodeService struct {
	hasher   security.CodeHasher
	lowWater int
}

var _ BackupCodeService = (*backupCodeService)(nil)

// NewBackupCodeService creates a BackupCodeService. lowWater is the remaining
// count at which clients are told to regenerate.
func NewBackupCodeService(hasher security.CodeHasher, lowWater int) BackupCodeService {
	return &backupCodeService{hasher: hasher, lowWater: lowWater}
}

func (s *backupCodeService) GenerateSet(count int) ([]string, []string, error) {
	codes := make([]string, 0, count)
	hashes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		raw, err := security.GenerateCode(codeAlphabet, codeLength)
		if err != nil {
			return nil, nil, fmt.Errorf("generate backup code: %w", err)
		}
		hash, err := s.hasher.Hash(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("hash backup code: %w", err)
		}
		codes = append(codes, formatCode(raw))
		hashes = append(hashes, hash)
	}
	return codes, hashes, nil
}

func (s *backupCodeService) Match(submitted string, active []*models.BackupCode) (*models.BackupCode, error) {
	normalized := normalizeCode(submitted)
	if len(normalized) != codeLength {
		return nil, nil
	}
	for _, code := range active {
		ok, err := s.hasher.Verify(normalized, code.CodeHash)
		if err != nil {
			return nil, fmt.Errorf("verify backup code: %w", err)
		}
		if ok {
			return code, nil
		}
	}
	return nil, nil
}

func (s *backupCodeService) ShouldRegenerate(remaining int) bool {
	return remaining <= s.lowWater
}

// formatCode renders a code as XXXX-XXXX for display.
func formatCode(raw string) string {
	if len(raw) != codeLength {
		return raw
	}
	return raw[:4] + "-" + raw[4:]
}

// normalizeCode strips separators and whitespace and upcases, so users may
// type codes with or without the display hyphen.
func normalizeCode(submitted string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t':
			return -1
		}
		return r
	}, submitted)
	return strings.ToUpper(cleaned)
}
