package service_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daon-network/auth-service/internal/domain/models"
	"github.com/daon-network/auth-service/internal/domain/service"
	"github.com/daon-network/auth-service/internal/infrastructure/security"
)

func newBackupCodeService(t *testing.T) service.BackupCodeService {
	t.Helper()
	hasher := security.NewArgon2Hasher(security.Argon2Params{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	return service.NewBackupCodeService(hasher, 3)
}

func TestGenerateSet(t *testing.T) {
	svc := newBackupCodeService(t)

	codes, hashes, err := svc.GenerateSet(10)
	require.NoError(t, err)
	require.Len(t, codes, 10)
	require.Len(t, hashes, 10)

	seen := make(map[string]struct{})
	for _, code := range codes {
		assert.Regexp(t, `^[23456789A-HJKMNP-Z]{4}-[23456789A-HJKMNP-Z]{4}$`, code)
		assert.NotContains(t, code, "0")
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "1")
		assert.NotContains(t, code, "I")
		seen[code] = struct{}{}
	}
	assert.Len(t, seen, 10, "codes must be unique")

	for _, hash := range hashes {
		assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	}
}

func TestMatch(t *testing.T) {
	svc := newBackupCodeService(t)

	codes, hashes, err := svc.GenerateSet(3)
	require.NoError(t, err)

	active := make([]*models.BackupCode, len(hashes))
	for i, hash := range hashes {
		active[i] = &models.BackupCode{ID: uuid.New(), CodeHash: hash, Position: i}
	}

	matched, err := svc.Match(codes[1], active)
	require.NoError(t, err)
	require.NotNil(t, matched)
	assert.Equal(t, 1, matched.Position)

	// Separator and case are cosmetic.
	loose := strings.ToLower(strings.ReplaceAll(codes[2], "-", ""))
	matched, err = svc.Match(loose, active)
	require.NoError(t, err)
	require.NotNil(t, matched)
	assert.Equal(t, 2, matched.Position)
}

func TestMatch_NoMatch(t *testing.T) {
	svc := newBackupCodeService(t)

	_, hashes, err := svc.GenerateSet(2)
	require.NoError(t, err)

	active := []*models.BackupCode{
		{ID: uuid.New(), CodeHash: hashes[0]},
		{ID: uuid.New(), CodeHash: hashes[1]},
	}

	matched, err := svc.Match("ZZZZ-ZZZZ", active)
	require.NoError(t, err)
	assert.Nil(t, matched)

	matched, err = svc.Match("too-short", active)
	require.NoError(t, err)
	assert.Nil(t, matched)

	matched, err = svc.Match("", nil)
	require.NoError(t, err)
	assert.Nil(t, matched)
}

func TestShouldRegenerate(t *testing.T) {
	svc := newBackupCodeService(t)

	assert.False(t, svc.ShouldRegenerate(4))
	assert.True(t, svc.ShouldRegenerate(3))
	assert.True(t, svc.ShouldRegenerate(0))
}
