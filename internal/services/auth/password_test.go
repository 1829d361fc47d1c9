// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"codeberg.org/cloudauth/lightadmin/internal/services/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func legacyDigest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func TestHashPassword(t *testing.T) {
	hash, err := auth.HashPassword("pw")

	require.NoError(t, err)
	assert.NotEqual(t, "pw", hash)
	assert.True(t, auth.CheckPassword(hash, "pw"))
	assert.False(t, auth.CheckPassword(hash, "wrong"))
	assert.False(t, auth.NeedsRehash(hash))
}

func TestHashPassword_Salted(t *testing.T) {
	first, err := auth.HashPassword("pw")
	require.NoError(t, err)
	second, err := auth.HashPassword("pw")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCheckPassword_LegacyDigest(t *testing.T) {
	hash := legacyDigest("pw")

	assert.True(t, auth.CheckPassword(hash, "pw"))
	assert.False(t, auth.CheckPassword(hash, "pw2"))
	assert.True(t, auth.NeedsRehash(hash))
}

func TestCheckPassword_Garbage(t *testing.T) {
	assert.False(t, auth.CheckPassword("", "pw"))
	assert.False(t, auth.CheckPassword("not-a-hash", "pw"))
}
