// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/cloudauth/lightadmin/internal/config"
	"codeberg.org/cloudauth/lightadmin/internal/services/session"
	"codeberg.org/cloudauth/lightadmin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validHashKey is a valid 32-byte hex-encoded key for testing
const validHashKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// validBlockKey is a valid 32-byte hex-encoded key for encryption testing
const validBlockKey = "fedcba9876543210fedcba9876543210fedcba9876543210fedcba9876543210"

func newTestConfig() *config.SessionConfig {
	return &config.SessionConfig{
		CookieName: "session_user",
		HashKey:    validHashKey,
	}
}

func newTestManager(t *testing.T, cfg *config.SessionConfig, secure bool) *session.Manager {
	t.Helper()
	mgr, err := session.NewManager(cfg, secure)
	require.NoError(t, err)
	return mgr
}

func requestWith(cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestNewManager(t *testing.T) {
	mgr, err := session.NewManager(newTestConfig(), false)

	require.NoError(t, err)
	assert.Equal(t, "session_user", mgr.CookieName())
}

func TestNewManager_DefaultCookieName(t *testing.T) {
	mgr := newTestManager(t, &config.SessionConfig{HashKey: validHashKey}, false)

	assert.Equal(t, "session_user", mgr.CookieName())
}

func TestNewManager_WithBlockKey(t *testing.T) {
	cfg := newTestConfig()
	cfg.BlockKey = validBlockKey

	_, err := session.NewManager(cfg, true)

	require.NoError(t, err)
}

func TestNewManager_InvalidKeys(t *testing.T) {
	tests := []struct {
		name     string
		hashKey  string
		blockKey string
		want     string
	}{
		{"hash not hex", "not-hex-encoded", "", "invalid session hash key"},
		{"hash too short", "0123456789abcdef", "", "must be 32 bytes"},
		{"block not hex", validHashKey, "not-hex-encoded", "invalid session block key"},
		{"block too short", validHashKey, "0123456789abcdef", "must be 32 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig()
			cfg.HashKey = tt.hashKey
			cfg.BlockKey = tt.blockKey

			_, err := session.NewManager(cfg, false)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewManager_GeneratesMissingKey(t *testing.T) {
	mgr := newTestManager(t, &config.SessionConfig{CookieName: "s"}, false)

	cookie, err := mgr.Create("alice")
	require.NoError(t, err)

	username, err := mgr.Parse(requestWith(cookie))
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestCreate(t *testing.T) {
	mgr := newTestManager(t, newTestConfig(), false)

	cookie, err := mgr.Create("alice")

	require.NoError(t, err)
	assert.Equal(t, "session_user", cookie.Name)
	assert.NotEmpty(t, cookie.Value)
	assert.NotEqual(t, "alice", cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.Zero(t, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestCreate_SecureMode(t *testing.T) {
	mgr := newTestManager(t, newTestConfig(), true)

	cookie, err := mgr.Create("alice")

	require.NoError(t, err)
	assert.True(t, cookie.Secure)
}

func TestCreate_PlainMode(t *testing.T) {
	cfg := newTestConfig()
	cfg.Plain = true
	mgr := newTestManager(t, cfg, false)

	cookie, err := mgr.Create("alice")

	require.NoError(t, err)
	assert.Equal(t, "alice", cookie.Value)
}

func TestCreate_PlainModeRejectsUnsafeUsername(t *testing.T) {
	cfg := newTestConfig()
	cfg.Plain = true
	mgr := newTestManager(t, cfg, false)

	for _, username := range []string{"a;b", `x"y`, `back\slash`, "tab\tname", "jürgen"} {
		t.Run(username, func(t *testing.T) {
			_, err := mgr.Create(username)

			assert.ErrorIs(t, err, session.ErrUnsafeUsername)
		})
	}
}

func TestCreate_PlainModeRoundTrip(t *testing.T) {
	cfg := newTestConfig()
	cfg.Plain = true
	mgr := newTestManager(t, cfg, false)

	cookie, err := mgr.Create("ann smith, jr")
	require.NoError(t, err)

	username, err := mgr.Parse(requestWith(cookie))

	require.NoError(t, err)
	assert.Equal(t, "ann smith, jr", username)
}

func TestCreate_SignedModeAcceptsAnyUsername(t *testing.T) {
	mgr := newTestManager(t, newTestConfig(), false)

	cookie, err := mgr.Create(`a;b"c`)
	require.NoError(t, err)

	username, err := mgr.Parse(requestWith(cookie))

	require.NoError(t, err)
	assert.Equal(t, `a;b"c`, username)
}

func TestParse(t *testing.T) {
	mgr := newTestManager(t, newTestConfig(), false)
	cookie, err := mgr.Create("alice")
	require.NoError(t, err)

	username, err := mgr.Parse(requestWith(cookie))

	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestParse_NoCookie(t *testing.T) {
	mgr := newTestManager(t, newTestConfig(), false)

	username, err := mgr.Parse(requestWith(nil))

	require.NoError(t, err)
	assert.Empty(t, username)
}

func TestParse_UnsignedValueRejected(t *testing.T) {
	mgr := newTestManager(t, newTestConfig(), false)

	username, err := mgr.Parse(requestWith(&http.Cookie{Name: "session_user", Value: "alice"}))

	require.NoError(t, err)
	assert.Empty(t, username)
}

func TestParse_TamperedCookie(t *testing.T) {
	mgr := newTestManager(t, newTestConfig(), false)
	cookie, err := mgr.Create("alice")
	require.NoError(t, err)

	cookie.Value = cookie.Value[:len(cookie.Value)-5] + "XXXXX"

	username, err := mgr.Parse(requestWith(cookie))

	require.NoError(t, err)
	assert.Empty(t, username)
}

func TestParse_DifferentManager(t *testing.T) {
	mgr1 := newTestManager(t, newTestConfig(), false)
	cookie, err := mgr1.Create("alice")
	require.NoError(t, err)

	mgr2 := newTestManager(t, &config.SessionConfig{CookieName: "session_user", HashKey: validBlockKey}, false)

	username, err := mgr2.Parse(requestWith(cookie))

	require.NoError(t, err)
	assert.Empty(t, username)
}

func TestParse_PlainMode(t *testing.T) {
	cfg := newTestConfig()
	cfg.Plain = true
	mgr := newTestManager(t, cfg, false)

	username, err := mgr.Parse(requestWith(&http.Cookie{Name: "session_user", Value: "bob"}))

	require.NoError(t, err)
	assert.Equal(t, "bob", username)
}

func TestClear(t *testing.T) {
	mgr := newTestManager(t, newTestConfig(), true)

	cookie := mgr.Clear()

	assert.Equal(t, "session_user", cookie.Name)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, -1, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestResolve(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	alice := testutil.NewTestUser(t, repo, "alice", true)
	mgr := newTestManager(t, newTestConfig(), false)
	cookie, err := mgr.Create("alice")
	require.NoError(t, err)

	user, err := mgr.Resolve(context.Background(), requestWith(cookie), repo)

	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, alice.ID, user.ID)
	assert.True(t, user.IsAdmin)
}

func TestResolve_Anonymous(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	mgr := newTestManager(t, newTestConfig(), false)

	user, err := mgr.Resolve(context.Background(), requestWith(nil), repo)

	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestResolve_DeletedUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	mgr := newTestManager(t, newTestConfig(), false)
	cookie, err := mgr.Create("ghost")
	require.NoError(t, err)

	user, err := mgr.Resolve(context.Background(), requestWith(cookie), repo)

	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestResolve_StoreFailure(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	mgr := newTestManager(t, newTestConfig(), false)
	cookie, err := mgr.Create("alice")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = mgr.Resolve(context.Background(), requestWith(cookie), repo)

	assert.Error(t, err)
}
