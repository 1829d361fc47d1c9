// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session issues and reads the cookie that identifies the signed-in user.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"codeberg.org/cloudauth/lightadmin/internal/config"
	"codeberg.org/cloudauth/lightadmin/internal/models"
	"codeberg.org/cloudauth/lightadmin/internal/repository"
	"github.com/gorilla/securecookie"
)

// keyLength is the required size of decoded hash and block keys.
const keyLength = 32

// ErrUnsafeUsername is returned in plain mode for usernames that cannot be
// stored verbatim in a cookie value.
var ErrUnsafeUsername = errors.New("username cannot be stored in an unsigned session cookie")

// UserFinder looks up the account named by a session.
type UserFinder interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Manager creates and validates session cookies.
type Manager struct {
	codec  *securecookie.SecureCookie
	name   string
	maxAge int
	secure bool
	plain  bool
}

// NewManager builds a Manager from the session configuration.
// An empty hash key is replaced by a random one, which invalidates sessions on restart.
func NewManager(cfg *config.SessionConfig, secure bool) (*Manager, error) {
	m := &Manager{
		name:   cfg.CookieName,
		maxAge: cfg.MaxAge,
		secure: secure,
		plain:  cfg.Plain,
	}
	if m.name == "" {
		m.name = "session_user"
	}

	if m.plain {
		slog.Warn("session cookies are not signed", "cookie", m.name)
		return m, nil
	}

	hashKey, err := decodeKey(cfg.HashKey, "hash")
	if err != nil {
		return nil, err
	}
	if hashKey == nil {
		hashKey = securecookie.GenerateRandomKey(keyLength)
		if hashKey == nil {
			return nil, errors.New("failed to generate session hash key")
		}
		slog.Warn("no session hash key configured, generated a random one",
			"hint", "set --session-hash-key to keep sessions across restarts",
			"example", randomHexKey())
	}

	blockKey, err := decodeKey(cfg.BlockKey, "block")
	if err != nil {
		return nil, err
	}

	m.codec = securecookie.New(hashKey, blockKey)
	m.codec.MaxAge(cfg.MaxAge)
	return m, nil
}

func decodeKey(value, kind string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid session %s key: %w", kind, err)
	}
	if len(key) != keyLength {
		return nil, fmt.Errorf("invalid session %s key: must be %d bytes, got %d", kind, keyLength, len(key))
	}
	return key, nil
}

func randomHexKey() string {
	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return ""
	}
	return hex.EncodeToString(key)
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.name
}

// Create returns a cookie that identifies username.
func (m *Manager) Create(username string) (*http.Cookie, error) {
	if err := m.Check(username); err != nil {
		return nil, err
	}

	value := username
	if !m.plain {
		encoded, err := m.codec.Encode(m.name, username)
		if err != nil {
			return nil, fmt.Errorf("failed to encode session: %w", err)
		}
		value = encoded
	}

	return m.cookie(value, m.maxAge), nil
}

// Check reports ErrUnsafeUsername when Create could not issue a cookie for username.
func (m *Manager) Check(username string) error {
	if m.plain && !cookieSafe(username) {
		return ErrUnsafeUsername
	}
	return nil
}

// cookieSafe reports whether net/http keeps every byte of v in a cookie value.
func cookieSafe(v string) bool {
	for i := 0; i < len(v); i++ {
		b := v[i]
		if b < 0x20 || b >= 0x7f || b == '"' || b == ';' || b == '\\' {
			return false
		}
	}
	return true
}

// Parse returns the username carried by the request's session cookie.
// A missing or undecodable cookie yields an empty username and no error.
func (m *Manager) Parse(r *http.Request) (string, error) {
	cookie, err := r.Cookie(m.name)
	if err != nil {
		return "", nil
	}

	if m.plain {
		return cookie.Value, nil
	}

	var username string
	if err := m.codec.Decode(m.name, cookie.Value, &username); err != nil {
		return "", nil
	}
	return username, nil
}

// Clear returns a cookie that removes the session.
func (m *Manager) Clear() *http.Cookie {
	return m.cookie("", -1)
}

// Resolve maps the request's session cookie to a user.
// It returns nil without error when there is no session or the named user no longer exists.
func (m *Manager) Resolve(ctx context.Context, r *http.Request, finder UserFinder) (*models.User, error) {
	username, err := m.Parse(r)
	if err != nil || username == "" {
		return nil, err
	}

	user, err := finder.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
