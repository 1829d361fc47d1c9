// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements account registration and password login.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/cloudauth/lightadmin/internal/models"
	"codeberg.org/cloudauth/lightadmin/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingFields      = errors.New("username and password are required")
)

type Service struct {
	repo *repository.Repository
}

func NewService(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// RegisterParams holds the parameters for user registration
type RegisterParams struct {
	Username string
	Password string
}

// Register creates a new account. The first account created while no admin exists becomes admin.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	if params.Username == "" || params.Password == "" {
		return nil, ErrMissingFields
	}

	exists, err := s.repo.UserExists(ctx, params.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	user, err := s.CreateUser(ctx, params.Username, params.Password, false)
	if err != nil {
		return nil, err
	}

	slog.Info("register_success", "user_id", user.ID, "username", user.Username, "is_admin", user.IsAdmin)
	return user, nil
}

// CreateUser hashes password and stores a new account with the given role.
// While no admin exists the account is created as admin regardless of isAdmin.
func (s *Service) CreateUser(ctx context.Context, username, password string, isAdmin bool) (*models.User, error) {
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}

	if !isAdmin {
		admins, err := s.repo.CountAdmins(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count admins: %w", err)
		}
		isAdmin = admins == 0
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.CreateUser(ctx, username, passwordHash, isAdmin)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login authenticates a user and records the login event.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "username", username, "reason", "user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !CheckPassword(user.PasswordHash, password) {
		slog.Warn("login_failed", "username", username, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.RecordLogin(ctx, user.Username); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	if NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	slog.Info("login_success", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// upgradeHash replaces a legacy digest with bcrypt. Failure leaves the old hash in place.
func (s *Service) upgradeHash(ctx context.Context, user *models.User, password string) {
	hash, err := HashPassword(password)
	if err != nil {
		slog.Warn("password_rehash_failed", "user_id", user.ID, "error", err)
		return
	}
	if err := s.repo.UpdateUserRecord(ctx, user.ID, user.Username, user.IsAdmin, hash); err != nil {
		slog.Warn("password_rehash_failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
}
