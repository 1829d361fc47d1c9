// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/cloudauth/lightadmin/internal/database"
	"codeberg.org/cloudauth/lightadmin/internal/models"
	"github.com/vinovest/sqlx"
)

const userColumns = "id, username, password_hash, is_admin, created_at"

// GetUserByUsername retrieves a user by exact (case-sensitive) username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	query := r.q("SELECT " + userColumns + " FROM users WHERE username = ?")
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, notFoundOr("get user", err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	query := r.q("SELECT " + userColumns + " FROM users WHERE id = ?")
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, notFoundOr("get user", err)
	}
	return &user, nil
}

// ListUsers returns all users, newest first.
func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	query := "SELECT " + userColumns + " FROM users ORDER BY created_at DESC, id DESC"
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, unavailable("list users", err)
	}
	return users, nil
}

// ListUsersWithIDs returns all users ordered by descending ID for the table editor.
func (r *Repository) ListUsersWithIDs(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	query := "SELECT " + userColumns + " FROM users ORDER BY id DESC"
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, unavailable("list users", err)
	}
	return users, nil
}

// CountAdmins returns the number of users flagged as admin.
func (r *Repository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	query := r.q("SELECT COUNT(*) FROM users WHERE is_admin = ?")
	if err := r.db.GetContext(ctx, &count, query, true); err != nil {
		return 0, unavailable("count admins", err)
	}
	return count, nil
}

// CountUsers returns the total number of users.
func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, unavailable("count users", err)
	}
	return count, nil
}

// UserExists checks if a user with the given username exists.
func (r *Repository) UserExists(ctx context.Context, username string) (bool, error) {
	var count int64
	query := r.q("SELECT COUNT(*) FROM users WHERE username = ?")
	if err := r.db.GetContext(ctx, &count, query, username); err != nil {
		return false, unavailable("user exists", err)
	}
	return count > 0, nil
}

// CreateUser inserts a new user and returns it with the database-assigned ID and timestamp.
// A taken username yields ErrConflict and leaves the table unchanged.
func (r *Repository) CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) (*models.User, error) {
	var user models.User

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		taken, err := usernameTaken(ctx, tx, username, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrConflict
		}

		id, err := r.insertUser(ctx, tx, username, passwordHash, isAdmin)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrConflict
			}
			return unavailable("create user", err)
		}

		query := tx.Rebind("SELECT " + userColumns + " FROM users WHERE id = ?")
		if err := tx.GetContext(ctx, &user, query, id); err != nil {
			return unavailable("reload user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetAdminFlag changes the admin flag of the named user.
// Setting the current value is a no-op; demoting the sole admin yields ErrLastAdmin.
func (r *Repository) SetAdminFlag(ctx context.Context, username string, isAdmin bool) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		var user models.User
		query := tx.Rebind(r.dialect.ForUpdate("SELECT " + userColumns + " FROM users WHERE username = ?"))
		if err := tx.GetContext(ctx, &user, query, username); err != nil {
			return notFoundOr("get user", err)
		}

		if user.IsAdmin == isAdmin {
			return nil
		}

		if !isAdmin {
			if err := r.guardLastAdmin(ctx, tx); err != nil {
				return err
			}
		}

		update := tx.Rebind("UPDATE users SET is_admin = ? WHERE id = ?")
		if _, err := tx.ExecContext(ctx, update, isAdmin, user.ID); err != nil {
			return unavailable("set admin flag", err)
		}
		return nil
	})
}

// UpdateUserRecord rewrites username, admin flag and optionally the password hash of a user.
// An empty passwordHash keeps the stored hash.
func (r *Repository) UpdateUserRecord(ctx context.Context, id int64, username string, isAdmin bool, passwordHash string) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		var user models.User
		query := tx.Rebind(r.dialect.ForUpdate("SELECT " + userColumns + " FROM users WHERE id = ?"))
		if err := tx.GetContext(ctx, &user, query, id); err != nil {
			return notFoundOr("get user", err)
		}

		if username != user.Username {
			taken, err := usernameTaken(ctx, tx, username, id)
			if err != nil {
				return err
			}
			if taken {
				return ErrConflict
			}
		}

		if user.IsAdmin && !isAdmin {
			if err := r.guardLastAdmin(ctx, tx); err != nil {
				return err
			}
		}

		if passwordHash == "" {
			passwordHash = user.PasswordHash
		}

		update := tx.Rebind("UPDATE users SET username = ?, is_admin = ?, password_hash = ? WHERE id = ?")
		if _, err := tx.ExecContext(ctx, update, username, isAdmin, passwordHash, id); err != nil {
			if isUniqueViolation(err) {
				return ErrConflict
			}
			return unavailable("update user", err)
		}
		return nil
	})
}

// guardLastAdmin locks the admin rows and fails when only one remains.
// Must be called inside the transaction that performs the demotion.
func (r *Repository) guardLastAdmin(ctx context.Context, tx *sqlx.Tx) error {
	var ids []int64
	query := tx.Rebind(r.dialect.ForUpdate("SELECT id FROM users WHERE is_admin = ?"))
	if err := tx.SelectContext(ctx, &ids, query, true); err != nil {
		return unavailable("count admins", err)
	}
	if len(ids) <= 1 {
		return ErrLastAdmin
	}
	return nil
}

// insertUser inserts a row and returns its ID.
func (r *Repository) insertUser(ctx context.Context, tx *sqlx.Tx, username, passwordHash string, isAdmin bool) (int64, error) {
	if r.dialect == database.DialectPostgres {
		var id int64
		query := tx.Rebind("INSERT INTO users (username, password_hash, is_admin) VALUES (?, ?, ?) RETURNING id")
		err := tx.GetContext(ctx, &id, query, username, passwordHash, isAdmin)
		return id, err
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, is_admin) VALUES (?, ?, ?)",
		username, passwordHash, isAdmin)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// usernameTaken reports whether another user (other than exceptID) holds username.
func usernameTaken(ctx context.Context, tx *sqlx.Tx, username string, exceptID int64) (bool, error) {
	var count int64
	query := tx.Rebind("SELECT COUNT(*) FROM users WHERE username = ? AND id <> ?")
	if err := tx.GetContext(ctx, &count, query, username, exceptID); err != nil {
		return false, unavailable("check username", err)
	}
	return count > 0, nil
}
