// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// LoginEvent records one successful sign-in.
// Username is free text and may outlive the account it names.
type LoginEvent struct {
	ID         int64     `db:"id" json:"id"`
	Username   string    `db:"username" json:"username"`
	LoggedInAt time.Time `db:"logged_in_at" json:"logged_in_at"`
}

// InputValue formats LoggedInAt for a datetime-local form field.
func (e *LoginEvent) InputValue() string {
	return e.LoggedInAt.Format("2006-01-02T15:04:05")
}
