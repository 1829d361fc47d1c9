// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"testing"
	"time"

	"codeberg.org/cloudauth/lightadmin/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestUser_Role(t *testing.T) {
	assert.Equal(t, "admin", (&models.User{IsAdmin: true}).Role())
	assert.Equal(t, "user", (&models.User{}).Role())
}

func TestLoginEvent_InputValue(t *testing.T) {
	event := &models.LoginEvent{LoggedInAt: time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC)}

	assert.Equal(t, "2024-01-05T10:30:00", event.InputValue())
}
