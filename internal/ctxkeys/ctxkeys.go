// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package ctxkeys defines typed context keys used across packages.
package ctxkeys

// CSRFToken is the context key for the CSRF token.
type CSRFToken struct{}

// CSSPath is the context key for the versioned stylesheet URL.
type CSSPath struct{}

// User is the context key for the user resolved from the session cookie.
type User struct{}
