// Package common defines shared constants and sentinel errors used across
// the client sync layer and the server. Callers match these with errors.Is.
package common

import "errors"

var (
	// Remote-store conditions surfaced through the sync layer.
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrUnavailable      = errors.New("remote unavailable")
	ErrNotFound         = errors.New("not found")

	// Validation / item-specific errors.
	ErrInvalidEntity = errors.New("invalid entity")

	// Auth lifecycle errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// User management errors.
	ErrLoginAlreadyExists     = errors.New("login already exists")
	ErrInvalidLoginOrPassword = errors.New("invalid login/password")
)
