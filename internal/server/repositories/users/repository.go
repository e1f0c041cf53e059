// Package users declares and implements the server-side user account
// repository.
package users

import (
	"context"

	"github.com/sultumov/allergyTracker/internal/server/models"
)

type Repository interface {
	// Create inserts a new account. A duplicate login yields
	// common.ErrLoginAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetUserByLogin returns the account for login, common.ErrNotFound when
	// absent.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
}
