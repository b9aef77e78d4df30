// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/algohackers/saarthi-vault/internal/model"
)

// UserRepository provides access to enrolled users. Templates are immutable:
// there is no update path, and user deletion is deliberately absent.
type UserRepository interface {
	// Create inserts a new user; a duplicate user_id is rejected.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id string) (*model.User, error)
	// List returns all enrolled users in stable store order, for the login
	// template scan.
	List(ctx context.Context) ([]model.User, error)
}
