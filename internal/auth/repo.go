package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	// Create inserts a new user. Returns Conflict when the username or
	// email is already registered.
	Create(ctx context.Context, user User) (User, error)

	// GetByID fetches a user by primary key. Returns NotFound when no
	// such user exists.
	GetByID(ctx context.Context, id uuid.UUID) (User, error)

	// GetByUsername fetches a user by username. Returns NotFound when no
	// such user exists.
	GetByUsername(ctx context.Context, username string) (User, error)
}

// RefreshTokenRepository defines persistence operations for refresh tokens.
type RefreshTokenRepository interface {
	// Replace atomically removes the owner's existing token, if any, and
	// inserts the given one. Returns Conflict when the token value
	// collides with another owner's token.
	Replace(ctx context.Context, token RefreshToken) (RefreshToken, error)

	// Find fetches a stored token by its value. Returns NotFound when no
	// such token exists.
	Find(ctx context.Context, token string) (RefreshToken, error)

	// Delete removes a stored token by its value.
	Delete(ctx context.Context, token string) error

	// DeleteByOwner removes the owner's token, if any.
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error

	// DeleteExpired removes all tokens whose expiry is before the given
	// time and reports how many were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
