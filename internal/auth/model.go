package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// RefreshToken represents a stored refresh token. Each owner holds at most
// one token at a time.
type RefreshToken struct {
	ID         uuid.UUID
	Token      string
	OwnerID    uuid.UUID
	ExpiryDate time.Time
}
