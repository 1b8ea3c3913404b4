package shortener

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence operations for Link entities.
// It abstracts the underlying data store and is responsible for creating
// and retrieving links, tracking click counts, and soft deletion.
type Repository interface {
	// Create persists a new link. The short code must be globally unique;
	// a duplicate yields a Conflict error.
	Create(ctx context.Context, link Link) (Link, error)

	// CodeExists reports whether any record, active or not, holds the code.
	CodeExists(ctx context.Context, code string) (bool, error)

	// GetActiveByCode returns the active link for the code, or NotFound.
	// Expiry is not checked here; that is the service's concern.
	GetActiveByCode(ctx context.Context, code string) (Link, error)

	// IncrementClicks bumps the click count by exactly one with a single
	// atomic update statement.
	IncrementClicks(ctx context.Context, code string) error

	// ListByOwner returns the owner's active links ordered by creation
	// time descending.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int32, offset int64) ([]Link, error)

	// StatsByOwner aggregates the owner's active links server-side.
	StatsByOwner(ctx context.Context, ownerID uuid.UUID) (OwnerStats, error)

	// Deactivate soft-deletes the active link with the code. The record is
	// kept so the code is never reused.
	Deactivate(ctx context.Context, code string) error
}
