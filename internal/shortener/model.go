package shortener

import (
	"time"

	"github.com/google/uuid"
)

// Link is a stored short link. ShortCode is globally unique across all
// records ever created, including deactivated ones; codes are never reused.
type Link struct {
	ID          uuid.UUID
	OriginalURL string
	ShortCode   string
	OwnerID     uuid.UUID
	CreatedAt   time.Time
	ExpiresAt   time.Time
	ClickCount  int64
	IsActive    bool
}

// OwnerStats aggregates an owner's active links.
type OwnerStats struct {
	ActiveCount int64
	TotalClicks int64
	TopByClicks []Link
}
