package httpx

import (
	"context"

	"github.com/google/uuid"
)

const ownerContextKey contextKey = "owner"

// Owner identifies the authenticated principal of a request.
type Owner struct {
	ID       uuid.UUID
	Username string
}

// WithOwner adds the authenticated owner to the context.
func WithOwner(ctx context.Context, owner Owner) context.Context {
	return context.WithValue(ctx, ownerContextKey, owner)
}

// OwnerFromContext extracts the authenticated owner from context.
// The second return value reports whether an owner was present.
func OwnerFromContext(ctx context.Context) (Owner, bool) {
	owner, ok := ctx.Value(ownerContextKey).(Owner)
	return owner, ok
}
