package auth

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const originatorKey contextKey = "originatorID"

// ContextWithOriginator returns a new context that carries the acting
// actor's identity. Versions captured under this context record the actor as
// their originator unless a call overrides it explicitly.
func ContextWithOriginator(ctx context.Context, id uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, originatorKey, id)
}

// OriginatorFromContext retrieves the acting actor's identity from the
// context, if any.
func OriginatorFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	value := ctx.Value(originatorKey)
	if value == nil {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
