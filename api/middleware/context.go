package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxActorID   contextKey = "actor_id"
	ctxActorName contextKey = "actor_name"
)

// ActorIDFromContext returns the acting party id, or uuid.Nil when the
// request carried none.
func ActorIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxActorID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func ActorNameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxActorName).(string); ok {
		return v
	}
	return ""
}

// WithActor injects the acting party into the context for downstream handlers.
func WithActor(ctx context.Context, actorID uuid.UUID, name string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxActorID, actorID)
	return context.WithValue(ctx, ctxActorName, name)
}
