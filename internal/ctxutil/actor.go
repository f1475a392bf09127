// Package ctxutil carries the acting moderator through a context.
// It has no internal dependencies so any layer may import it.
package ctxutil

import "context"

type actorKey struct{}

// WithActor returns a context carrying actor.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// Actor returns the actor stored in ctx. ok is false when none was set
// or the stored actor is empty.
func Actor(ctx context.Context) (actor string, ok bool) {
	actor, _ = ctx.Value(actorKey{}).(string)
	return actor, actor != ""
}
