// Package ctxutil carries request-scoped values through context.
// It has no internal dependencies so any layer may import it.
package ctxutil

import "context"

// UnknownActor names a caller that did not identify itself.
const UnknownActor = "unknown"

// ActorKey is the context key for the actor that triggered an operation,
// e.g. "cli:alice" or "http:10.0.0.4".
type ActorKey struct{}

// WithActorID returns a context with the actor ID embedded.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ActorKey{}, actorID)
}

// ActorFromContext returns the actor ID from context, or UnknownActor if not set.
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ActorKey{}).(string); ok && v != "" {
		return v
	}
	return UnknownActor
}
