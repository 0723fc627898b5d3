package domain

import "context"

// SystemActor is recorded when no caller identity is known.
const SystemActor = "system"

// Actor identifies who triggered an operation, for the audit trail.
type Actor struct {
	UserID    string
	IPAddress string
	UserAgent string
}

type actorKey struct{}

// ContextWithActor attaches the caller identity to ctx.
func ContextWithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext returns the caller identity, defaulting to SystemActor.
func ActorFromContext(ctx context.Context) Actor {
	a, _ := ctx.Value(actorKey{}).(Actor)
	if a.UserID == "" {
		a.UserID = SystemActor
	}
	return a
}

// AuditOptions converts the actor into audit entry options.
func (a Actor) AuditOptions() []AuditOption {
	return []AuditOption{WithUser(a.UserID), WithClient(a.IPAddress, a.UserAgent)}
}
