package telemetry

import (
	"context"

	"github.com/google/uuid"
)

// Turn identifies one translation request across the events it emits.
type Turn struct {
	ID     string
	UserID int64
}

type turnKey struct{}

// WithTurn returns a child of ctx carrying t.
func WithTurn(ctx context.Context, t Turn) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, turnKey{}, t)
}

// TurnFromContext returns the turn carried by ctx. A turn with an empty ID counts as missing.
func TurnFromContext(ctx context.Context) (Turn, bool) {
	if ctx == nil {
		return Turn{}, false
	}
	t, ok := ctx.Value(turnKey{}).(Turn)
	if !ok || t.ID == "" {
		return Turn{}, false
	}
	return t, true
}

// StartTurn keeps the turn already on ctx, or starts a new one for userID.
func StartTurn(ctx context.Context, userID int64) (context.Context, Turn) {
	if t, ok := TurnFromContext(ctx); ok {
		return ctx, t
	}
	t := Turn{ID: "turn-" + uuid.NewString(), UserID: userID}
	return WithTurn(ctx, t), t
}
