package telemetry

import (
	"context"

	"github.com/petasbytes/go-translator/internal/metrics"
)

// EmitLocalFeatures records the size of the text submitted in ctx's turn. The text itself is never written.
func EmitLocalFeatures(ctx context.Context, text string) {
	if !ObserveEnabled() {
		return
	}
	turn, _ := TurnFromContext(ctx)
	Emit("local_features", map[string]any{
		"turn_id":          turn.ID,
		"user_id":          turn.UserID,
		"features_version": "1",
		"input":            metrics.MeasureText(text),
	})
}
