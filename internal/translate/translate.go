package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	log "github.com/sirupsen/logrus"

	"github.com/petasbytes/go-translator/internal/metrics"
	"github.com/petasbytes/go-translator/internal/provider"
	"github.com/petasbytes/go-translator/internal/telemetry"
	"github.com/petasbytes/go-translator/internal/windowing"
	"github.com/petasbytes/go-translator/memory"
)

// ErrEmptyInput is returned for blank text.
var ErrEmptyInput = errors.New("nothing to translate")

// History is the part of the conversation store the translator needs.
type History interface {
	RecentMessages(ctx context.Context, userID int64, limit int) []memory.Message
	AppendMessage(ctx context.Context, userID int64, role memory.Role, content string)
}

// PromptSource supplies the system prompt for each request.
type PromptSource interface {
	Load() string
}

type Translator struct {
	Client  *anthropic.Client
	History History
	Prompt  PromptSource

	Model     anthropic.Model
	MaxTokens int64
	// HistoryWindow caps the prior messages sent (<= 0 means windowing.DefaultMaxMessages).
	HistoryWindow int
	// HistoryBudget caps their estimated cost (<= 0 means unlimited).
	HistoryBudget int
	Counter       windowing.TokenCounter
	Logger        log.FieldLogger
}

func New(client *anthropic.Client, history History, prompt PromptSource) *Translator {
	return &Translator{
		Client:        client,
		History:       history,
		Prompt:        prompt,
		Model:         provider.DefaultModel,
		MaxTokens:     provider.DefaultMaxTokens,
		HistoryWindow: windowing.DefaultMaxMessages,
		Counter:       windowing.NewRuneCounter(),
		Logger:        log.StandardLogger(),
	}
}

// Translate returns the translation of text for userID and appends both turns
// to the user's active conversation.
func (t *Translator) Translate(ctx context.Context, userID int64, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}

	ctx, turn := telemetry.StartTurn(ctx, userID)
	turnID := turn.ID
	logger := t.Logger.WithFields(log.Fields{"user": userID, "turn": turnID})

	metrics.ObserveInput(metrics.MeasureText(text))
	telemetry.EmitLocalFeatures(ctx, text)

	history := t.History.RecentMessages(ctx, userID, 0)
	window, stats := windowing.Window(history, t.HistoryWindow, t.HistoryBudget, t.Counter)

	telemetry.Emit("window_prepared", map[string]any{
		"turn_id":            turnID,
		"model":              string(t.Model),
		"budget":             stats.Budget,
		"total_estimated":    stats.Total,
		"history":            len(history),
		"included":           stats.Included,
		"skipped":            stats.Skipped,
		"over_budget_newest": stats.OverBudgetNewest,
	})

	msgs := make([]anthropic.MessageParam, 0, len(window)+1)
	msgs = append(msgs, window...)
	msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))

	params := anthropic.MessageNewParams{
		Model:     t.Model,
		MaxTokens: t.MaxTokens,
		Messages:  msgs,
	}
	if system := t.Prompt.Load(); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	start := time.Now()
	msg, err := t.Client.Messages.New(ctx, params)
	metrics.Translation(err)
	if err != nil {
		telemetry.Emit("translation", map[string]any{
			"turn_id":     turnID,
			"duration_ms": time.Since(start).Milliseconds(),
			"error":       "api error",
		})
		logger.WithError(err).Error("translation request failed")
		return "", fmt.Errorf("translate: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	translation := strings.TrimSpace(sb.String())

	t.History.AppendMessage(ctx, userID, memory.RoleUser, text)
	t.History.AppendMessage(ctx, userID, memory.RoleAssistant, translation)

	telemetry.Emit("translation", map[string]any{
		"turn_id":      turnID,
		"duration_ms":  time.Since(start).Milliseconds(),
		"output_runes": len([]rune(translation)),
		"error":        nil,
	})
	logger.WithField("chars", len(translation)).Info("translation sent")
	return translation, nil
}
