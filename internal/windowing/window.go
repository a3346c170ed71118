// Package windowing selects the slice of conversation history sent along with
// a new translation request.
package windowing

import (
	"github.com/anthropics/anthropic-sdk-go"
	log "github.com/sirupsen/logrus"

	"github.com/petasbytes/go-translator/memory"
)

// DefaultMaxMessages is the number of prior messages considered when no limit is configured.
const DefaultMaxMessages = 10

// Stats summarizes the result of window preparation.
//
// Fields:
// - Total: estimated cost of the included messages.
// - Budget: the cost budget used (<= 0 means unlimited).
// - Considered: messages left after the max-messages cut.
// - Included: messages in the returned window.
// - Skipped: Considered minus Included.
// - OverBudgetNewest: true when the newest message alone exceeds Budget.
type Stats struct {
	Total            int
	Budget           int
	Considered       int
	Included         int
	Skipped          int
	OverBudgetNewest bool
}

// ToParams converts stored messages to SDK message params, oldest first.
func ToParams(history []memory.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == memory.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

// Window returns the tail of history (oldest→newest) to send with the next request.
//
// Rules:
// - Consider at most the last maxMessages entries (DefaultMaxMessages when maxMessages <= 0).
// - Include messages scanning newest→oldest while total cost ≤ budget; budget <= 0 disables the cap.
// - If the newest message alone exceeds budget, return an empty window and set OverBudgetNewest.
// - Drop leading assistant messages so the window starts on a user turn.
func Window(history []memory.Message, maxMessages, budget int, c TokenCounter) ([]anthropic.MessageParam, Stats) {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	if len(history) > maxMessages {
		history = history[len(history)-maxMessages:]
	}
	stats := Stats{Budget: budget, Considered: len(history)}
	if len(history) == 0 {
		return nil, stats
	}

	msgs := ToParams(history)

	total := 0
	start := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		cost := c.CountMessage(msgs[i])
		if budget > 0 && total+cost > budget {
			if start == len(msgs) {
				log.WithFields(log.Fields{"budget": budget, "cost": cost}).Debug("windowing: newest message exceeds budget")
				stats.Skipped = len(msgs)
				stats.OverBudgetNewest = true
				return nil, stats
			}
			break
		}
		total += cost
		start = i
	}

	// Drop leading assistant turns.
	for start < len(msgs) && msgs[start].Role == anthropic.MessageParamRoleAssistant {
		total -= c.CountMessage(msgs[start])
		start++
	}

	window := msgs[start:]
	stats.Total = total
	stats.Included = len(window)
	stats.Skipped = len(msgs) - len(window)
	if len(window) == 0 {
		return nil, stats
	}
	return window, stats
}
