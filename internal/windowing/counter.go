package windowing

import (
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
)

// DefaultBlockOverhead is charged for every content block on top of its text.
const DefaultBlockOverhead = 4

// TokenCounter estimates the input cost of one message.
type TokenCounter interface {
	CountMessage(m anthropic.MessageParam) int
}

// RuneCounter charges one unit per rune of text plus Overhead per block.
// Non-text blocks are charged Overhead only.
type RuneCounter struct {
	Overhead int
}

func NewRuneCounter() RuneCounter {
	return RuneCounter{Overhead: DefaultBlockOverhead}
}

func (c RuneCounter) CountMessage(m anthropic.MessageParam) int {
	total := 0
	for _, blk := range m.Content {
		total += c.Overhead
		if tb := blk.OfText; tb != nil {
			total += utf8.RuneCountInString(tb.Text)
		}
	}
	return total
}
