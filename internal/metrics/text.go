package metrics

import (
	"strings"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var inputRunes = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "translator_input_runes",
	Help:    "Length in runes of text submitted for translation.",
	Buckets: prometheus.ExponentialBuckets(8, 4, 7),
})

// TextSize describes the size of a piece of user text without its content.
type TextSize struct {
	Bytes int `json:"bytes"`
	Runes int `json:"runes"`
	Words int `json:"words"`
	// Lines is 0 for empty text, otherwise 1 plus the number of '\n'.
	Lines int `json:"lines"`
}

// MeasureText sizes s. Words are split on Unicode whitespace.
func MeasureText(s string) TextSize {
	size := TextSize{
		Bytes: len(s),
		Runes: utf8.RuneCountInString(s),
		Words: len(strings.Fields(s)),
	}
	if s != "" {
		size.Lines = 1 + strings.Count(s, "\n")
	}
	return size
}

// ObserveInput records the size of one translation request's new text.
func ObserveInput(size TextSize) {
	inputRunes.Observe(float64(size.Runes))
}
