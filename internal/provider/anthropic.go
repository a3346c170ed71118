// Package provider constructs the model API clients used by the translator.
package provider

import (
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultModel     = anthropic.Model("claude-haiku-4-5-20251001")
	DefaultMaxTokens = 1024
)

// NewAnthropicClient returns a Messages API client for apiKey, falling back to
// ANTHROPIC_API_KEY. ANTHROPIC_BASE_URL selects a compatible endpoint.
func NewAnthropicClient(apiKey string, opts ...option.RequestOption) (*anthropic.Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (provide via config or ANTHROPIC_API_KEY environment variable)")
	}

	options := []option.RequestOption{option.WithAPIKey(apiKey)}
	if base := os.Getenv("ANTHROPIC_BASE_URL"); base != "" {
		options = append(options, option.WithBaseURL(base))
	}
	options = append(options, opts...)

	c := anthropic.NewClient(options...)
	return &c, nil
}
