package provider

import (
	"fmt"
	"os"

	"github.com/openai/openai-go"
	oaoption "github.com/openai/openai-go/option"
)

// DefaultTranscriptionModel is the speech-to-text model used when none is configured.
const DefaultTranscriptionModel = openai.AudioModelWhisper1

// NewOpenAIClient returns a client for apiKey, falling back to OPENAI_API_KEY.
// OPENAI_BASE_URL selects a compatible endpoint.
func NewOpenAIClient(apiKey string, opts ...oaoption.RequestOption) (*openai.Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (provide via config or OPENAI_API_KEY environment variable)")
	}

	options := []oaoption.RequestOption{oaoption.WithAPIKey(apiKey)}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		options = append(options, oaoption.WithBaseURL(base))
	}
	options = append(options, opts...)

	c := openai.NewClient(options...)
	return &c, nil
}
