// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
	"fmt"
)

// StreamCallback is called for each content delta during streaming.
type StreamCallback func(token string, index int) error

// CompletionRequest represents a streaming chat completion request.
type CompletionRequest struct {
	SystemPrompts []string
	Messages      []ChatMessage
	// MaxSteps caps the number of generation rounds. Zero means DefaultMaxSteps.
	MaxSteps  int
	MaxTokens int
}

// ChatMessage represents a chat message for LLM. Role is "user" or "assistant".
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a completed stream.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	Steps      int
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// CompleteStream streams a completion, invoking callback for every content delta.
	CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Model returns the model used for completions.
	Model() string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderArk       Provider = "ark"
)

// Settings carries provider credentials and model selection.
type Settings struct {
	APIKey  string
	Model   string
	BaseURL string
	Region  string
}

// NewClient creates a new LLM client based on provider.
func NewClient(ctx context.Context, provider Provider, s Settings) (Client, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, s.APIKey, s.Model)
	case ProviderOpenAI:
		return NewOpenAIClient(s.APIKey, s.Model)
	case ProviderAnthropic:
		return NewAnthropicClient(s.APIKey, s.Model)
	case ProviderArk:
		return NewArkClient(ctx, s)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
