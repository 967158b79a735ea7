package llm

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-3-5-haiku-20241022"

// AnthropicClient is the Anthropic LLM client.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey, model string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}
	if model == "" {
		model = defaultAnthropicModel
	}

	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return string(ProviderAnthropic)
}

// Model returns the configured model.
func (c *AnthropicClient) Model() string {
	return c.model
}

// CompleteStream sends a streaming completion request.
func (c *AnthropicClient) CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	system := joinSystemPrompts(req.SystemPrompts)

	return runSteps(ctx, req, c.model, callback, func(ctx context.Context, msgs []ChatMessage, emit func(string) error) (stepResult, error) {
		messages := make([]anthropic.MessageParam, len(msgs))
		for i, msg := range msgs {
			messages[i] = anthropic.MessageParam{
				Role: anthropic.F(anthropic.MessageParamRole(msg.Role)),
				Content: anthropic.F([]anthropic.ContentBlockParamUnion{
					anthropic.TextBlockParam{
						Type: anthropic.F(anthropic.TextBlockParamTypeText),
						Text: anthropic.F(msg.Content),
					},
				}),
			}
		}

		params := anthropic.MessageNewParams{
			Model:     anthropic.F(c.model),
			MaxTokens: anthropic.F(int64(maxTokens)),
			Messages:  anthropic.F(messages),
		}
		if system != "" {
			params.System = anthropic.F([]anthropic.TextBlockParam{{
				Type: anthropic.F(anthropic.TextBlockParamTypeText),
				Text: anthropic.F(system),
			}})
		}

		stream := c.client.Messages.NewStreaming(ctx, params)

		var res stepResult
		for stream.Next() {
			event := stream.Current()

			switch event.Type {
			case anthropic.MessageStreamEventTypeMessageStart:
				res.TokensIn = int(event.Message.Usage.InputTokens)
			case anthropic.MessageStreamEventTypeContentBlockDelta:
				if event.Delta.Type == "text_delta" {
					if err := emit(event.Delta.Text); err != nil {
						return res, err
					}
				}
			case anthropic.MessageStreamEventTypeMessageDelta:
				res.StopReason = string(event.Delta.StopReason)
				res.TokensOut = int(event.Usage.OutputTokens)
			}
		}

		if err := stream.Err(); err != nil {
			return res, err
		}

		res.Truncated = res.StopReason == "max_tokens"
		return res, nil
	})
}
