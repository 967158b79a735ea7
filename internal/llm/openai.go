package llm

import (
	"context"
	"errors"
	"io"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient is the OpenAI LLM client.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return string(ProviderOpenAI)
}

// Model returns the configured model.
func (c *OpenAIClient) Model() string {
	return c.model
}

// CompleteStream sends a streaming completion request.
func (c *OpenAIClient) CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error) {
	system := joinSystemPrompts(req.SystemPrompts)

	return runSteps(ctx, req, c.model, callback, func(ctx context.Context, msgs []ChatMessage, emit func(string) error) (stepResult, error) {
		messages := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
		if system != "" {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: system,
			})
		}
		for _, msg := range msgs {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    msg.Role,
				Content: msg.Content,
			})
		}

		stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:     c.model,
			Messages:  messages,
			MaxTokens: req.MaxTokens,
			Stream:    true,
		})
		if err != nil {
			return stepResult{}, err
		}
		defer stream.Close()

		var res stepResult
		var produced int
		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return res, err
			}

			if len(response.Choices) > 0 {
				delta := response.Choices[0].Delta.Content
				if err := emit(delta); err != nil {
					return res, err
				}
				produced += len(delta)

				if response.Choices[0].FinishReason != "" {
					res.StopReason = string(response.Choices[0].FinishReason)
				}
			}
		}

		// Streaming responses carry no usage block; estimate from byte counts.
		for _, m := range messages {
			res.TokensIn += len(m.Content) / 4
		}
		res.TokensOut = produced / 4
		res.Truncated = res.StopReason == string(openai.FinishReasonLength)
		return res, nil
	})
}
