package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ArkClient streams completions from a Volcengine Ark chat model through eino.
type ArkClient struct {
	chat  *ark.ChatModel
	model string
}

// NewArkClient creates a new Ark client.
func NewArkClient(ctx context.Context, s Settings) (*ArkClient, error) {
	if s.APIKey == "" {
		return nil, errors.New("Ark API key is required")
	}
	if s.Model == "" {
		return nil, errors.New("Ark model endpoint is required")
	}

	chat, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL: s.BaseURL,
		Region:  s.Region,
		APIKey:  s.APIKey,
		Model:   s.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Ark chat model: %w", err)
	}

	return &ArkClient{chat: chat, model: s.Model}, nil
}

// Name returns the provider name.
func (c *ArkClient) Name() string {
	return string(ProviderArk)
}

// Model returns the configured model endpoint.
func (c *ArkClient) Model() string {
	return c.model
}

// CompleteStream sends a streaming completion request.
func (c *ArkClient) CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error) {
	system := joinSystemPrompts(req.SystemPrompts)

	var opts []model.Option
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}

	return runSteps(ctx, req, c.model, callback, func(ctx context.Context, msgs []ChatMessage, emit func(string) error) (stepResult, error) {
		stream, err := c.chat.Stream(ctx, arkMessages(system, msgs), opts...)
		if err != nil {
			return stepResult{}, err
		}
		defer stream.Close()

		var res stepResult
		for {
			chunk, recvErr := stream.Recv()
			if errors.Is(recvErr, io.EOF) {
				break
			}
			if recvErr != nil {
				return res, recvErr
			}
			if chunk == nil {
				continue
			}

			if err := emit(chunk.Content); err != nil {
				return res, err
			}

			if meta := chunk.ResponseMeta; meta != nil {
				if meta.FinishReason != "" {
					res.StopReason = meta.FinishReason
				}
				if meta.Usage != nil {
					res.TokensIn = meta.Usage.PromptTokens
					res.TokensOut = meta.Usage.CompletionTokens
				}
			}
		}

		res.Truncated = res.StopReason == "length"
		return res, nil
	})
}

func arkMessages(system string, msgs []ChatMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs)+1)
	if system != "" {
		out = append(out, schema.SystemMessage(system))
	}
	for _, m := range msgs {
		if m.Role == "assistant" {
			out = append(out, schema.AssistantMessage(m.Content, nil))
		} else {
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}
