package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient is the Google Gemini LLM client.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("Gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

// Name returns the provider name.
func (c *GeminiClient) Name() string {
	return string(ProviderGemini)
}

// Model returns the configured model.
func (c *GeminiClient) Model() string {
	return c.model
}

// Close releases the underlying client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// CompleteStream sends a streaming completion request.
func (c *GeminiClient) CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error) {
	gm := c.client.GenerativeModel(c.model)
	if system := joinSystemPrompts(req.SystemPrompts); system != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if req.MaxTokens > 0 {
		gm.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	return runSteps(ctx, req, c.model, callback, func(ctx context.Context, msgs []ChatMessage, emit func(string) error) (stepResult, error) {
		history, last := geminiHistory(msgs)

		cs := gm.StartChat()
		cs.History = history

		var res stepResult
		iter := cs.SendMessageStream(ctx, genai.Text(last))
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				return res, err
			}

			for _, cand := range resp.Candidates {
				if cand.Content != nil {
					for _, part := range cand.Content.Parts {
						if t, ok := part.(genai.Text); ok {
							if err := emit(string(t)); err != nil {
								return res, err
							}
						}
					}
				}
				if cand.FinishReason != genai.FinishReasonUnspecified {
					res.StopReason = cand.FinishReason.String()
					res.Truncated = cand.FinishReason == genai.FinishReasonMaxTokens
				}
			}

			if resp.UsageMetadata != nil {
				res.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
				res.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
			}
		}

		return res, nil
	})
}

// geminiHistory splits msgs into prior turns and the text to send. Gemini names the
// assistant role "model", and a chat must end on a user turn.
func geminiHistory(msgs []ChatMessage) ([]*genai.Content, string) {
	if len(msgs) == 0 {
		return nil, continuePrompt
	}

	prior := msgs
	last := continuePrompt
	if tail := msgs[len(msgs)-1]; tail.Role == "user" {
		prior = msgs[:len(msgs)-1]
		last = tail.Content
	}

	history := make([]*genai.Content, 0, len(prior))
	for _, m := range prior {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return history, last
}
