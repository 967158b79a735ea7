package llm

import (
	"context"
	"strings"
	"time"
)

// DefaultMaxSteps bounds generation when a request does not set MaxSteps.
const DefaultMaxSteps = 5

const continuePrompt = "Continue exactly where you stopped. Do not repeat anything you already wrote."

type stepResult struct {
	StopReason string
	// Truncated is set when the round ended on the output-token limit.
	Truncated bool
	TokensIn  int
	TokensOut int
}

// stepFunc runs one streamed generation round over messages, passing each delta to emit.
type stepFunc func(ctx context.Context, messages []ChatMessage, emit func(string) error) (stepResult, error)

// runSteps drives up to MaxSteps rounds. A truncated round is continued by replaying the
// partial answer and asking the model to carry on; any other stop reason ends the loop.
func runSteps(ctx context.Context, req *CompletionRequest, model string, callback StreamCallback, round stepFunc) (*CompletionResponse, error) {
	start := time.Now()

	maxSteps := req.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	messages := make([]ChatMessage, len(req.Messages), len(req.Messages)+2*maxSteps)
	copy(messages, req.Messages)

	var content strings.Builder
	index := 0
	emit := func(token string) error {
		if token == "" {
			return nil
		}
		if err := callback(token, index); err != nil {
			return err
		}
		index++
		content.WriteString(token)
		return nil
	}

	resp := &CompletionResponse{Model: model}
	for step := 1; step <= maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		offset := content.Len()
		res, err := round(ctx, messages, emit)
		if err != nil {
			return nil, err
		}

		resp.Steps = step
		resp.StopReason = res.StopReason
		resp.TokensIn += res.TokensIn
		resp.TokensOut += res.TokensOut

		produced := content.String()[offset:]
		if !res.Truncated || produced == "" {
			break
		}
		messages = append(messages,
			ChatMessage{Role: "assistant", Content: produced},
			ChatMessage{Role: "user", Content: continuePrompt},
		)
	}

	resp.Content = content.String()
	resp.LatencyMs = time.Since(start).Milliseconds()
	return resp, nil
}

func joinSystemPrompts(prompts []string) string {
	return strings.Join(prompts, "\n\n")
}
